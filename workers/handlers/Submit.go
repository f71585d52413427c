package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"gotokenbridge/addressbook"
	"gotokenbridge/identity"
	"gotokenbridge/types"
	"gotokenbridge/validate"
)

const maxBodySize = 1 << 16

// Submit binds a depositor address to the destination its deposits are
// forwarded to. The request is signed by the depositor.
func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.logger.Debug("error reading request body", "err", err)
		responseError(w, "", "Error reading request body", http.StatusBadRequest)
		return
	}

	var req AddressBindingRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Debug("error unmarshalling request body", "err", err)
		responseError(w, "", "Cannot unmarshal input JSON", http.StatusBadRequest)
		return
	}

	rec, err := h.book.BindSigned(req.Address, req.Chain, req.DestAddress, req.Nonce, req.Signature)
	if err != nil {
		h.logger.Debug("binding rejected", "address", req.Address, "chain", req.Chain, "err", err)
		h.responseFailure(w, bindingField(err), err)
		return
	}

	responseJSON(w, &APIResponseAddressBook{
		Status:      "ok",
		ID:          rec.ID,
		Address:     h.custodian.Hex(),
		DestChain:   rec.DestChain,
		DestAddress: rec.DestAddress,
	}, http.StatusOK)
}

func bindingField(err error) string {
	var addrErr *validate.AddressError
	switch {
	case errors.As(err, &addrErr):
		return "address"
	case errors.Is(err, types.ErrInvalidAddress):
		return "destAddress"
	case errors.Is(err, addressbook.ErrUnsupportedChain):
		return "chain"
	case errors.Is(err, identity.ErrBadSignature), errors.Is(err, addressbook.ErrSignerMismatch):
		return "signature"
	case errors.Is(err, identity.ErrReplayed):
		return "nonce"
	default:
		return ""
	}
}
