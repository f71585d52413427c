package handlers

import (
	"net/http"

	"github.com/go-chi/chi"

	"gotokenbridge/validate"
)

// CustodyBalance reports how much of a registered token the bridge holds.
func (h *Handlers) CustodyBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := validate.CheckAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.responseFailure(w, "address", err)
		return
	}

	if _, err := h.bridge.TokenInfo(addr); err != nil {
		h.responseFailure(w, "address", err)
		return
	}

	balance, err := h.balances.CustodyBalance(r.Context(), addr)
	if err != nil {
		h.logger.Error("error getting custody balance", "token", addr, "err", err)
		responseError(w, "", "Cannot get balance", http.StatusInternalServerError)
		return
	}

	responseJSON(w, &APIBalanceResponse{
		Status:  "ok",
		Token:   addr.Hex(),
		Balance: balance.String(),
	}, http.StatusOK)
}
