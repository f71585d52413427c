package handlers

import (
	"net/http"

	"github.com/go-chi/chi"

	"gotokenbridge/validate"
)

func (h *Handlers) GetTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.bridge.Tokens()
	if err != nil {
		h.responseFailure(w, "", err)
		return
	}

	responseJSON(w, &APITokensResponse{Status: "ok", Tokens: tokens}, http.StatusOK)
}

func (h *Handlers) GetToken(w http.ResponseWriter, r *http.Request) {
	addr, err := validate.CheckAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.responseFailure(w, "address", err)
		return
	}

	info, err := h.bridge.TokenInfo(addr)
	if err != nil {
		h.responseFailure(w, "address", err)
		return
	}

	responseJSON(w, &APITokenResponse{Status: "ok", Token: info}, http.StatusOK)
}
