package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
)

func (h *Handlers) LastSwapOut(w http.ResponseWriter, r *http.Request) {
	id, err := h.bridge.LastSwapOutID()
	if err != nil {
		h.responseFailure(w, "", err)
		return
	}

	responseJSON(w, &APILastSwapOutResponse{Status: "ok", ID: id}, http.StatusOK)
}

func (h *Handlers) GetSwapOut(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		responseError(w, "id", "Swap-out id must be a positive integer", http.StatusBadRequest)
		return
	}

	rec, err := h.bridge.SwapOutInfo(id)
	if err != nil {
		h.responseFailure(w, "id", err)
		return
	}

	responseJSON(w, &APISwapOutResponse{Status: "ok", SwapOut: rec}, http.StatusOK)
}
