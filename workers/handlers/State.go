package handlers

import (
	"net/http"
)

func (h *Handlers) State(w http.ResponseWriter, r *http.Request) {
	st, err := h.bridge.State()
	if err != nil {
		h.responseFailure(w, "", err)
		return
	}

	responseJSON(w, &APIStateResponse{
		Status:        "ok",
		Owner:         st.Owner.Hex(),
		Paused:        st.Paused,
		LastSwapOutID: st.LastSwapOutID,
		LedgerEnabled: st.LedgerEnabled,
	}, http.StatusOK)
}
