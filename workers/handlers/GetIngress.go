package handlers

import (
	"net/http"

	"gotokenbridge/types"
)

// GetFailedIngress lists deposits that reached custody but could not be
// delivered to the bridge. They need manual handling.
func (h *Handlers) GetFailedIngress(w http.ResponseWriter, r *http.Request) {
	h.listIngress(w, types.IngressFailed)
}

func (h *Handlers) GetDeliveredIngress(w http.ResponseWriter, r *http.Request) {
	h.listIngress(w, types.IngressDelivered)
}

func (h *Handlers) listIngress(w http.ResponseWriter, status string) {
	recs, err := h.ingress.List(status)
	if err != nil {
		h.responseFailure(w, "", err)
		return
	}

	responseJSON(w, &APIIngressResponse{Status: "ok", Ingress: recs}, http.StatusOK)
}
