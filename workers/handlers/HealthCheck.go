package handlers

import (
	"net/http"
)

// HealthCheck reports unhealthy when the bridge state cannot be read.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if _, err := h.bridge.State(); err != nil {
		h.logger.Error("health check failed", "err", err)
		responseError(w, "", "Bridge state unavailable", http.StatusServiceUnavailable)
		return
	}

	responseJSON(w, &APIResponse{
		Status: "ok",
	}, http.StatusOK)
}
