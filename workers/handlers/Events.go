package handlers

import (
	"net/http"
	"strconv"
)

const maxEventsPage = 1000

func (h *Handlers) GetEvents(w http.ResponseWriter, r *http.Request) {
	var (
		from  uint64
		limit = 100
		err   error
	)

	if v := r.URL.Query().Get("from"); v != "" {
		from, err = strconv.ParseUint(v, 10, 64)
		if err != nil {
			responseError(w, "from", "from must be a sequence number", http.StatusBadRequest)
			return
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit <= 0 || limit > maxEventsPage {
			responseError(w, "limit", "limit must be between 1 and 1000", http.StatusBadRequest)
			return
		}
	}

	events, err := h.bridge.Events(from, limit)
	if err != nil {
		h.responseFailure(w, "", err)
		return
	}

	responseJSON(w, &APIEventsResponse{Status: "ok", Events: events}, http.StatusOK)
}
