package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"gotokenbridge/addressbook"
	"gotokenbridge/identity"
	"gotokenbridge/types"
)

func responseJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func responseError(w http.ResponseWriter, field, message string, code int) {
	responseJSON(w, &APIResponse{
		Status:  "error",
		Field:   field,
		Message: message,
	}, code)
}

// statusFor maps an error to the HTTP status it is reported with.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrBridgePaused):
		return http.StatusLocked
	case errors.Is(err, types.ErrAlreadyRegistered), errors.Is(err, identity.ErrReplayed):
		return http.StatusConflict
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidAddress),
		errors.Is(err, types.ErrInvalidAmount),
		errors.Is(err, types.ErrUnsupportedToken),
		errors.Is(err, identity.ErrBadSignature),
		errors.Is(err, addressbook.ErrSignerMismatch),
		errors.Is(err, addressbook.ErrUnsupportedChain):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// responseFailure reports err, hiding the details of internal errors.
func (h *Handlers) responseFailure(w http.ResponseWriter, field string, err error) {
	code := statusFor(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		h.logger.Error("request failed", "err", err)
		message = "Internal error"
	}
	responseError(w, field, message, code)
}
