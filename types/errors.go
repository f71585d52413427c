package types

import "errors"

// Error kinds surfaced by the bridge. Callers match them with errors.Is,
// messages carry the details.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrBridgePaused      = errors.New("bridge paused")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrAlreadyRegistered = errors.New("already registered")
	ErrUnsupportedToken  = errors.New("unsupported token")
	ErrNotFound          = errors.New("not found")
)

// ErrorKind returns the sentinel err wraps, or nil for anything else.
func ErrorKind(err error) error {
	for _, kind := range []error{
		ErrUnauthorized, ErrBridgePaused, ErrInvalidAddress, ErrInvalidAmount,
		ErrAlreadyRegistered, ErrUnsupportedToken, ErrNotFound,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
