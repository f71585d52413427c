package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"gotokenbridge/identity"
	"gotokenbridge/validate"
)

// Operator actions, each served under /admin/<action>.
const (
	ActionSetOwner       = "owner"
	ActionPause          = "pause"
	ActionUnpause        = "unpause"
	ActionRegisterNative = "tokens/native"
	ActionRegisterMinted = "tokens/minted"
	ActionSwapInMint     = "swapin/mint"
	ActionSwapInRelease  = "swapin/release"
)

var AdminActions = []string{
	ActionSetOwner, ActionPause, ActionUnpause, ActionRegisterNative,
	ActionRegisterMinted, ActionSwapInMint, ActionSwapInRelease,
}

// Admin serves a signed operator instruction. The signer of the payload is
// the caller the bridge authorizes; its nonce must exceed every nonce it
// used before, and the payload names the action so a signature cannot be
// replayed against another endpoint.
func (h *Handlers) Admin(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			responseError(w, "", "Error reading request body", http.StatusBadRequest)
			return
		}

		var req SignedRequest
		if err := json.Unmarshal(body, &req); err != nil {
			responseError(w, "", "Cannot unmarshal input JSON", http.StatusBadRequest)
			return
		}

		caller, err := identity.FromSignature([]byte(req.Payload), req.Signature)
		if err != nil {
			h.logger.Debug("cannot recover admin signer", "action", action, "err", err)
			responseError(w, "signature", "No signature or malformed signature provided", http.StatusBadRequest)
			return
		}

		var payload AdminPayload
		if err := json.Unmarshal([]byte(req.Payload), &payload); err != nil {
			responseError(w, "payload", "Cannot unmarshal payload JSON", http.StatusBadRequest)
			return
		}
		if payload.Action != action {
			responseError(w, "payload", fmt.Sprintf("Payload is for %q, not %q", payload.Action, action),
				http.StatusBadRequest)
			return
		}

		if err := h.nonces.Use(caller, payload.Nonce); err != nil {
			h.logger.Warn("admin request replayed", "action", action, "caller", caller, "nonce", payload.Nonce)
			h.responseFailure(w, "nonce", err)
			return
		}

		h.logger.Info("admin request", "action", action, "caller", caller, "nonce", payload.Nonce)

		resp := &APIAdminResponse{Status: "ok", Action: action, Nonce: payload.Nonce}
		field, err := h.execute(r.Context(), caller, payload, resp)
		if err != nil {
			h.logger.Info("admin request rejected", "action", action, "caller", caller, "err", err)
			h.responseFailure(w, field, err)
			return
		}

		responseJSON(w, resp, http.StatusOK)
	}
}

// execute runs payload and returns the payload field an error relates to.
func (h *Handlers) execute(
	ctx context.Context, caller identity.Caller, p AdminPayload, resp *APIAdminResponse,
) (string, error) {
	switch p.Action {
	case ActionSetOwner:
		return "owner", h.bridge.SetOwner(ctx, caller, p.Owner)
	case ActionPause:
		return "", h.bridge.Pause(ctx, caller)
	case ActionUnpause:
		return "", h.bridge.Unpause(ctx, caller)
	case ActionRegisterNative:
		return "token", h.bridge.RegisterNative(ctx, caller, p.Token)
	case ActionRegisterMinted:
		addr, err := h.bridge.RegisterMinted(ctx, caller, p.Name, p.Symbol, p.Decimals)
		if err != nil {
			return "", err
		}
		resp.Token = addr.Hex()
		return "", nil
	case ActionSwapInMint, ActionSwapInRelease:
		amount, err := validate.ParseAmount(p.Amount)
		if err != nil {
			return "amount", err
		}
		if p.Action == ActionSwapInMint {
			return "", h.bridge.SwapInMint(ctx, caller, p.Token, amount, p.Recipient)
		}
		return "", h.bridge.SwapInRelease(ctx, caller, p.Token, amount, p.Recipient)
	default:
		return "payload", fmt.Errorf("unknown action %q", p.Action)
	}
}
