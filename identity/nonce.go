package identity

import (
	"errors"
	"fmt"
	"strconv"

	"gotokenbridge/storage"
)

var ErrReplayed = errors.New("nonce already used")

// NonceGuard makes signed requests single-use: each signer's nonces must
// strictly increase. Guards with different scopes keep separate counters.
type NonceGuard struct {
	store storage.Store
	scope string
}

func NewNonceGuard(store storage.Store) *NonceGuard {
	return &NonceGuard{store: store}
}

// Scoped returns a guard over the same store counting nonces apart from g.
func (g *NonceGuard) Scoped(scope string) *NonceGuard {
	return &NonceGuard{store: g.store, scope: scope}
}

func (g *NonceGuard) key(caller Caller) string {
	if g.scope == "" {
		return "nonce:" + caller.Address().Hex()
	}
	return "nonce:" + g.scope + ":" + caller.Address().Hex()
}

// Use consumes nonce for caller, failing with ErrReplayed when it is not
// above the last one accepted.
func (g *NonceGuard) Use(caller Caller, nonce uint64) error {
	return g.store.Update(func(tx storage.Tx) error {
		return g.UseTx(tx, caller, nonce)
	})
}

// UseTx is Use staged in tx, so the nonce is only consumed if tx commits.
func (g *NonceGuard) UseTx(tx storage.Tx, caller Caller, nonce uint64) error {
	key := g.key(caller)

	raw, err := tx.Get(key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return err
	default:
		last, err := strconv.ParseUint(string(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("corrupt nonce for %s: %w", caller, err)
		}
		if nonce <= last {
			return fmt.Errorf("%w: %d, last accepted %d", ErrReplayed, nonce, last)
		}
	}
	return tx.Set(key, []byte(strconv.FormatUint(nonce, 10)))
}

// Last returns the highest nonce accepted for caller, 0 when none.
func (g *NonceGuard) Last(caller Caller) (uint64, error) {
	raw, err := g.store.Get(g.key(caller))
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(string(raw), 10, 64)
}
