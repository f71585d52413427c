package bridge

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"gotokenbridge/identity"
	"gotokenbridge/storage"
	"gotokenbridge/types"
)

// accessControl owns the owner address and the pause flag.
type accessControl struct{}

func (accessControl) owner(r storage.Reader) (common.Address, error) {
	raw, err := r.Get(ownerKey)
	if errors.Is(err, storage.ErrNotFound) {
		return common.Address{}, errors.New("bridge not initialized: no owner")
	}
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(raw), nil
}

func (a accessControl) requireOwner(r storage.Reader, caller identity.Caller) error {
	owner, err := a.owner(r)
	if err != nil {
		return err
	}
	if caller.Address() != owner {
		return fmt.Errorf("%w: %s is not the owner", types.ErrUnauthorized, caller)
	}
	return nil
}

func (accessControl) paused(r storage.Reader) (bool, error) {
	raw, err := r.Get(pausedKey)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(raw) == 1 && raw[0] == 1, nil
}

func (a accessControl) requireNotPaused(r storage.Reader) error {
	paused, err := a.paused(r)
	if err != nil {
		return err
	}
	if paused {
		return types.ErrBridgePaused
	}
	return nil
}

func (accessControl) setOwner(tx storage.Tx, owner common.Address) error {
	return tx.Set(ownerKey, owner.Bytes())
}

func (accessControl) setPaused(tx storage.Tx, paused bool) error {
	v := byte(0)
	if paused {
		v = 1
	}
	return tx.Set(pausedKey, []byte{v})
}
