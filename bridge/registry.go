package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"gotokenbridge/storage"
	"gotokenbridge/types"
)

// registry maps token addresses to their provenance. Entries are written
// once and never removed.
type registry struct{}

func (registry) lookup(r storage.Reader, token common.Address) (*types.TokenInfo, bool, error) {
	var info types.TokenInfo
	ok, err := getJSON(r, tokenKey(token), &info)
	if err != nil || !ok {
		return nil, false, err
	}
	return &info, true, nil
}

func (reg registry) insert(tx storage.Tx, info types.TokenInfo) error {
	_, exists, err := reg.lookup(tx, info.Address)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: token %s", types.ErrAlreadyRegistered, info.Address.Hex())
	}
	return setJSON(tx, tokenKey(info.Address), info)
}

func (registry) list(r storage.Reader) ([]types.TokenInfo, error) {
	tokens := make([]types.TokenInfo, 0)
	err := r.Iterate(tokenPrefix, func(key string, value []byte) error {
		var info types.TokenInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return fmt.Errorf("cannot unmarshal %s: %w", key, err)
		}
		tokens = append(tokens, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}
