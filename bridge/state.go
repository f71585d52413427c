package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"gotokenbridge/storage"
)

func getUint(r storage.Reader, key string) (uint64, error) {
	raw, err := r.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt counter %s: %w", key, err)
	}
	return v, nil
}

func setUint(tx storage.Tx, key string, v uint64) error {
	return tx.Set(key, []byte(strconv.FormatUint(v, 10)))
}

// getJSON decodes key into out, reporting false when the key is absent.
func getJSON(r storage.Reader, key string, out interface{}) (bool, error) {
	raw, err := r.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("cannot unmarshal %s: %w", key, err)
	}
	return true, nil
}

func setJSON(tx storage.Tx, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cannot marshal %s to JSON: %w", key, err)
	}
	return tx.Set(key, raw)
}
