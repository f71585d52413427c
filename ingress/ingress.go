// Package ingress keeps track of token transfers into custody seen on
// chain, so each one is delivered to the bridge at most once.
package ingress

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gotokenbridge/storage"
	"gotokenbridge/types"
)

const (
	recordPrefix = "ingress:"
	cursorPrefix = "scanner:block:"
)

type Store struct {
	store storage.Store
}

func NewStore(store storage.Store) *Store {
	return &Store{store: store}
}

func recordKey(txHash string, logIndex uint) string {
	return fmt.Sprintf("%s%s:%d", recordPrefix, strings.ToLower(txHash), logIndex)
}

// Get returns the record of a transfer, nil when it was never seen.
func (s *Store) Get(txHash string, logIndex uint) (*types.Ingress, error) {
	raw, err := s.store.Get(recordKey(txHash, logIndex))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec types.Ingress
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ErrRecorded is returned by Receipt when the transfer already has a record.
var ErrRecorded = errors.New("transfer already recorded")

// Put stores rec unless a record for the same transfer exists already.
// It reports whether rec was written.
func (s *Store) Put(rec *types.Ingress) (bool, error) {
	written := false
	err := s.store.Update(func(tx storage.Tx) error {
		var err error
		written, err = PutTx(tx, rec)
		return err
	})
	return written, err
}

// PutTx is Put staged in tx.
func PutTx(tx storage.Tx, rec *types.Ingress) (bool, error) {
	if rec.Status == "" {
		return false, errors.New("ingress record cannot have empty status")
	}

	key := recordKey(rec.TxHash, rec.LogIndex)
	_, err := tx.Get(key)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("cannot marshal ingress record to JSON: %w", err)
	}
	return true, tx.Set(key, raw)
}

// Receipt returns a staging function that marks rec delivered as swap-out
// swapOutID. It fails with ErrRecorded when the transfer has a record, so
// the enclosing transaction is dropped.
func Receipt(rec *types.Ingress) func(tx storage.Tx, swapOutID uint64) error {
	return func(tx storage.Tx, swapOutID uint64) error {
		delivered := *rec
		delivered.Status = types.IngressDelivered
		delivered.SwapOutID = swapOutID

		written, err := PutTx(tx, &delivered)
		if err != nil {
			return err
		}
		if !written {
			return fmt.Errorf("%w: %s:%d", ErrRecorded, rec.TxHash, rec.LogIndex)
		}
		return nil
	}
}

// List returns the records with status, every record when status is empty.
func (s *Store) List(status string) ([]*types.Ingress, error) {
	recs := make([]*types.Ingress, 0)
	err := s.store.Iterate(recordPrefix, func(key string, value []byte) error {
		var rec types.Ingress
		if err := json.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("cannot unmarshal %s: %w", key, err)
		}
		if status == "" || rec.Status == status {
			recs = append(recs, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// ScannedBlock returns the last block fully scanned on chainID and whether
// a scan ever completed.
func (s *Store) ScannedBlock(chainID int64) (uint64, bool, error) {
	raw, err := s.store.Get(cursorPrefix + strconv.FormatInt(chainID, 10))
	if errors.Is(err, storage.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	block, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt scanner cursor for chain %d: %w", chainID, err)
	}
	return block, true, nil
}

func (s *Store) SetScannedBlock(chainID int64, block uint64) error {
	return s.store.Update(func(tx storage.Tx) error {
		return tx.Set(cursorPrefix+strconv.FormatInt(chainID, 10), []byte(strconv.FormatUint(block, 10)))
	})
}
