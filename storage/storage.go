// Package storage is the persistence layer behind the bridge state: a flat
// key space with atomic multi-key updates and ordered prefix iteration.
package storage

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound = errors.New("key not found")
	// ErrStopIteration ends Iterate early without it reporting an error.
	ErrStopIteration = errors.New("stop iteration")
)

type Reader interface {
	Get(key string) ([]byte, error)
	// Iterate visits the keys starting with prefix in ascending byte order.
	Iterate(prefix string, fn func(key string, value []byte) error) error
	// Seek is Iterate beginning at the first key not below start.
	Seek(prefix, start string, fn func(key string, value []byte) error) error
}

type Tx interface {
	Reader
	Set(key string, value []byte) error
}

type Store interface {
	Reader
	// Update runs fn in a transaction. Writes become visible all together
	// when fn returns nil and are dropped when it returns an error.
	Update(fn func(tx Tx) error) error
	Close() error
}

// overlay buffers the writes of a transaction on top of a reader. It backs
// the stores without native transactions.
type overlay struct {
	base   Reader
	writes map[string][]byte
}

func newOverlay(base Reader) *overlay {
	return &overlay{base: base, writes: map[string][]byte{}}
}

func (o *overlay) Get(key string) ([]byte, error) {
	if v, ok := o.writes[key]; ok {
		return clone(v), nil
	}
	return o.base.Get(key)
}

func (o *overlay) Set(key string, value []byte) error {
	o.writes[key] = clone(value)
	return nil
}

func (o *overlay) Iterate(prefix string, fn func(key string, value []byte) error) error {
	return o.Seek(prefix, prefix, fn)
}

func (o *overlay) Seek(prefix, start string, fn func(key string, value []byte) error) error {
	start = seekStart(prefix, start)

	merged := map[string][]byte{}
	err := o.base.Seek(prefix, start, func(key string, value []byte) error {
		merged[key] = value
		return nil
	})
	if err != nil {
		return err
	}
	for k, v := range o.writes {
		if strings.HasPrefix(k, prefix) && k >= start {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := fn(k, clone(merged[k])); err != nil {
			if errors.Is(err, ErrStopIteration) {
				return nil
			}
			return err
		}
	}
	return nil
}

// sortedWrites returns the buffered keys in a stable order for committing.
func (o *overlay) sortedWrites() []string {
	keys := make([]string, 0, len(o.writes))
	for k := range o.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// seekStart is the first key a seek visits: start, raised to prefix.
func seekStart(prefix, start string) string {
	if start < prefix {
		return prefix
	}
	return start
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}
