package storage

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// Memory keeps everything in process. It loses state on restart and is
// meant for tests and local runs.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: map[string][]byte{}}
}

func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return memReader(m.data).Get(key)
}

func (m *Memory) Iterate(prefix string, fn func(key string, value []byte) error) error {
	return m.Seek(prefix, prefix, fn)
}

func (m *Memory) Seek(prefix, start string, fn func(key string, value []byte) error) error {
	start = seekStart(prefix, start)

	m.mu.RLock()
	snapshot := map[string][]byte{}
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) && k >= start {
			snapshot[k] = v
		}
	}
	m.mu.RUnlock()

	return memReader(snapshot).Seek(prefix, start, fn)
}

func (m *Memory) Update(fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := newOverlay(memReader(m.data))
	if err := fn(tx); err != nil {
		return err
	}
	for k, v := range tx.writes {
		m.data[k] = v
	}
	return nil
}

func (m *Memory) Close() error { return nil }

// memReader reads a map without locking; callers hold the lock.
type memReader map[string][]byte

func (r memReader) Get(key string) ([]byte, error) {
	v, ok := r[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v), nil
}

func (r memReader) Iterate(prefix string, fn func(key string, value []byte) error) error {
	return r.Seek(prefix, prefix, fn)
}

func (r memReader) Seek(prefix, start string, fn func(key string, value []byte) error) error {
	start = seekStart(prefix, start)

	keys := make([]string, 0, len(r))
	for k := range r {
		if strings.HasPrefix(k, prefix) && k >= start {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := fn(k, clone(r[k])); err != nil {
			if errors.Is(err, ErrStopIteration) {
				return nil
			}
			return err
		}
	}
	return nil
}
