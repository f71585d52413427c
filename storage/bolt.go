package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var bridgeBucket = []byte("Bridge")

// Bolt persists the key space in a single bbolt bucket and uses bbolt's own
// transactions for Update.
type Bolt struct {
	DB *bbolt.DB
}

func OpenBolt(filePath string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0770); err != nil {
		return nil, fmt.Errorf("failed to create directory for bridge database: %w", err)
	}

	db, err := bbolt.Open(filePath, 0660, nil)
	if err != nil {
		return nil, fmt.Errorf("could not open db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bridgeBucket); err != nil {
			return fmt.Errorf("could not bucket: %s, err: %w", string(bridgeBucket), err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Bolt{DB: db}, nil
}

func (b *Bolt) Get(key string) (value []byte, err error) {
	err = b.DB.View(func(tx *bbolt.Tx) error {
		value, err = boltTx{bucket: tx.Bucket(bridgeBucket)}.Get(key)
		return err
	})
	return value, err
}

func (b *Bolt) Iterate(prefix string, fn func(key string, value []byte) error) error {
	return b.Seek(prefix, prefix, fn)
}

func (b *Bolt) Seek(prefix, start string, fn func(key string, value []byte) error) error {
	return b.DB.View(func(tx *bbolt.Tx) error {
		return boltTx{bucket: tx.Bucket(bridgeBucket)}.Seek(prefix, start, fn)
	})
}

func (b *Bolt) Update(fn func(tx Tx) error) error {
	return b.DB.Update(func(tx *bbolt.Tx) error {
		return fn(boltTx{bucket: tx.Bucket(bridgeBucket)})
	})
}

func (b *Bolt) Close() error {
	return b.DB.Close()
}

type boltTx struct {
	bucket *bbolt.Bucket
}

func (t boltTx) Get(key string) ([]byte, error) {
	v := t.bucket.Get([]byte(key))
	if v == nil {
		return nil, ErrNotFound
	}
	// bbolt memory is only valid for the life of the transaction
	return clone(v), nil
}

func (t boltTx) Set(key string, value []byte) error {
	return t.bucket.Put([]byte(key), value)
}

func (t boltTx) Iterate(prefix string, fn func(key string, value []byte) error) error {
	return t.Seek(prefix, prefix, fn)
}

func (t boltTx) Seek(prefix, start string, fn func(key string, value []byte) error) error {
	p := []byte(prefix)
	cursor := t.bucket.Cursor()

	for k, v := cursor.Seek([]byte(seekStart(prefix, start))); k != nil && bytes.HasPrefix(k, p); k, v = cursor.Next() {
		if err := fn(string(k), clone(v)); err != nil {
			if errors.Is(err, ErrStopIteration) {
				return nil
			}
			return err
		}
	}
	return nil
}
