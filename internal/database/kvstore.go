package database

import (
	"context"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
)

var kvBucket = []byte("gradebook")

// KVStore is the key-value shim that holds serialized databases for the
// browser target.
type KVStore struct {
	db *bolt.DB
}

func OpenKVStore(path string) (*KVStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB database: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(kvBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create BoltDB bucket: %w", err)
	}
	return &KVStore{db: db}, nil
}

// Get returns a copy of the value under key, or nil when it is absent.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(kvBucket).Get([]byte(key))
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}

func (s *KVStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(kvBucket).Put([]byte(key), value); err != nil {
			return fmt.Errorf("failed to put %s in BoltDB: %w", key, err)
		}
		return nil
	})
}

func (s *KVStore) Close() error { return s.db.Close() }
