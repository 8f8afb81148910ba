package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var tagsBucket = []byte("tags")

// Bolt stores values in one bbolt bucket.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (and creates if needed) the bolt file at path.
func OpenBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, wrap("open", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(tagsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, wrap("create bucket", err)
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) GetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap("get all", err)
	}
	out := make(map[string]json.RawMessage)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(tagsBucket)
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", tagsBucket)
		}
		return bucket.ForEach(func(k, v []byte) error {
			out[string(k)] = append(json.RawMessage(nil), v...)
			return nil
		})
	})
	if err != nil {
		return nil, wrap("get all", err)
	}
	return out, nil
}

func (b *Bolt) Get(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap("get", err)
	}
	out := make(map[string]json.RawMessage)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(tagsBucket)
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", tagsBucket)
		}
		for _, k := range keys {
			// values returned by Get are only valid inside the transaction
			if v := bucket.Get([]byte(k)); v != nil {
				out[k] = append(json.RawMessage(nil), v...)
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrap("get", err)
	}
	return out, nil
}

func (b *Bolt) Set(ctx context.Context, items map[string]json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return wrap("set", err)
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(tagsBucket)
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", tagsBucket)
		}
		for k, v := range items {
			if err := bucket.Put([]byte(k), v); err != nil {
				return fmt.Errorf("put %s: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		return wrap("set", err)
	}
	return nil
}

func (b *Bolt) Close() error {
	return b.db.Close()
}
