package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
)

// ErrBackend wraps every failure reported by a backend.
var ErrBackend = errors.New("kv backend error")

// Backend is an asynchronous-in-spirit key/value store holding JSON values.
// There are no transactions across calls; each Set is applied atomically.
type Backend interface {
	// GetAll returns every stored key.
	GetAll(ctx context.Context) (map[string]json.RawMessage, error)
	// Get returns the subset of keys that exist.
	Get(ctx context.Context, keys []string) (map[string]json.RawMessage, error)
	// Set writes all items, replacing whole values.
	Set(ctx context.Context, items map[string]json.RawMessage) error
	Close() error
}

// Kind names a backend implementation.
type Kind string

const (
	KindSQLite Kind = "sqlite"
	KindBolt   Kind = "bolt"
	KindMemory Kind = "memory"
)

// Open creates the backend of the given kind under dataDir.
func Open(kind Kind, dataDir string) (Backend, error) {
	switch kind {
	case KindSQLite, "":
		return OpenSQLite(filepath.Join(dataDir, "tags.db"))
	case KindBolt:
		return OpenBolt(filepath.Join(dataDir, "tags.bolt"))
	case KindMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", kind)
	}
}

func wrap(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrBackend, op, err)
}
