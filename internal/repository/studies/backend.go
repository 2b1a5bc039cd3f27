package studies

import (
	"context"
	"errors"
)

// ErrNotFound is returned by backends when a key has no stored value.
var ErrNotFound = errors.New("study record not found")

// Backend is the storage capability set a Store needs.
type Backend interface {
	// List returns the storage keys of every persisted study.
	List(ctx context.Context) ([]string, error)
	// Read returns the encoded record stored under key.
	Read(ctx context.Context, key string) ([]byte, error)
	// Write stores an encoded record under key, replacing any previous one.
	Write(ctx context.Context, key string, data []byte) error
}

// Preparer is implemented by backends that need setup before every save.
// A failed Prepare aborts the save and marks it failed.
type Preparer interface {
	Prepare(ctx context.Context) error
}
