package kv

import (
	"context"
	"errors"
	"sync"
)

// ErrNotConfigured is returned by methods called on a nil or closed store.
var ErrNotConfigured = errors.New("storage is not configured")

// Store reads and writes opaque values by key.
type Store interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
}

// MemoryStore is an in-process Store. Values are copied on the way in and out.
// The zero value is ready to use.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string][]byte{}}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, ErrNotConfigured
	}

	s.mu.RLock()
	value, ok := s.values[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	return append([]byte(nil), value...), true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	if s == nil {
		return ErrNotConfigured
	}

	s.mu.Lock()
	if s.values == nil {
		s.values = map[string][]byte{}
	}

	s.values[key] = append([]byte(nil), value...)
	s.mu.Unlock()

	return nil
}

// Keys returns every stored key in no particular order.
func (s *MemoryStore) Keys() []string {
	if s == nil {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}

	return keys
}
