package studies

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/oshokin/study-store/internal/codec"
	"github.com/oshokin/study-store/internal/kv"
	"github.com/oshokin/study-store/internal/logger"
)

// IndexSuffix names the index entry inside a namespace.
const IndexSuffix = "studyList"

// KeyValueStore persists studies as binary records in a namespaced key-value store.
type KeyValueStore struct {
	*Store
}

// NewKeyValueStore creates a key-value store bound to store and namespace.
// A nil store or empty namespace leaves it unconfigured until Configure is called.
func NewKeyValueStore(store kv.Store, namespace string, options ...Option) *KeyValueStore {
	s := &KeyValueStore{
		Store: newStore("kv", codec.Binary),
	}

	s.Configure(store, namespace)
	s.apply(options)

	return s
}

// Configure binds the store to a backend and namespace. Both are required.
func (s *KeyValueStore) Configure(store kv.Store, namespace string) {
	if store == nil || strings.TrimSpace(namespace) == "" {
		s.setBackend(nil)

		return
	}

	s.setBackend(&indexedBackend{
		store:     store,
		namespace: namespace,
	})
}

// Namespace returns the configured namespace, or "" when unconfigured.
func (s *KeyValueStore) Namespace() string {
	backend, ok := s.currentBackend().(*indexedBackend)
	if !ok {
		return ""
	}

	return backend.namespace
}

// IndexKey returns the full key of the namespace's index entry.
func IndexKey(namespace string) string {
	return namespace + "." + IndexSuffix
}

// EntryKey returns the full key of a study record inside a namespace.
func EntryKey(namespace, key string) string {
	return namespace + "." + key
}

// indexedBackend lists studies through an index entry instead of a scan.
type indexedBackend struct {
	store     kv.Store
	namespace string
	// mu serialises the index read-modify-write so concurrent saves cannot drop keys.
	mu sync.Mutex
}

// List returns the keys recorded in the index.
func (b *indexedBackend) List(ctx context.Context) ([]string, error) {
	data, ok, err := b.store.Get(ctx, IndexKey(b.namespace))
	if err != nil {
		return nil, fmt.Errorf("read study index: %w", err)
	}

	if !ok {
		return nil, fmt.Errorf("study index: %w", ErrNotFound)
	}

	return codec.UnmarshalKeys(data)
}

// Read implements Backend.
func (b *indexedBackend) Read(ctx context.Context, key string) ([]byte, error) {
	data, ok, err := b.store.Get(ctx, EntryKey(b.namespace, key))
	if err != nil {
		return nil, fmt.Errorf("read study entry: %w", err)
	}

	if !ok {
		return nil, ErrNotFound
	}

	return data, nil
}

// Write puts the record and makes sure the index lists its key.
// Put failures are logged and otherwise ignored, like a preference store that cannot fail.
func (b *indexedBackend) Write(ctx context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entryKey := EntryKey(b.namespace, key)
	if err := b.store.Set(ctx, entryKey, data); err != nil {
		logger.WarnKV(ctx, "Failed to put study entry", "key", entryKey, "error", err)
	}

	b.appendIndexEntry(ctx, key)

	return nil
}

// appendIndexEntry adds key to the index, starting a fresh index when the current
// one is missing or undecodable. Callers hold b.mu.
func (b *indexedBackend) appendIndexEntry(ctx context.Context, key string) {
	indexKey := IndexKey(b.namespace)

	keys := []string{key}

	data, ok, err := b.store.Get(ctx, indexKey)
	if err == nil && ok {
		existing, decodeErr := codec.UnmarshalKeys(data)
		if decodeErr == nil {
			if slices.Contains(existing, key) {
				return
			}

			keys = append(existing, key)
		} else {
			logger.WarnKV(ctx, "Replacing undecodable study index", "key", indexKey, "error", decodeErr)
		}
	}

	encoded, err := codec.MarshalKeys(keys)
	if err != nil {
		logger.WarnKV(ctx, "Failed to encode study index", "key", indexKey, "error", err)

		return
	}

	if err = b.store.Set(ctx, indexKey, encoded); err != nil {
		logger.WarnKV(ctx, "Failed to put study index", "key", indexKey, "error", err)
	}
}
