package studies

import (
	"context"
	"sync"

	"github.com/oshokin/study-store/internal/codec"
	"github.com/oshokin/study-store/internal/domain/study"
	"github.com/oshokin/study-store/internal/logger"
	"github.com/oshokin/study-store/internal/notify"
)

// Store saves studies through a Backend and reads them back.
// It is safe for concurrent use, although notifications arrive one at a time
// from a notify.Bus.
type Store struct {
	// name labels log lines ("file" or "kv").
	name string
	// format encodes records for the backend.
	format codec.Format

	// mu protects the fields below.
	mu sync.Mutex
	// backend is nil until the store is configured.
	backend        Backend
	lastSaveFailed bool
	subscription   *notify.Subscription
}

// Option customises a Store at construction time.
type Option func(*Store)

// WithNotifier subscribes the store to n as soon as it is built.
// The subscription lasts until Close.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) {
		s.Attach(n)
	}
}

func newStore(name string, format codec.Format) *Store {
	return &Store{
		name:   name,
		format: format,
	}
}

func (s *Store) apply(options []Option) {
	for _, option := range options {
		option(s)
	}
}

// Attach subscribes the store to change notifications from n, replacing any previous subscription.
func (s *Store) Attach(n notify.Notifier) {
	if n == nil {
		return
	}

	subscription := n.Subscribe(s)

	s.mu.Lock()
	previous := s.subscription
	s.subscription = subscription
	s.mu.Unlock()

	previous.Close()
}

// Close cancels the change subscription. The store stays usable for direct calls.
func (s *Store) Close() {
	s.mu.Lock()
	subscription := s.subscription
	s.subscription = nil
	s.mu.Unlock()

	subscription.Close()
}

// Configured reports whether the store has a backend to talk to.
func (s *Store) Configured() bool {
	return s.currentBackend() != nil
}

// LastSaveFailed reports whether the most recent save attempt failed.
func (s *Store) LastSaveFailed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSaveFailed
}

// HandleChange saves the study carried by a change notification.
// Payloads that are not a complete study.ChangeEvent are ignored before any storage
// is prepared: they neither create the save directory nor touch LastSaveFailed.
func (s *Store) HandleChange(ctx context.Context, n notify.Notification) {
	var event study.ChangeEvent

	switch payload := n.Payload.(type) {
	case study.ChangeEvent:
		event = payload
	case *study.ChangeEvent:
		if payload == nil {
			return
		}

		event = *payload
	default:
		logger.DebugKV(ctx, "Ignoring unexpected change payload", "store", s.name, "payload", payload)

		return
	}

	changed, ok := event.Study()
	if !ok {
		logger.DebugKV(ctx, "Ignoring incomplete change event", "store", s.name)

		return
	}

	s.Save(ctx, changed)
}

// Save encodes the study and writes it under its storage key.
// Unconfigured stores do nothing.
func (s *Store) Save(ctx context.Context, changed study.Study) {
	backend := s.currentBackend()
	if backend == nil {
		logger.DebugKV(ctx, "Store is not configured, skipping save", "store", s.name)

		return
	}

	key := changed.Key()

	if preparer, ok := backend.(Preparer); ok {
		if err := preparer.Prepare(ctx); err != nil {
			logger.ErrorKV(ctx, "Failed to prepare study storage", "store", s.name, "error", err)
			s.setLastSaveFailed(true)

			return
		}
	}

	data, err := s.format.Marshal(changed)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode study", "store", s.name, "study", changed.Description, "error", err)
		s.setLastSaveFailed(true)

		return
	}

	if err = backend.Write(ctx, key, data); err != nil {
		logger.ErrorKV(ctx, "Failed to write study", "store", s.name, "key", key, "error", err)
		s.setLastSaveFailed(true)

		return
	}

	s.setLastSaveFailed(false)
	logger.DebugKV(ctx, "Study saved", "store", s.name, "key", key, "options", changed.Options.Len())
}

// ReconstituteStudies decodes every persisted study.
// It returns false when the store is unconfigured or its listing cannot be read;
// records that fail to read or decode are skipped.
func (s *Store) ReconstituteStudies(ctx context.Context) ([]study.Study, bool) {
	backend := s.currentBackend()
	if backend == nil {
		logger.DebugKV(ctx, "Store is not configured, nothing to reconstitute", "store", s.name)

		return nil, false
	}

	keys, err := backend.List(ctx)
	if err != nil {
		logger.WarnKV(ctx, "Failed to list studies", "store", s.name, "error", err)

		return nil, false
	}

	result := make([]study.Study, 0, len(keys))

	for _, key := range keys {
		data, err := backend.Read(ctx, key)
		if err != nil {
			logger.DebugKV(ctx, "Skipping unreadable study", "store", s.name, "key", key, "error", err)

			continue
		}

		decoded, err := s.format.Unmarshal(data)
		if err != nil {
			logger.DebugKV(ctx, "Skipping undecodable study", "store", s.name, "key", key, "error", err)

			continue
		}

		result = append(result, decoded)
	}

	return result, true
}

func (s *Store) currentBackend() Backend {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.backend
}

func (s *Store) setBackend(backend Backend) {
	s.mu.Lock()
	s.backend = backend
	s.mu.Unlock()
}

func (s *Store) setLastSaveFailed(failed bool) {
	s.mu.Lock()
	s.lastSaveFailed = failed
	s.mu.Unlock()
}
