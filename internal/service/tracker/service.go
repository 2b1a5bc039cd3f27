package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/oshokin/study-store/internal/codec"
	"github.com/oshokin/study-store/internal/config"
	"github.com/oshokin/study-store/internal/domain/study"
	"github.com/oshokin/study-store/internal/kv"
	"github.com/oshokin/study-store/internal/logger"
	"github.com/oshokin/study-store/internal/notify"
	"github.com/oshokin/study-store/internal/repository/studies"
)

var (
	// ErrSaveFailed is returned when the file store reports a failed save.
	ErrSaveFailed = errors.New("study was not saved")
	// ErrNothingStored is returned when the store has nothing it can list.
	ErrNothingStored = errors.New("no readable study storage")
	// ErrWatchUnsupported is returned by Watch for backends other than file.
	ErrWatchUnsupported = errors.New("watch is only supported by the file backend")
	// ErrEmptyDescription is returned for studies or options without a description.
	ErrEmptyDescription = errors.New("description must not be empty")
	// ErrEphemeralBackend is returned by the Run* commands for the memory backend,
	// which forgets everything when the process exits.
	ErrEphemeralBackend = errors.New("memory backend does not persist between commands")
)

// persister is the part of a study store the service relies on.
type persister interface {
	ReconstituteStudies(ctx context.Context) ([]study.Study, bool)
	LastSaveFailed() bool
	Close()
}

// Service records study changes through a bus and reads them back from the store.
type Service struct {
	bus       *notify.Bus
	store     persister
	directory string
	closers   []io.Closer

	// mu serialises read-merge-publish sequences in Observe.
	mu sync.Mutex
}

// Open builds the store selected by cfg and attaches it to a fresh bus.
func Open(ctx context.Context, cfg *config.Config) (*Service, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	s := &Service{
		bus: notify.NewBus(),
	}

	switch cfg.Backend {
	case config.BackendFile:
		s.store = studies.NewFileStore(cfg.Directory, studies.WithNotifier(s.bus))
		s.directory = cfg.Directory
	case config.BackendSQLite:
		db, err := kv.OpenSQLite(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open preference store: %w", err)
		}

		s.closers = append(s.closers, db)
		s.store = studies.NewKeyValueStore(db, cfg.Namespace, studies.WithNotifier(s.bus))
	case config.BackendMemory:
		s.store = studies.NewKeyValueStore(kv.NewMemoryStore(), cfg.Namespace, studies.WithNotifier(s.bus))
	}

	logger.DebugKV(ctx, "Study store opened", "backend", cfg.Backend)

	return s, nil
}

// Close detaches the store from the bus and releases backend resources.
func (s *Service) Close() error {
	s.store.Close()

	var errs []error
	for _, closer := range s.closers {
		errs = append(errs, closer.Close())
	}

	return errors.Join(errs...)
}

// Record publishes a change event carrying the whole study.
// Studies the store could not read back unchanged are rejected with codec.ErrUnrepresentable.
func (s *Service) Record(ctx context.Context, changed study.Study) error {
	if changed.Description == "" {
		return ErrEmptyDescription
	}

	if err := codec.Check(changed); err != nil {
		return fmt.Errorf("record study: %w", err)
	}

	s.bus.Publish(ctx, study.NewChangeEvent(changed))

	if s.store.LastSaveFailed() {
		return fmt.Errorf("record %q: %w", changed.Description, ErrSaveFailed)
	}

	logger.InfoKV(ctx, "Study recorded", "study", changed.Description, "options", changed.Options.Len())

	return nil
}

// Observe counts one decision: every offered option is encountered once more and
// the taken option, when not empty, is taken once more. The taken option counts as offered.
// It returns the study as recorded.
func (s *Service) Observe(ctx context.Context, description, taken string, offered ...string) (study.Study, error) {
	if description == "" {
		return study.Study{}, ErrEmptyDescription
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Find(ctx, description)
	if err != nil {
		current = study.New(description)
	}

	names := slices.Clone(offered)
	if taken != "" {
		names = append(names, taken)
	}

	seen := make(map[string]struct{}, len(names))

	for _, name := range names {
		if name == "" {
			return study.Study{}, ErrEmptyDescription
		}

		if _, dup := seen[name]; dup {
			continue
		}

		seen[name] = struct{}{}

		option, _ := current.Options.Get(name)
		option.Description = name
		option.TimesEncountered++

		if name == taken {
			option.TimesTaken++
		}

		current.Options.Put(option)
	}

	if err = s.Record(ctx, current); err != nil {
		return study.Study{}, err
	}

	return current, nil
}

// List returns every study the store can reconstitute.
func (s *Service) List(ctx context.Context) ([]study.Study, error) {
	result, ok := s.store.ReconstituteStudies(ctx)
	if !ok {
		return nil, ErrNothingStored
	}

	return result, nil
}

// Find returns the stored study with the given description.
func (s *Service) Find(ctx context.Context, description string) (study.Study, error) {
	all, err := s.List(ctx)
	if err != nil {
		return study.Study{}, err
	}

	for _, candidate := range all {
		if candidate.Description == description {
			return candidate, nil
		}
	}

	return study.Study{}, fmt.Errorf("study %q: %w", description, studies.ErrNotFound)
}
