package tracker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/oshokin/study-store/internal/config"
	"github.com/oshokin/study-store/internal/domain/study"
	"github.com/oshokin/study-store/internal/logger"
)

// DefaultWatchDebounce groups bursts of file events into one reload.
const DefaultWatchDebounce = 200 * time.Millisecond

// Watch calls fn with the reconstituted studies once at start and again after
// study files in the save directory change. It blocks until ctx is done.
func (s *Service) Watch(ctx context.Context, debounce time.Duration, fn func([]study.Study)) error {
	if s.directory == "" {
		return ErrWatchUnsupported
	}

	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	// The directory must exist before it can be watched.
	if err := os.MkdirAll(s.directory, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create save directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	defer func() {
		_ = watcher.Close()
	}()

	if err = watcher.Add(s.directory); err != nil {
		return fmt.Errorf("watch %s: %w", s.directory, err)
	}

	logger.InfoKV(ctx, "Watching study directory", "directory", s.directory)

	emit := func() {
		found, ok := s.store.ReconstituteStudies(ctx)
		if ok {
			fn(found)
		}
	}

	emit()

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !strings.HasPrefix(filepath.Base(event.Name), study.KeyPrefix) {
				continue
			}

			logger.DebugKV(ctx, "Study file changed", "file", event.Name, "op", event.Op.String())

			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}

			reload = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.WarnKV(ctx, "Watcher error", "error", err)
		case <-reload:
			reload = nil

			emit()
		}
	}
}
