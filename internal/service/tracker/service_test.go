package tracker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/oshokin/study-store/internal/codec"
	"github.com/oshokin/study-store/internal/config"
	"github.com/oshokin/study-store/internal/domain/study"
	"github.com/oshokin/study-store/internal/repository/studies"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()

	svc, err := Open(context.Background(), cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, svc.Close())
	})

	return svc
}

// TestService_RecordAndList runs the coin-flip example through every backend.
func TestService_RecordAndList(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configs := map[string]*config.Config{
		"file":   {Backend: config.BackendFile, Directory: filepath.Join(dir, "files")},
		"sqlite": {Backend: config.BackendSQLite, Database: filepath.Join(dir, "prefs.db")},
		"memory": {Backend: config.BackendMemory},
	}

	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			svc := openService(t, cfg)

			require.NoError(t, svc.Record(ctx, study.New(
				"coin-flip",
				study.Option{Description: "heads", TimesTaken: 3, TimesEncountered: 5},
				study.Option{Description: "tails", TimesTaken: 2, TimesEncountered: 5},
			)))

			found, err := svc.Find(ctx, "coin-flip")
			require.NoError(t, err)

			heads, ok := found.Options.Get("heads")
			require.True(t, ok)
			require.Equal(t, 3, heads.TimesTaken)
			require.Equal(t, 5, heads.TimesEncountered)

			all, err := svc.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)

			_, err = svc.Find(ctx, "dice-roll")
			require.ErrorIs(t, err, studies.ErrNotFound)
		})
	}
}

// TestService_SQLitePersistsAcrossOpen verifies a reopened sqlite service sees earlier studies.
func TestService_SQLitePersistsAcrossOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := &config.Config{Backend: config.BackendSQLite, Database: filepath.Join(t.TempDir(), "prefs.db")}

	first, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, first.Record(ctx, study.New("coin-flip", study.Option{Description: "heads"})))
	require.NoError(t, first.Close())

	second := openService(t, cfg)

	all, err := second.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "coin-flip", all[0].Description)
}

// TestService_Observe verifies counters accumulate across decisions.
func TestService_Observe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := openService(t, &config.Config{Backend: config.BackendFile, Directory: t.TempDir()})

	_, err := svc.Observe(ctx, "coin-flip", "heads", "heads", "tails")
	require.NoError(t, err)

	_, err = svc.Observe(ctx, "coin-flip", "tails", "heads")
	require.NoError(t, err)

	updated, err := svc.Observe(ctx, "coin-flip", "", "heads", "tails")
	require.NoError(t, err)

	heads, _ := updated.Options.Get("heads")
	tails, _ := updated.Options.Get("tails")

	require.Equal(t, study.Option{Description: "heads", TimesTaken: 1, TimesEncountered: 3}, heads)
	require.Equal(t, study.Option{Description: "tails", TimesTaken: 1, TimesEncountered: 3}, tails)

	stored, err := svc.Find(ctx, "coin-flip")
	require.NoError(t, err)
	require.Equal(t, updated.Options.Options(), stored.Options.Options())

	_, err = svc.Observe(ctx, "", "heads")
	require.ErrorIs(t, err, ErrEmptyDescription)

	_, err = svc.Observe(ctx, "coin-flip", "heads", "")
	require.ErrorIs(t, err, ErrEmptyDescription)
}

// TestService_RecordReportsFailedSave verifies the file store flag surfaces as ErrSaveFailed.
func TestService_RecordReportsFailedSave(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, config.DefaultFilePermissions))

	svc := openService(t, &config.Config{Backend: config.BackendFile, Directory: filepath.Join(blocker, "studies")})

	err := svc.Record(context.Background(), study.New("coin-flip"))
	require.ErrorIs(t, err, ErrSaveFailed)

	require.ErrorIs(t, svc.Record(context.Background(), study.Study{}), ErrEmptyDescription)

	_, err = svc.List(context.Background())
	require.ErrorIs(t, err, ErrNothingStored)
}

// TestService_RecordRejectsUnrepresentable verifies studies that would not read back are refused
// before anything is written.
func TestService_RecordRejectsUnrepresentable(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "studies")
	svc := openService(t, &config.Config{Backend: config.BackendFile, Directory: dir})
	ctx := context.Background()

	err := svc.Record(ctx, study.New("bad\xff"))
	require.ErrorIs(t, err, codec.ErrUnrepresentable)

	err = svc.Record(ctx, study.New("coin-flip", study.Option{Description: "heads", TimesTaken: 1 << 53}))
	require.ErrorIs(t, err, codec.ErrUnrepresentable)

	_, err = os.Stat(dir)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestOpen_Errors covers invalid configuration and unusable databases.
func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), &config.Config{Backend: "redis"})
	require.Error(t, err)

	_, err = Open(context.Background(), &config.Config{
		Backend:  config.BackendSQLite,
		Database: filepath.Join(t.TempDir(), "missing", "dir", "prefs.db"),
	})
	require.Error(t, err)
}

// TestService_Watch verifies the callback fires at start and after a study changes.
func TestService_Watch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := openService(t, &config.Config{Backend: config.BackendFile, Directory: filepath.Join(t.TempDir(), "watched")})

	updates := make(chan []study.Study, 16)
	done := make(chan error, 1)

	go func() {
		done <- svc.Watch(ctx, 20*time.Millisecond, func(found []study.Study) {
			select {
			case updates <- found:
			default:
			}
		})
	}()

	select {
	case initial := <-updates:
		require.Empty(t, initial)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial update")
	}

	require.NoError(t, svc.Record(context.Background(), study.New("coin-flip", study.Option{Description: "heads"})))

	deadline := time.After(5 * time.Second)

	for found := false; !found; {
		select {
		case update := <-updates:
			found = len(update) == 1 && update[0].Description == "coin-flip"
		case <-deadline:
			t.Fatal("change was not observed")
		}
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

// TestService_WatchUnsupported verifies key-value backends refuse to watch.
func TestService_WatchUnsupported(t *testing.T) {
	t.Parallel()

	svc := openService(t, &config.Config{Backend: config.BackendMemory})

	err := svc.Watch(context.Background(), 0, func([]study.Study) {})
	require.True(t, errors.Is(err, ErrWatchUnsupported))
}
