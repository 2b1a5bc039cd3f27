package kv

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// exerciseStore runs the shared Store contract against any implementation.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()

	ctx := context.Background()

	_, ok, err := store.Get(ctx, "prefs.missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "prefs.studyList", []byte("first")))
	require.NoError(t, store.Set(ctx, "prefs.studyList", []byte("second")))

	value, ok, err := store.Get(ctx, "prefs.studyList")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("second"), value)

	require.NoError(t, store.Set(ctx, "prefs.empty", nil))

	value, ok, err = store.Get(ctx, "prefs.empty")
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, value)
}

// TestMemoryStore covers the Store contract and value isolation.
func TestMemoryStore(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	exerciseStore(t, store)

	original := []byte("abc")
	require.NoError(t, store.Set(context.Background(), "k", original))

	original[0] = 'x'

	got, _, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), got)
	require.ElementsMatch(t, []string{"prefs.studyList", "prefs.empty", "k"}, store.Keys())

	var nilStore *MemoryStore
	_, _, err = nilStore.Get(context.Background(), "k")
	require.ErrorIs(t, err, ErrNotConfigured)
	require.ErrorIs(t, nilStore.Set(context.Background(), "k", nil), ErrNotConfigured)
	require.Nil(t, nilStore.Keys())
}

// TestMemoryStore_ZeroValue verifies a declared MemoryStore works without NewMemoryStore.
func TestMemoryStore_ZeroValue(t *testing.T) {
	t.Parallel()

	var store MemoryStore
	require.Empty(t, store.Keys())

	exerciseStore(t, &store)
	require.ElementsMatch(t, []string{"prefs.studyList", "prefs.empty"}, store.Keys())
}

// TestSQLiteStore covers the Store contract and persistence across reopen.
func TestSQLiteStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prefs.db")

	store, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)

	exerciseStore(t, store)
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = reopened.Close()
	})

	value, ok, err := reopened.Get(context.Background(), "prefs.studyList")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("second"), value)
}

// TestSQLiteStore_PathWithURIDelimiters verifies '?' and '#' in the path are part of the file name.
func TestSQLiteStore_PathWithURIDelimiters(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "what?#now 100%")
	require.NoError(t, os.Mkdir(dir, 0o700))

	path := filepath.Join(dir, "prefs.db")

	dsn, err := sqliteDSN(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dsn, "file:///"), dsn)
	require.Contains(t, dsn, "what%3F%23now%20100%25")
	require.Equal(t, 1, strings.Count(dsn, "?"), dsn)

	store, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), "prefs.studyList", []byte("kept")))
	require.NoError(t, store.Close())

	_, err = os.Stat(path)
	require.NoError(t, err, "database file is created at the literal path")

	reopened, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = reopened.Close()
	})

	value, ok, err := reopened.Get(context.Background(), "prefs.studyList")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("kept"), value)
}

// TestOpenSQLite_RequiresPath verifies an empty path is rejected.
func TestOpenSQLite_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := OpenSQLite(context.Background(), "  ")
	require.Error(t, err)

	var closed *SQLiteStore
	require.NoError(t, closed.Close())
	require.ErrorIs(t, closed.Set(context.Background(), "k", nil), ErrNotConfigured)
}
