package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidate checks defaults and backend/namespace validation.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Defaults.
	settings := new(Config)

	require.NoError(t, Validate(settings))
	require.Equal(t, BackendFile, settings.Backend)
	require.Equal(t, DefaultDirectory, settings.Directory)
	require.Equal(t, DefaultDatabase, settings.Database)
	require.Equal(t, DefaultNamespace, settings.Namespace)
	require.Equal(t, "info", settings.LogLevel)

	// Backend is normalised.
	settings = &Config{Backend: " SQLite "}

	require.NoError(t, Validate(settings))
	require.Equal(t, BackendSQLite, settings.Backend)

	// Unknown backend.
	settings = &Config{Backend: "redis"}

	require.ErrorIs(t, Validate(settings), errUnknownBackend)

	// Namespace ending with the separator.
	settings = &Config{Namespace: "prefs."}

	require.ErrorIs(t, Validate(settings), errNamespaceDot)

	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := &Config{
		Backend:   BackendSQLite,
		Database:  filepath.Join(dir, "prefs.db"),
		Namespace: "com.example.studies",
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings.Backend, loaded.Backend)
	require.Equal(t, settings.Database, loaded.Database)
	require.Equal(t, settings.Namespace, loaded.Namespace)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)

	require.Error(t, Save(path, nil))
}

// TestLoad_MissingExplicitFile fails when an explicitly named file does not exist.
func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

// TestLoad_InvalidYAML reports malformed settings.
func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: [file"), DefaultFilePermissions))

	_, err := Load(path)
	require.Error(t, err)
}

// TestLoad_EnvOverrides verifies STUDY_STORE_* variables win over the file.
// Not parallel: it mutates the process environment.
func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, Save(path, &Config{Backend: BackendFile, Directory: "from-file"}))

	t.Setenv("STUDY_STORE_BACKEND", "memory")
	t.Setenv("STUDY_STORE_NAMESPACE", "from-env")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, BackendMemory, loaded.Backend)
	require.Equal(t, "from-env", loaded.Namespace)
	require.Equal(t, "from-file", loaded.Directory)
}
