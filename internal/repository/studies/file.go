package studies

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/study-store/internal/codec"
	"github.com/oshokin/study-store/internal/config"
	"github.com/oshokin/study-store/internal/domain/study"
)

// FileStore persists each study as a JSON file named after its storage key.
type FileStore struct {
	*Store
}

// NewFileStore creates a file store saving into directory.
// An empty directory leaves the store unconfigured until Configure is called.
func NewFileStore(directory string, options ...Option) *FileStore {
	s := &FileStore{
		Store: newStore("file", codec.JSON),
	}

	s.Configure(directory)
	s.apply(options)

	return s
}

// Configure sets the save directory. An empty path unconfigures the store.
func (s *FileStore) Configure(directory string) {
	if strings.TrimSpace(directory) == "" {
		s.setBackend(nil)

		return
	}

	s.setBackend(&fileBackend{
		directory: filepath.Clean(directory),
	})
}

// Directory returns the configured save directory, or "" when unconfigured.
func (s *FileStore) Directory() string {
	backend, ok := s.currentBackend().(*fileBackend)
	if !ok {
		return ""
	}

	return backend.directory
}

// fileBackend maps storage keys to files inside one directory.
type fileBackend struct {
	directory string
}

// Prepare creates the save directory and its parents when missing.
func (b *fileBackend) Prepare(context.Context) error {
	if err := os.MkdirAll(b.directory, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create save directory: %w", err)
	}

	return nil
}

// List returns the names of directory entries that look like study files.
func (b *fileBackend) List(context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.directory)
	if err != nil {
		return nil, fmt.Errorf("read save directory: %w", err)
	}

	keys := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), study.KeyPrefix) {
			continue
		}

		keys = append(keys, entry.Name())
	}

	return keys, nil
}

// Read implements Backend.
func (b *fileBackend) Read(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(b.directory, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read study file: %w", err)
	}

	return data, nil
}

// Write replaces the study file atomically: the data goes to a temporary file
// in the same directory which is then renamed over the target.
func (b *fileBackend) Write(_ context.Context, key string, data []byte) error {
	tmp, err := os.CreateTemp(b.directory, ".pending-*")
	if err != nil {
		return fmt.Errorf("create temporary study file: %w", err)
	}

	tmpName := tmp.Name()

	defer func() {
		// No-op once the rename succeeded.
		_ = os.Remove(tmpName)
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write study file: %w", err)
	}

	if err = tmp.Chmod(config.DefaultFilePermissions); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod study file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close study file: %w", err)
	}

	if err = os.Rename(tmpName, filepath.Join(b.directory, key)); err != nil {
		return fmt.Errorf("rename study file: %w", err)
	}

	return nil
}
