package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Backend selects where studies are persisted.
type Backend string

const (
	// BackendFile stores one file per study in Directory.
	BackendFile Backend = "file"
	// BackendSQLite stores studies in the key-value table of Database under Namespace.
	BackendSQLite Backend = "sqlite"
	// BackendMemory keeps studies in process memory under Namespace.
	// Nothing survives the process, so it suits tests and embedding, not the CLI.
	BackendMemory Backend = "memory"
)

// Config holds the settings shared by the study-store commands.
type Config struct {
	// Backend picks the persistence variant.
	Backend Backend `yaml:"backend" env:"BACKEND"`
	// Directory is where the file backend writes study files.
	Directory string `yaml:"directory" env:"DIRECTORY"`
	// Database is the SQLite file used by the sqlite backend.
	Database string `yaml:"database" env:"DATABASE"`
	// Namespace prefixes every key written by the key-value backends.
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// LogLevel is the minimum level of log messages.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "study-store.yaml"

	// DefaultDirectory is the default save directory of the file backend.
	DefaultDirectory = "studies"

	// DefaultDatabase is the default SQLite database file.
	DefaultDatabase = "study-store.db"

	// DefaultNamespace is the default key prefix of the key-value backends.
	DefaultNamespace = "studies"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "STUDY_STORE_"

	// DefaultFilePermissions is the permission of files written by study-store.
	DefaultFilePermissions = 0o600

	// DefaultDirPermissions is the permission of directories created by study-store.
	DefaultDirPermissions = 0o700
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownBackend is returned for backends other than file, sqlite and memory.
	errUnknownBackend = errors.New("unknown backend")
	// errNamespaceDot is returned when the namespace would break key layout.
	errNamespaceDot = errors.New("namespace must not end with a dot")
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := new(Config)
	applyDefaults(cfg)

	return cfg
}

// Load reads configuration from path, applies environment overrides and validates the result.
// A missing file at the default path is not an error: defaults and the environment are used.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	cfg := new(Config)

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// Defaults only.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides cfg fields from STUDY_STORE_* environment variables.
func ApplyEnv(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	return nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills in defaults and checks the backend and namespace.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	applyDefaults(settings)

	switch settings.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("%w %q", errUnknownBackend, settings.Backend)
	}

	if strings.HasSuffix(settings.Namespace, ".") {
		return errNamespaceDot
	}

	return nil
}

func applyDefaults(settings *Config) {
	settings.Backend = Backend(strings.ToLower(strings.TrimSpace(string(settings.Backend))))
	if settings.Backend == "" {
		settings.Backend = BackendFile
	}

	if settings.Directory == "" {
		settings.Directory = DefaultDirectory
	}

	if settings.Database == "" {
		settings.Database = DefaultDatabase
	}

	if settings.Namespace == "" {
		settings.Namespace = DefaultNamespace
	}

	if settings.LogLevel == "" {
		settings.LogLevel = "info"
	}
}
