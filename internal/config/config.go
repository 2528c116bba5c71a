// Package config loads llmunify settings from TOML.
//
// Values are resolved in this order, later wins:
//   - built-in defaults
//   - ~/.llmunify/config.toml, or the file given with --config
//   - LLMUNIFY_DB and LLMUNIFY_LOG_LEVEL environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	EnvDatabasePath = "LLMUNIFY_DB"
	EnvLogLevel     = "LLMUNIFY_LOG_LEVEL"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Search   SearchConfig   `toml:"search"`
	Log      LogConfig      `toml:"log"`
}

type DatabaseConfig struct {
	// Path of the SQLite file; created on first use.
	Path string `toml:"path"`
	// MaxConns bounds the connection pool.
	MaxConns int `toml:"max_conns"`
	// BusyTimeout is a Go duration string, e.g. "5s".
	BusyTimeout string `toml:"busy_timeout"`
}

type SearchConfig struct {
	DefaultLimit int `toml:"default_limit"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
}

// Dir returns ~/.llmunify.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".llmunify"), nil
}

func Default() *Config {
	dbPath := "llmunify.db"
	if dir, err := Dir(); err == nil {
		dbPath = filepath.Join(dir, "llmunify.db")
	}
	return &Config{
		Database: DatabaseConfig{
			Path:        dbPath,
			MaxConns:    5,
			BusyTimeout: "5s",
		},
		Search: SearchConfig{DefaultLimit: 20},
		Log:    LogConfig{Level: "warn"},
	}
}

// DefaultPath returns ~/.llmunify/config.toml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads ~/.llmunify/config.toml when it exists. A missing file is not
// an error.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, cfg.Validate()
	}
	return loadFile(path, false)
}

// LoadFromPath reads the TOML file at path, which must exist.
func LoadFromPath(path string) (*Config, error) {
	return loadFile(path, true)
}

func loadFile(path string, required bool) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err == nil || required {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) ApplyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv(EnvDatabasePath)); v != "" {
		c.Database.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path must not be empty"))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, fmt.Errorf("database.max_conns must be positive, got %d", c.Database.MaxConns))
	}
	if _, err := c.BusyTimeout(); err != nil {
		errs = append(errs, err)
	}
	if c.Search.DefaultLimit < 0 {
		errs = append(errs, fmt.Errorf("search.default_limit must not be negative, got %d", c.Search.DefaultLimit))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	return errors.Join(errs...)
}

// BusyTimeout parses Database.BusyTimeout. Empty means zero.
func (c *Config) BusyTimeout() (time.Duration, error) {
	if c.Database.BusyTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Database.BusyTimeout)
	if err != nil {
		return 0, fmt.Errorf("database.busy_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("database.busy_timeout must not be negative, got %s", d)
	}
	return d, nil
}

// Save writes c to path as TOML, creating the parent directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}
