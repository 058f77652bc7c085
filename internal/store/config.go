package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config is the optional global config file (~/.todo/config.json).
// Flags and TODO_* env vars take precedence over it.
type Config struct {
	// Dir is the data directory holding todo.sqlite / <key>.json.
	Dir string `json:"dir,omitempty"`

	// Backend is one of sqlite|file|memory.
	Backend string `json:"backend,omitempty"`

	// Key overrides the storage slot name (default todoListState).
	Key string `json:"key,omitempty"`

	// PollInterval is a Go duration ("500ms") for the sqlite change watcher.
	PollInterval string `json:"pollInterval,omitempty"`

	WebAddr  string `json:"webAddr,omitempty"`
	LogLevel string `json:"logLevel,omitempty"`
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.todo).
	if v := strings.TrimSpace(os.Getenv("TODO_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".todo"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DefaultDataDir is where state lives when neither --dir nor config.dir is set.
func DefaultDataDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// LoadConfig reads the config file. A missing file yields an empty config.
func LoadConfig() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, append(b, '\n'))
}

// Poll parses PollInterval, falling back to DefaultPollInterval.
func (c Config) Poll() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(c.PollInterval))
	if err != nil || d <= 0 {
		return DefaultPollInterval
	}
	return d
}
