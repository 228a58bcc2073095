// Package config loads the CLI configuration file.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Backend names for the patch store.
const (
	BackendDir    = "dir"
	BackendSQLite = "sqlite"
)

// Config controls where the patch log lives and which backend holds it.
type Config struct {
	// DataDir is the root for the patch log. Defaults to
	// $XDG_DATA_HOME-style user dir when empty.
	DataDir string `yaml:"data_dir"`

	// Backend selects the store: "dir" (TOML files) or "sqlite".
	Backend string `yaml:"backend"`

	// DefaultTags are attached to every newly started event.
	DefaultTags []string `yaml:"default_tags"`
}

// Default returns the built-in configuration.
func Default() (Config, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve user config dir: %w", err)
	}
	return Config{
		DataDir: filepath.Join(base, "tempus"),
		Backend: BackendDir,
	}, nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, "tempus", "config.yaml"), nil
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist. Unknown keys are rejected so typos surface early.
func Load(path string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Backend {
	case BackendDir, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", c.Backend, BackendDir, BackendSQLite)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	return nil
}
