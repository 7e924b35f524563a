// Package config loads the optional collab.toml file read by the CLI.
// Command-line flags override file values; a missing default file yields
// the defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/roach88/collab/internal/conflict"
	"github.com/roach88/collab/internal/eventlog"
)

const (
	DefaultFile     = "collab.toml"
	DefaultDatabase = "collab.db"
	FormatText      = "text"
	FormatJSON      = "json"
)

// Config holds CLI defaults.
type Config struct {
	// Database is the SQLite journal path.
	Database string `toml:"database"`

	// Format is the output format, "text" or "json".
	Format string `toml:"format"`

	// SchemaVersion pins the event log schema this workspace accepts.
	SchemaVersion string `toml:"schema_version"`

	// InitialStateHash seeds replay verification when --initial-hash is
	// not given.
	InitialStateHash string `toml:"initial_state_hash,omitempty"`

	path string
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Database:      DefaultDatabase,
		Format:        FormatText,
		SchemaVersion: eventlog.SchemaVersion,
	}
}

// Load reads the configuration at path. An empty path means DefaultFile in
// the working directory, and in that case a missing file is not an error.
// Keys absent from the file keep their defaults; unknown keys are rejected.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("invalid config: format must be %q or %q, got %q", FormatText, FormatJSON, c.Format)
	}
	if c.Database == "" {
		return fmt.Errorf("invalid config: database must not be empty")
	}
	if c.SchemaVersion != eventlog.SchemaVersion {
		return conflict.New(conflict.CodeLogSchemaUnsupported, "config.load",
			fmt.Sprintf("schema_version %q is not supported", c.SchemaVersion),
			map[string]any{"supported": eventlog.SchemaVersion, "actual": c.SchemaVersion})
	}
	return nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	c.path = path
	return nil
}

// Path returns the file the configuration was loaded from or saved to.
func (c *Config) Path() string {
	return c.path
}
