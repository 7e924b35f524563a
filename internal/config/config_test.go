package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/collab/internal/conflict"
	"github.com/roach88/collab/internal/eventlog"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collab.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
database = "journal.db"
format = "json"
schema_version = "collab.eventlog/v1"
initial_state_hash = "abc"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "journal.db", cfg.Database)
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.Equal(t, "abc", cfg.InitialStateHash)
	assert.Equal(t, path, cfg.Path())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `initial_state_hash = "h0"`))
	require.NoError(t, err)
	assert.Equal(t, DefaultDatabase, cfg.Database)
	assert.Equal(t, FormatText, cfg.Format)
	assert.Equal(t, eventlog.SchemaVersion, cfg.SchemaVersion)
	assert.Equal(t, "h0", cfg.InitialStateHash)
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Database, cfg.Database)
	assert.Equal(t, DefaultFile, cfg.Path())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown key", `databse = "x.db"`, "failed to parse config"},
		{"malformed toml", `format = `, "failed to parse config"},
		{"bad format", `format = "yaml"`, "format must be"},
		{"empty database", `database = ""`, "database must not be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_UnsupportedSchema(t *testing.T) {
	_, err := Load(writeConfig(t, `schema_version = "collab.eventlog/v0"`))
	require.Error(t, err)
	assert.True(t, conflict.IsCode(err, conflict.CodeLogSchemaUnsupported))
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collab.toml")
	cfg := Default()
	cfg.Format = FormatJSON
	cfg.InitialStateHash = "h0"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Database, loaded.Database)
	assert.Equal(t, cfg.Format, loaded.Format)
	assert.Equal(t, cfg.InitialStateHash, loaded.InitialStateHash)
}
