package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "collab", cmd.Use)
	assert.Contains(t, cmd.Long, "hash-chained")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"verify"},
		{"replay"},
		{"journal"},
		{"journal", "import"},
		{"journal", "export"},
		{"journal", "verify"},
		{"journal", "list"},
		{"journal", "record"},
		{"journal", "rejections"},
		{"init"},
	}

	for _, path := range commands {
		t.Run(path[len(path)-1], func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "--format", "xml", "journal", "list", "--db", t.TempDir()+"/x.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestConfigSuppliesFormat(t *testing.T) {
	cfg := writeFile(t, "collab.toml", `format = "json"`)

	stdout, _, err := execute(t, "--config", cfg, "journal", "list", "--db", t.TempDir()+"/x.db")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"status": "ok"`)
}

func TestFlagOverridesConfigFormat(t *testing.T) {
	cfg := writeFile(t, "collab.toml", `format = "json"`)

	stdout, _, err := execute(t, "--config", cfg, "--format", "text", "journal", "list", "--db", t.TempDir()+"/x.db")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No documents journaled.")
}

func TestBadConfig(t *testing.T) {
	cfg := writeFile(t, "collab.toml", `unknown_key = 1`)

	_, _, err := execute(t, "--config", cfg, "journal", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestVerboseLogsToStderr(t *testing.T) {
	stdout, stderr, err := execute(t, "-v", "journal", "list", "--db", t.TempDir()+"/x.db")
	require.NoError(t, err)
	assert.Contains(t, stderr, "configuration loaded")
	assert.Contains(t, stderr, "journal opened")
	assert.NotContains(t, stdout, "configuration loaded")
}
