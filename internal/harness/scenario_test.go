package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/collab/internal/conflict"
	"github.com/roach88/collab/internal/merge"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/applied_edit.yaml")
	require.NoError(t, err)

	assert.Equal(t, "applied_edit", s.Name)
	require.NotNil(t, s.Initial)
	assert.Equal(t, merge.State{Version: 3, Content: "Base", LastOpID: "op-2"}, *s.Initial)
	require.Len(t, s.Events, 1)
	ev := s.Events[0]
	assert.Equal(t, "op-3", ev.OpID)
	assert.Equal(t, "2026-02-11T10:00:00.000Z", ev.TS)
	require.NotNil(t, ev.BaseVersion)
	require.NotNil(t, ev.NextVersion)
	assert.Equal(t, int64(3), *ev.BaseVersion)
	assert.Equal(t, int64(4), *ev.NextVersion)
	require.NotNil(t, s.Expect.Stats)
	assert.Equal(t, Stats{AppliedCount: 1}, *s.Expect.Stats)
	assert.NotNil(t, s.Expect.Codes)
	assert.Empty(t, s.Expect.Codes)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_OptionalSectionsOmitted(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: bare
description: "no initial state and no expectations"
events:
  - op_id: op-1
    author_id: writer-A
    ts: t0
    command_id: edit
    base_version: 0
    next_version: 1
    content: hi
`))
	require.NoError(t, err)
	assert.Nil(t, s.Initial)
	assert.Nil(t, s.Expect.FinalState)
	assert.Nil(t, s.Expect.Stats)
	assert.Nil(t, s.Expect.Codes)
}

func TestParseScenario_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty document", ``},
		{"missing name", `
description: d
events: [{op_id: a}]
`},
		{"empty description", `
name: n
description: ""
events: [{op_id: a}]
`},
		{"no events", `
name: n
description: d
events: []
`},
		{"unknown top-level key", `
name: n
description: d
events: [{op_id: a}]
assertions: []
`},
		{"misspelled event key", `
name: n
description: d
events: [{opid: a}]
`},
		{"version is not an integer", `
name: n
description: d
events: [{op_id: a, base_version: "three"}]
`},
		{"negative initial version", `
name: n
description: d
initial: {version: -1, content: "", last_op_id: ""}
events: [{op_id: a}]
`},
		{"unknown expected code", `
name: n
description: d
events: [{op_id: a}]
expect:
  codes: [OPID_DUPLICATE]
`},
		{"malformed state hash", `
name: n
description: d
events: [{op_id: a}]
expect:
  state_hash: abc
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
		})
	}
}

func TestParseScenario_SchemaErrorCarriesPath(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: n
description: d
events: [{op_id: a, next_version: "x"}]
`))
	require.Error(t, err)

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Path, "events")
}

func TestParseScenario_InvalidYAML(t *testing.T) {
	_, err := ParseScenario([]byte("name: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestRunScenario_Files(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunScenario(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRunScenario_CollectsEveryMismatch(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/applied_edit.yaml")
	require.NoError(t, err)

	s.Expect.FinalState = &merge.State{Version: 9}
	s.Expect.Stats = &Stats{RejectedCount: 1}
	s.Expect.Codes = []conflict.Code{conflict.CodeCollabBaseVersionMismatch}
	s.Expect.StateHash = "0000000000000000000000000000000000000000000000000000000000000000"

	result, err := RunScenario(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], AssertFinalState)
	assert.Contains(t, result.Errors[1], AssertStateHash)
	assert.Contains(t, result.Errors[2], AssertStats)
	assert.Contains(t, result.Errors[3], AssertCodes)
}

func TestRunScenario_EmptyCodesRequiresNoRejections(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/base_mismatch.yaml")
	require.NoError(t, err)
	s.Expect.Codes = []conflict.Code{}

	result, err := RunScenario(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "E_COLLAB_BASE_VERSION_MISMATCH")
}
