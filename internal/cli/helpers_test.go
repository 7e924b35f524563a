package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/collab/internal/canon"
	"github.com/roach88/collab/internal/eventlog"
	"github.com/roach88/collab/internal/pipeline"
	"github.com/roach88/collab/internal/testutil"
)

// execute runs the root command with args and captures both streams.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// buildTextLog appends one "append" command per text through the pipeline
// and returns the log and the initial state hash.
func buildTextLog(t *testing.T, texts ...string) (eventlog.Log, string) {
	t.Helper()
	p := pipeline.New(&testutil.TextReducer{})
	ids := testutil.NewIDGenerator("cli-test")
	clock := testutil.NewDeterministicClock()

	state := any(testutil.EmptyText())
	initialHash := canon.MustHash(state)
	l := eventlog.New()
	for _, text := range texts {
		res, err := p.ApplyCommandToLog(context.Background(), l, pipeline.CommandRequest{
			State:     state,
			OpID:      ids.Next(),
			TS:        clock.Stamp(),
			ActorID:   "writer-A",
			CommandID: "append",
			Payload:   map[string]any{"text": text},
		})
		require.NoError(t, err)
		l, state = res.Log, res.State
	}
	return l, initialHash
}

func writeLogFile(t *testing.T, l eventlog.Log) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.log.json")
	require.NoError(t, os.WriteFile(path, []byte(l.Serialize()), 0644))
	return path
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
