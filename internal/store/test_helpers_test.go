package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/collab/internal/eventlog"
)

// createTestStore opens a fresh database in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// chainedEntries builds n entries whose hashes chain from "h0".
func chainedEntries(n int) []eventlog.Entry {
	entries := make([]eventlog.Entry, n)
	for i := range entries {
		entries[i] = eventlog.Entry{
			OpID:          "op-" + string(rune('a'+i)),
			TS:            "2026-02-11T10:00:00.000Z",
			ActorID:       "writer-A",
			CommandID:     "edit",
			PayloadHash:   "p" + string(rune('a'+i)),
			PreStateHash:  "h" + string(rune('0'+i)),
			PostStateHash: "h" + string(rune('1'+i)),
		}
	}
	return entries
}

func buildLog(t *testing.T, entries []eventlog.Entry) eventlog.Log {
	t.Helper()
	l, err := eventlog.FromEntries(entries)
	if err != nil {
		t.Fatalf("FromEntries() failed: %v", err)
	}
	return l
}
