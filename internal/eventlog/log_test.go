package eventlog

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/collab/internal/conflict"
)

// testEntry builds a valid entry chaining pre -> post.
func testEntry(opID, pre, post string) Entry {
	return Entry{
		OpID:          opID,
		TS:            "2026-02-11T10:00:00.000Z",
		ActorID:       "writer-A",
		CommandID:     "edit",
		PayloadHash:   "payload-" + opID,
		PreStateHash:  pre,
		PostStateHash: post,
	}
}

func mustAppend(t *testing.T, l Log, e Entry) Log {
	t.Helper()
	next, err := l.Append(e)
	require.NoError(t, err)
	return next
}

func TestNewIsEmpty(t *testing.T) {
	l := New()
	assert.Equal(t, SchemaVersion, l.SchemaVersion())
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.Entries())
	assert.Equal(t, "", l.Head())
	assert.Equal(t, `{"entries":[],"schema_version":"collab.eventlog/v1"}`, l.Serialize())
}

func TestZeroValueBehavesAsEmpty(t *testing.T) {
	var l Log
	assert.Equal(t, New().Serialize(), l.Serialize())

	next := mustAppend(t, l, testEntry("op-1", "h0", "h1"))
	assert.Equal(t, 1, next.Len())
	assert.Equal(t, 0, l.Len())
}

func TestAppendReturnsNewLog(t *testing.T) {
	empty := New()
	one := mustAppend(t, empty, testEntry("op-1", "h0", "h1"))
	two := mustAppend(t, one, testEntry("op-2", "h1", "h2"))

	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, 1, one.Len())
	assert.Equal(t, 2, two.Len())
	assert.Equal(t, "h1", one.Head())
	assert.Equal(t, "h2", two.Head())
	assert.True(t, two.Contains("op-1"))
	assert.False(t, one.Contains("op-2"))
}

func TestAppendMissingFields(t *testing.T) {
	l := New()
	e := testEntry("op-1", "h0", "h1")
	e.ActorID = ""
	e.PostStateHash = ""

	got, err := l.Append(e)
	require.Error(t, err)
	assert.True(t, conflict.IsCode(err, conflict.CodeEntryFieldsRequired))
	assert.Equal(t, 0, got.Len())

	ce, ok := conflict.As(err)
	require.True(t, ok)
	assert.Equal(t, []any{"actor_id", "post_state_hash"}, ce.Detail("missing"))
}

func TestAppendDuplicateOpID(t *testing.T) {
	l := mustAppend(t, New(), testEntry("op-1", "h0", "h1"))
	l = mustAppend(t, l, testEntry("op-2", "h1", "h2"))
	before := l.Serialize()

	dup := testEntry("op-1", "h2", "h-different")
	got, err := l.Append(dup)
	require.Error(t, err)
	assert.True(t, conflict.IsCode(err, conflict.CodeOpIDDuplicate))

	ce, _ := conflict.As(err)
	assert.Equal(t, "op-1", ce.Detail("op_id"))

	assert.Equal(t, 2, got.Len())
	assert.Equal(t, before, got.Serialize())
	assert.Equal(t, before, l.Serialize())
	assert.Equal(t, testEntry("op-1", "h0", "h1"), got.Entries()[0])
	assert.Equal(t, testEntry("op-2", "h1", "h2"), got.Entries()[1])
}

func TestAppendToOlderSnapshotForks(t *testing.T) {
	base := mustAppend(t, New(), testEntry("op-1", "h0", "h1"))
	left := mustAppend(t, base, testEntry("op-2", "h1", "h2"))
	right := mustAppend(t, base, testEntry("op-3", "h1", "h3"))

	assert.Equal(t, []string{"op-1", "op-2"}, opIDs(left))
	assert.Equal(t, []string{"op-1", "op-3"}, opIDs(right))
	assert.False(t, right.Contains("op-2"))
	assert.False(t, left.Contains("op-3"))

	// op-2 is only taken on the left branch.
	_, err := right.Append(testEntry("op-2", "h3", "h4"))
	assert.NoError(t, err)
}

func TestEntriesIsACopy(t *testing.T) {
	l := mustAppend(t, New(), testEntry("op-1", "h0", "h1"))
	entries := l.Entries()
	entries[0].OpID = "tampered"

	assert.Equal(t, "op-1", l.Entries()[0].OpID)
}

func TestAt(t *testing.T) {
	l := mustAppend(t, New(), testEntry("op-1", "h0", "h1"))

	e, ok := l.At(0)
	require.True(t, ok)
	assert.Equal(t, "op-1", e.OpID)

	_, ok = l.At(1)
	assert.False(t, ok)
	_, ok = l.At(-1)
	assert.False(t, ok)
}

func TestHashIdentifiesHistory(t *testing.T) {
	a := mustAppend(t, New(), testEntry("op-1", "h0", "h1"))
	b := mustAppend(t, New(), testEntry("op-1", "h0", "h1"))
	c := mustAppend(t, New(), testEntry("op-1", "h0", "h-other"))

	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Len(t, a.Hash(), 64)
}

func TestSerializeRoundTrip(t *testing.T) {
	l := mustAppend(t, New(), testEntry("op-1", "h0", "h1"))
	l = mustAppend(t, l, testEntry("op-2", "h1", "h2"))

	data, err := json.Marshal(l)
	require.NoError(t, err)
	assert.Equal(t, l.Serialize(), string(data))

	var decoded Log
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, l.Equal(decoded))
	assert.Equal(t, l.Hash(), decoded.Hash())
}

func TestAppendTreatsUnicodeSpellingsAsOneOpID(t *testing.T) {
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"

	l := mustAppend(t, New(), testEntry(decomposed, "h0", "h1"))
	assert.True(t, l.Contains(composed))
	assert.True(t, l.Contains(decomposed))

	stored, ok := l.At(0)
	require.True(t, ok)
	assert.Equal(t, composed, stored.OpID)

	_, err := l.Append(testEntry(composed, "h1", "h2"))
	require.Error(t, err)
	assert.Equal(t, conflict.CodeOpIDDuplicate, conflict.CodeOf(err))
}

func TestSerializeRoundTripNonASCII(t *testing.T) {
	l := mustAppend(t, New(), testEntry("cafe\u0301", "h0", "h1"))
	l = mustAppend(t, l, testEntry("\u00fcber-\U0001F600", "h1", "h2"))
	l = mustAppend(t, l, testEntry("op-3", "h2", "h3"))

	parsed, err := Parse([]byte(l.Serialize()))
	require.NoError(t, err)
	assert.True(t, l.Equal(parsed))
	assert.Equal(t, l.Hash(), parsed.Hash())
	assert.Equal(t, l.Serialize(), parsed.Serialize())
}

func TestParseRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		data string
		code conflict.Code
	}{
		{"not json", `{`, conflict.CodeLogDecodeFailed},
		{"unknown field", `{"schema_version":"collab.eventlog/v1","entries":[],"extra":1}`, conflict.CodeLogDecodeFailed},
		{"wrong schema", `{"schema_version":"v0","entries":[]}`, conflict.CodeLogSchemaUnsupported},
		{"missing field", `{"schema_version":"collab.eventlog/v1","entries":[{"op_id":"op-1"}]}`, conflict.CodeEntryFieldsRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.Equal(t, tt.code, conflict.CodeOf(err))
		})
	}
}

func TestFromEntriesReportsIndexOfDuplicate(t *testing.T) {
	_, err := FromEntries([]Entry{
		testEntry("op-1", "h0", "h1"),
		testEntry("op-2", "h1", "h2"),
		testEntry("op-1", "h2", "h3"),
	})
	require.Error(t, err)

	ce, ok := conflict.As(err)
	require.True(t, ok)
	assert.Equal(t, conflict.CodeOpIDDuplicate, ce.Code)
	assert.Equal(t, 2, ce.Detail("index"))
}

func TestConcurrentReadersOfSnapshots(t *testing.T) {
	l := New()
	snapshots := make([]Log, 0, 50)
	for i := range 50 {
		l = mustAppend(t, l, testEntry(fmt.Sprintf("op-%d", i), fmt.Sprintf("h%d", i), fmt.Sprintf("h%d", i+1)))
		snapshots = append(snapshots, l)
	}

	var wg sync.WaitGroup
	for i, snap := range snapshots {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, i+1, snap.Len())
			assert.Equal(t, fmt.Sprintf("h%d", i+1), snap.Head())
			_, err := snap.Append(testEntry("fork", snap.Head(), "x"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, l.Len())
	assert.False(t, l.Contains("fork"))
}

func opIDs(l Log) []string {
	var ids []string
	for _, e := range l.Entries() {
		ids = append(ids, e.OpID)
	}
	return ids
}
