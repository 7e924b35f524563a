package merge

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/collab/internal/conflict"
)

func baseState() State {
	return State{Version: 3, Content: "Base", LastOpID: "op-2"}
}

func editEvent(opID string, base, next int64, content string) RemoteEvent {
	b, n := Versions(base, next)
	return RemoteEvent{
		OpID:        opID,
		AuthorID:    "writer-A",
		TS:          "2026-02-11T10:00:00.000Z",
		CommandID:   "edit",
		BaseVersion: b,
		NextVersion: n,
		Content:     content,
	}
}

func TestMergeApplied(t *testing.T) {
	res := MergeRemoteEvent(baseState(), editEvent("op-3", 3, 4, "Base + change"))

	assert.Equal(t, VerdictApplied, res.Verdict)
	assert.Equal(t, State{Version: 4, Content: "Base + change", LastOpID: "op-3"}, res.State)
	assert.Nil(t, res.Envelope)
}

func TestMergeBaseVersionMismatch(t *testing.T) {
	local := baseState()
	res := MergeRemoteEvent(local, editEvent("op-3", 99, 100, "Base + change"))

	assert.Equal(t, VerdictRejected, res.Verdict)
	assert.Equal(t, local, res.State)
	require.NotNil(t, res.Envelope)
	assert.Equal(t, conflict.CodeCollabBaseVersionMismatch, res.Envelope.Code)
	assert.Equal(t, "merge.remote_event", res.Envelope.Op)
	assert.Equal(t, conflict.EnvelopeDetails{
		OpID:      "op-3",
		AuthorID:  "writer-A",
		TS:        "2026-02-11T10:00:00.000Z",
		CommandID: "edit",
	}, res.Envelope.Details)
}

func TestMergeRejectionPrecedence(t *testing.T) {
	noVersions := editEvent("op-3", 3, 4, "x")
	noVersions.BaseVersion = nil

	missingBoth := editEvent("", 99, 1, "x")
	missingBoth.BaseVersion = nil

	tests := []struct {
		name string
		ev   RemoteEvent
		code conflict.Code
	}{
		{"fields before versions", missingBoth, conflict.CodeCollabEventFieldsRequired},
		{"versions required", noVersions, conflict.CodeCollabEventVersionRequired},
		{"base before monotonic", editEvent("op-3", 2, 1, "x"), conflict.CodeCollabBaseVersionMismatch},
		{"next equal to local", editEvent("op-3", 3, 3, "x"), conflict.CodeCollabNextVersionNotMonotonic},
		{"next below local", editEvent("op-3", 3, 2, "x"), conflict.CodeCollabNextVersionNotMonotonic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := MergeRemoteEvent(baseState(), tt.ev)
			assert.Equal(t, VerdictRejected, res.Verdict)
			assert.Equal(t, baseState(), res.State)
			require.NotNil(t, res.Envelope)
			assert.Equal(t, tt.code, res.Envelope.Code)
		})
	}
}

func TestMergeMissingFieldsUseSentinels(t *testing.T) {
	ev := editEvent("op-3", 3, 4, "x")
	ev.AuthorID = ""
	ev.TS = ""

	res := MergeRemoteEvent(baseState(), ev)
	require.NotNil(t, res.Envelope)
	assert.Equal(t, "op-3", res.Envelope.Details.OpID)
	assert.Equal(t, conflict.UnknownAuthor, res.Envelope.Details.AuthorID)
	assert.Equal(t, conflict.UnknownTS, res.Envelope.Details.TS)
	assert.Contains(t, res.Envelope.Reason, "author_id")
}

func TestMergeNoopOnRedelivery(t *testing.T) {
	local := baseState()
	res := MergeRemoteEvent(local, editEvent("op-2", 3, 4, "Base again"))

	assert.Equal(t, VerdictNoop, res.Verdict)
	assert.Equal(t, local, res.State)
	assert.Nil(t, res.Envelope)
}

func TestMergeStaleRedeliveryIsRejected(t *testing.T) {
	// The op that produced version 3 is redelivered with its original base.
	res := MergeRemoteEvent(baseState(), editEvent("op-2", 2, 3, "Base"))

	assert.Equal(t, VerdictRejected, res.Verdict)
	assert.Equal(t, conflict.CodeCollabBaseVersionMismatch, res.Envelope.Code)
}

func TestMergeProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for i := range 2000 {
		local := State{
			Version:  rng.Int64N(6),
			Content:  fmt.Sprintf("c%d", rng.IntN(3)),
			LastOpID: fmt.Sprintf("op-%d", rng.IntN(4)),
		}
		ev := editEvent(fmt.Sprintf("op-%d", rng.IntN(4)), rng.Int64N(6), rng.Int64N(8), "next")
		if rng.IntN(10) == 0 {
			ev.NextVersion = nil
		}
		if rng.IntN(10) == 0 {
			ev.CommandID = ""
		}

		res := MergeRemoteEvent(local, ev)
		switch res.Verdict {
		case VerdictApplied:
			assert.Greater(t, res.State.Version, local.Version, "case %d", i)
			assert.Nil(t, res.Envelope)
		case VerdictRejected:
			assert.Equal(t, local, res.State, "case %d", i)
			require.NotNil(t, res.Envelope)
		case VerdictNoop:
			assert.Equal(t, local, res.State, "case %d", i)
			assert.Nil(t, res.Envelope)
		default:
			t.Fatalf("case %d: unexpected verdict %q", i, res.Verdict)
		}
	}
}

func TestStateHash(t *testing.T) {
	a := State{Version: 1, Content: "x", LastOpID: "op-1"}
	b := State{Version: 1, Content: "x", LastOpID: "op-1"}
	c := State{Version: 2, Content: "x", LastOpID: "op-1"}

	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
}
