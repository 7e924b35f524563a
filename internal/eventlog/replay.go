package eventlog

import (
	"fmt"

	"github.com/roach88/collab/internal/conflict"
)

// ReplayResult summarises a successful replay.
type ReplayResult struct {
	FinalStateHash string `json:"final_state_hash"`
	AppliedEvents  int    `json:"applied_events"`
	LogHash        string `json:"log_hash"`
}

// Replay walks the log in order and verifies the hash chain starting from
// initialStateHash. Every entry's pre-state hash must equal the previous
// entry's post-state hash (or initialStateHash for the first entry).
//
// Replay is a pure function: the same (log, initialStateHash) always yields
// the same result.
func Replay(l Log, initialStateHash string) (ReplayResult, error) {
	if initialStateHash == "" {
		return ReplayResult{}, conflict.New(conflict.CodeInitialStateHashRequired, "eventlog.replay",
			"initial state hash is required", nil)
	}

	current := initialStateHash
	for i, e := range l.Entries() {
		if missing := e.MissingFields(); len(missing) > 0 {
			return ReplayResult{}, conflict.New(conflict.CodeEntryFieldsRequired, "eventlog.replay",
				fmt.Sprintf("entry %d is missing required fields", i),
				map[string]any{"index": i, "op_id": e.OpID, "missing": toAny(missing)})
		}
		if e.PreStateHash != current {
			return ReplayResult{}, conflict.New(conflict.CodeReplayHashMismatch, "eventlog.replay",
				fmt.Sprintf("entry %d does not continue the hash chain", i),
				map[string]any{"index": i, "op_id": e.OpID, "expected": current, "actual": e.PreStateHash})
		}
		current = e.PostStateHash
	}

	return ReplayResult{
		FinalStateHash: current,
		AppliedEvents:  l.Len(),
		LogHash:        l.Hash(),
	}, nil
}
