package harness

import (
	"fmt"

	"github.com/roach88/collab/internal/canon"
	"github.com/roach88/collab/internal/conflict"
	"github.com/roach88/collab/internal/merge"
)

const opVerifyDeterminism = "harness.verify_determinism"

// Stats counts merge verdicts over one replay.
type Stats struct {
	AppliedCount  int `json:"applied_count" yaml:"applied_count"`
	RejectedCount int `json:"rejected_count" yaml:"rejected_count"`
	NoopCount     int `json:"noop_count" yaml:"noop_count"`
}

// Report is the outcome of RunReplay. Envelopes holds one entry per rejected
// event, in input order, and is never nil.
type Report struct {
	FinalState merge.State         `json:"final_state"`
	StateHash  string              `json:"state_hash"`
	Envelopes  []conflict.Envelope `json:"envelopes"`
	Stats      Stats               `json:"stats"`
}

// Codes returns the envelope codes in order.
func (r Report) Codes() []conflict.Code {
	codes := make([]conflict.Code, len(r.Envelopes))
	for i, env := range r.Envelopes {
		codes[i] = env.Code
	}
	return codes
}

// Serialize returns the canonical JSON of the report.
func (r Report) Serialize() (string, error) {
	return canon.Serialize(r)
}

// DefaultInitialState is the state a replay starts from when none is given.
func DefaultInitialState() merge.State {
	return merge.State{Version: 0, Content: "", LastOpID: ""}
}

// RunReplay folds the merge policy over events in order, starting from
// initial (or DefaultInitialState when nil). It is a pure function.
//
// Every event is counted exactly once in Stats, and each rejection appends
// its envelope in input order. A rejected or no-op event leaves the running
// state untouched, so later events are judged against the last applied one.
//
// Parameters:
//   - initial: starting state; nil means DefaultInitialState
//   - events: remote events, merged strictly in slice order
//
// CRITICAL: RunReplay must not read clocks, randomness or map iteration
// order. VerifyDeterminism relies on two calls producing identical bytes.
func RunReplay(initial *merge.State, events []merge.RemoteEvent) Report {
	state := DefaultInitialState()
	if initial != nil {
		state = *initial
	}

	report := Report{Envelopes: []conflict.Envelope{}}
	for _, ev := range events {
		res := merge.MergeRemoteEvent(state, ev)
		switch res.Verdict {
		case merge.VerdictApplied:
			report.Stats.AppliedCount++
		case merge.VerdictNoop:
			report.Stats.NoopCount++
		case merge.VerdictRejected:
			report.Stats.RejectedCount++
		}
		if res.Envelope != nil {
			report.Envelopes = append(report.Envelopes, *res.Envelope)
		}
		state = res.State
	}

	report.FinalState = state
	report.StateHash = state.Hash()
	return report
}

// VerifyDeterminism runs RunReplay twice over the same input and compares
// the canonical serializations. It returns the first report on success.
//
// A mismatch fails with DETERMINISM_VIOLATION; the error details carry the
// SHA-256 of each serialization so the two runs can be told apart in logs.
func VerifyDeterminism(initial *merge.State, events []merge.RemoteEvent) (Report, error) {
	first := RunReplay(initial, events)
	second := RunReplay(initial, events)

	a, err := first.Serialize()
	if err != nil {
		return first, fmt.Errorf("serialize first report: %w", err)
	}
	b, err := second.Serialize()
	if err != nil {
		return first, fmt.Errorf("serialize second report: %w", err)
	}
	if a != b {
		return first, conflict.New(conflict.CodeDeterminismViolation, opVerifyDeterminism,
			"replaying the same events produced different reports",
			map[string]any{"first": canon.HashBytes([]byte(a)), "second": canon.HashBytes([]byte(b))})
	}
	return first, nil
}
