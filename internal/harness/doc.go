// Package harness drives remote events through the optimistic merge policy
// and checks that the outcome is reproducible.
//
// # Replay
//
// RunReplay folds merge.MergeRemoteEvent over a sequence of events and
// returns a Report holding the final state, its canonical hash, every
// conflict envelope in input order, and applied/rejected/noop counts.
// VerifyDeterminism runs the same input twice and fails with
// DETERMINISM_VIOLATION when the canonical serializations differ.
//
// # Scenario Format
//
// Scenarios are YAML files validated against an embedded CUE schema
// (scenario.cue) before they are decoded:
//
//	name: stale_redelivery
//	description: "a repeated op with a stale base is rejected"
//	initial:
//	  version: 3
//	  content: Base
//	  last_op_id: op-2
//	events:
//	  - op_id: op-3
//	    author_id: writer-A
//	    ts: "2026-02-11T10:00:00.000Z"
//	    command_id: edit
//	    base_version: 3
//	    next_version: 4
//	    content: "Base + change"
//	expect:
//	  final_state: { version: 4, content: "Base + change", last_op_id: op-3 }
//	  stats: { applied_count: 1, rejected_count: 0, noop_count: 0 }
//	  codes: []
//
// Every expect clause is optional. RunScenario evaluates the clauses that
// are present and collects every mismatch rather than stopping at the first.
//
// # Golden Files
//
// AssertGolden compares the canonical JSON of a Report against
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
