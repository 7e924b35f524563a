// Package merge implements the optimistic, version-gated merge policy for
// the single-scalar replicated document model.
//
// MergeRemoteEvent is a strict single-step gate: it never combines divergent
// edits, it only decides whether a proposed transition may advance the
// authoritative version counter.
package merge

import (
	"fmt"

	"github.com/roach88/collab/internal/canon"
	"github.com/roach88/collab/internal/conflict"
)

const opMergeRemoteEvent = "merge.remote_event"

// State is the replicated document snapshot.
type State struct {
	Version  int64  `json:"version" yaml:"version"`
	Content  string `json:"content" yaml:"content"`
	LastOpID string `json:"last_op_id" yaml:"last_op_id"`
}

// Hash returns the canonical hash of the state.
func (s State) Hash() string {
	// Strings and an int64 always canonicalize.
	return canon.MustHash(s.canonicalMap())
}

func (s State) canonicalMap() map[string]any {
	return map[string]any{
		"version":    s.Version,
		"content":    s.Content,
		"last_op_id": s.LastOpID,
	}
}

// RemoteEvent is a transition proposed by another replica. BaseVersion and
// NextVersion are pointers so a missing value can be told apart from zero.
type RemoteEvent struct {
	OpID        string `json:"op_id" yaml:"op_id"`
	AuthorID    string `json:"author_id" yaml:"author_id"`
	TS          string `json:"ts" yaml:"ts"`
	CommandID   string `json:"command_id" yaml:"command_id"`
	BaseVersion *int64 `json:"base_version,omitempty" yaml:"base_version,omitempty"`
	NextVersion *int64 `json:"next_version,omitempty" yaml:"next_version,omitempty"`
	Content     string `json:"content" yaml:"content"`
}

// Versions is a helper for building events with both version fields set.
func Versions(base, next int64) (*int64, *int64) {
	return &base, &next
}

// Verdict is the outcome of merging one remote event.
type Verdict string

const (
	VerdictApplied  Verdict = "applied"
	VerdictRejected Verdict = "rejected"
	VerdictNoop     Verdict = "noop"
)

// Result carries the verdict, the resulting state, and the conflict
// envelope for rejections (nil otherwise).
type Result struct {
	Verdict  Verdict            `json:"verdict"`
	State    State              `json:"state"`
	Envelope *conflict.Envelope `json:"envelope"`
}

// MergeRemoteEvent decides whether ev may advance local. It is a pure
// function.
//
// Checks run in this order, the first failure winning:
//  1. op_id, author_id, ts and command_id present (E_COLLAB_EVENT_FIELDS_REQUIRED)
//  2. base_version and next_version present (E_COLLAB_EVENT_VERSION_REQUIRED)
//  3. base_version == local.Version (E_COLLAB_BASE_VERSION_MISMATCH)
//  4. next_version > local.Version (E_COLLAB_NEXT_VERSION_NOT_MONOTONIC)
//
// An event passing all checks whose op_id equals local.LastOpID is an
// idempotent redelivery and yields noop. Otherwise the event is applied.
// Rejections and no-ops return local unchanged.
func MergeRemoteEvent(local State, ev RemoteEvent) Result {
	if missing := ev.missingFields(); len(missing) > 0 {
		return reject(local, ev, conflict.CodeCollabEventFieldsRequired,
			fmt.Sprintf("remote event is missing required fields: %v", missing))
	}
	if ev.BaseVersion == nil || ev.NextVersion == nil {
		return reject(local, ev, conflict.CodeCollabEventVersionRequired,
			"remote event must carry base_version and next_version")
	}
	if *ev.BaseVersion != local.Version {
		return reject(local, ev, conflict.CodeCollabBaseVersionMismatch,
			fmt.Sprintf("base version %d does not match local version %d", *ev.BaseVersion, local.Version))
	}
	if *ev.NextVersion <= local.Version {
		return reject(local, ev, conflict.CodeCollabNextVersionNotMonotonic,
			fmt.Sprintf("next version %d does not advance local version %d", *ev.NextVersion, local.Version))
	}
	if ev.OpID == local.LastOpID {
		return Result{Verdict: VerdictNoop, State: local}
	}
	return Result{
		Verdict: VerdictApplied,
		State: State{
			Version:  *ev.NextVersion,
			Content:  ev.Content,
			LastOpID: ev.OpID,
		},
	}
}

func reject(local State, ev RemoteEvent, code conflict.Code, reason string) Result {
	env := conflict.Build(code, opMergeRemoteEvent, reason, conflict.EnvelopeDetails{
		OpID:      ev.OpID,
		AuthorID:  ev.AuthorID,
		TS:        ev.TS,
		CommandID: ev.CommandID,
	})
	return Result{Verdict: VerdictRejected, State: local, Envelope: &env}
}

func (ev RemoteEvent) missingFields() []string {
	var missing []string
	if ev.OpID == "" {
		missing = append(missing, "op_id")
	}
	if ev.AuthorID == "" {
		missing = append(missing, "author_id")
	}
	if ev.TS == "" {
		missing = append(missing, "ts")
	}
	if ev.CommandID == "" {
		missing = append(missing, "command_id")
	}
	return missing
}
