package pipeline

import (
	"context"

	"github.com/roach88/collab/internal/canon"
)

// Command is what the reducer receives: the command ID as its type and the
// event payload.
type Command struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// CommandError is the reducer's failure descriptor.
type CommandError struct {
	Code    string         `json:"code"`
	Reason  string         `json:"reason"`
	Details map[string]any `json:"details,omitempty"`
}

// Outcome is the reducer's result envelope. A well-formed success has OK set
// and a non-nil State. StateHash is optional; when empty the pipeline
// computes it.
type Outcome struct {
	OK        bool          `json:"ok"`
	State     any           `json:"state,omitempty"`
	StateHash string        `json:"state_hash,omitempty"`
	Error     *CommandError `json:"error,omitempty"`
}

// Success builds a successful outcome.
func Success(state any, stateHash string) Outcome {
	return Outcome{OK: true, State: state, StateHash: stateHash}
}

// Failure builds a failed outcome.
func Failure(code, reason string) Outcome {
	return Outcome{Error: &CommandError{Code: code, Reason: reason}}
}

// Reducer interprets domain commands. Implementations may block; the
// pipeline waits for each call before evaluating the next event.
type Reducer interface {
	ApplyCommand(ctx context.Context, state any, cmd Command) (Outcome, error)
}

// ReducerFunc adapts a function to Reducer.
type ReducerFunc func(ctx context.Context, state any, cmd Command) (Outcome, error)

// ApplyCommand implements Reducer.
func (f ReducerFunc) ApplyCommand(ctx context.Context, state any, cmd Command) (Outcome, error) {
	return f(ctx, state, cmd)
}

// Hasher computes the identity hash of a state value.
type Hasher func(state any) (string, error)

// CanonicalHasher is the default Hasher: SHA-256 over canonical JSON.
func CanonicalHasher(state any) (string, error) {
	return canon.Hash(state)
}

func (o Outcome) wellFormed() bool {
	return o.OK && o.State != nil
}
