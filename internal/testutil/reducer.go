package testutil

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/collab/internal/pipeline"
)

// TextReducer is a small in-memory reducer over a text document used to
// exercise the application pipeline. State is map[string]any with keys
// "text" (string) and "revision" (int).
//
// Commands:
//   - "append":  payload {"text": s}, appends s
//   - "replace": payload {"text": s}, replaces the text
//   - "reject":  fails with E_TEXT_REJECTED
//   - "error":   returns a Go error
//   - "empty":   reports success without a state
//
// Any other command fails with E_UNKNOWN_COMMAND.
type TextReducer struct {
	// Calls counts ApplyCommand invocations.
	Calls int

	// OmitHash makes successful outcomes leave StateHash empty so the
	// pipeline has to compute it.
	OmitHash bool
}

// EmptyText returns the initial document state.
func EmptyText() map[string]any {
	return map[string]any{"text": "", "revision": 0}
}

// ApplyCommand implements pipeline.Reducer.
func (r *TextReducer) ApplyCommand(_ context.Context, state any, cmd pipeline.Command) (pipeline.Outcome, error) {
	r.Calls++

	doc, ok := state.(map[string]any)
	if !ok {
		return pipeline.Failure("E_BAD_STATE", fmt.Sprintf("unexpected state type %T", state)), nil
	}
	text, _ := doc["text"].(string)
	revision, _ := doc["revision"].(int)

	switch cmd.Type {
	case "append", "replace":
		payload, _ := cmd.Payload.(map[string]any)
		s, ok := payload["text"].(string)
		if !ok {
			return pipeline.Failure("E_PAYLOAD_INVALID", "payload.text must be a string"), nil
		}
		if cmd.Type == "append" {
			s = text + s
		}
		next := map[string]any{"text": s, "revision": revision + 1}
		return r.success(next)
	case "reject":
		return pipeline.Failure("E_TEXT_REJECTED", "document is locked"), nil
	case "error":
		return pipeline.Outcome{}, errors.New("reducer unavailable")
	case "empty":
		return pipeline.Outcome{OK: true}, nil
	default:
		return pipeline.Failure("E_UNKNOWN_COMMAND", fmt.Sprintf("unknown command %q", cmd.Type)), nil
	}
}

func (r *TextReducer) success(next map[string]any) (pipeline.Outcome, error) {
	if r.OmitHash {
		return pipeline.Success(next, ""), nil
	}
	h, err := pipeline.CanonicalHasher(next)
	if err != nil {
		return pipeline.Outcome{}, err
	}
	return pipeline.Success(next, h), nil
}
