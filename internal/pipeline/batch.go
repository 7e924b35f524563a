package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/collab/internal/conflict"
)

const opApplyEventBatch = "pipeline.apply_event_batch"

// IncomingEvent is an edit proposed by a collaborator. EventID provides
// cross-batch idempotency; OpID names the logical operation. PrevHash is
// optional.
type IncomingEvent struct {
	EventID   string `json:"event_id"`
	ActorID   string `json:"actor_id"`
	TS        string `json:"ts"`
	OpID      string `json:"op_id"`
	CommandID string `json:"command_id"`
	Payload   any    `json:"payload"`
	PrevHash  string `json:"prev_hash,omitempty"`
}

func (ev IncomingEvent) missingFields() []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"event_id", ev.EventID},
		{"actor_id", ev.ActorID},
		{"ts", ev.TS},
		{"op_id", ev.OpID},
		{"command_id", ev.CommandID},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Rejection describes why one event of a batch was not applied.
type Rejection struct {
	Code      conflict.Code  `json:"code"`
	OpID      string         `json:"op_id"`
	EventID   string         `json:"event_id"`
	CommandID string         `json:"command_id"`
	Reason    string         `json:"reason"`
	Details   map[string]any `json:"details"`
}

// BatchResult is the outcome of ApplyEventBatch. Rejected is never nil.
type BatchResult struct {
	NextState    any         `json:"next_state"`
	AppliedCount int         `json:"applied_count"`
	Rejected     []Rejection `json:"rejected"`
	StateHash    string      `json:"state_hash"`
}

// ApplyEventBatch applies events to state in order. initialStateHash is the
// hash of state; when empty it is computed with the pipeline's hasher.
//
// The returned error is non-nil only for configuration problems
// (APPLY_COMMAND_HANDLER_REQUIRED) or when the initial hash cannot be
// computed. Per-event failures are reported in BatchResult.Rejected.
func (p *Pipeline) ApplyEventBatch(ctx context.Context, state any, events []IncomingEvent, initialStateHash string) (BatchResult, error) {
	result := BatchResult{
		NextState: state,
		Rejected:  []Rejection{},
		StateHash: initialStateHash,
	}
	if p.reducer == nil {
		return result, conflict.New(conflict.CodeApplyCommandHandlerRequired, opApplyEventBatch,
			"an apply-command handler is required", nil)
	}
	if result.StateHash == "" {
		h, err := p.hash(state)
		if err != nil {
			return result, conflict.New(conflict.CodeStateHashFailed, opApplyEventBatch,
				fmt.Sprintf("hash initial state: %v", err), nil)
		}
		result.StateHash = h
	}

	seen := make(map[string]struct{}, len(events))
	for i, ev := range events {
		rej, ok := p.applyEvent(ctx, &result, seen, i, ev)
		if !ok {
			p.logger.Debug("event rejected",
				"index", i,
				"event_id", ev.EventID,
				"op_id", ev.OpID,
				"code", rej.Code)
			result.Rejected = append(result.Rejected, rej)
			continue
		}
		p.logger.Debug("event applied",
			"index", i,
			"event_id", ev.EventID,
			"op_id", ev.OpID,
			"state_hash", result.StateHash)
	}

	p.logger.Info("event batch applied",
		slog.Int("events", len(events)),
		slog.Int("applied", result.AppliedCount),
		slog.Int("rejected", len(result.Rejected)),
		slog.String("state_hash", result.StateHash))
	return result, nil
}

// applyEvent runs the validation stages for one event and, on success,
// advances result. It reports the rejection and false on failure.
func (p *Pipeline) applyEvent(ctx context.Context, result *BatchResult, seen map[string]struct{}, index int, ev IncomingEvent) (Rejection, bool) {
	if missing := ev.missingFields(); len(missing) > 0 {
		return rejection(conflict.CodeEventFieldsRequired, ev,
			"event is missing required fields",
			map[string]any{"index": index, "missing": stringsToAny(missing)}), false
	}

	if _, dup := seen[ev.EventID]; dup {
		return rejection(conflict.CodeEventIDDuplicate, ev,
			fmt.Sprintf("event %q already seen in this batch", ev.EventID),
			map[string]any{"index": index}), false
	}
	seen[ev.EventID] = struct{}{}

	if ev.PrevHash != "" && ev.PrevHash != result.StateHash {
		return rejection(conflict.CodePrevHashMismatch, ev,
			"event was authored against a different state",
			map[string]any{"index": index, "expected": result.StateHash, "actual": ev.PrevHash}), false
	}

	out, err := p.reducer.ApplyCommand(ctx, result.NextState, Command{Type: ev.CommandID, Payload: ev.Payload})
	if err != nil {
		return rejection(conflict.CodeCommandRejected, ev,
			fmt.Sprintf("reducer failed: %v", err),
			map[string]any{"index": index}), false
	}
	if !out.wellFormed() {
		return rejection(conflict.CodeCommandRejected, ev, commandFailureReason(out),
			commandFailureDetails(index, out)), false
	}

	nextHash := out.StateHash
	if nextHash == "" {
		nextHash, err = p.hash(out.State)
		if err != nil {
			return rejection(conflict.CodeStateHashFailed, ev,
				fmt.Sprintf("hash reducer state: %v", err),
				map[string]any{"index": index}), false
		}
	}

	result.NextState = out.State
	result.StateHash = nextHash
	result.AppliedCount++
	return Rejection{}, true
}

func rejection(code conflict.Code, ev IncomingEvent, reason string, details map[string]any) Rejection {
	return Rejection{
		Code:      code,
		OpID:      ev.OpID,
		EventID:   ev.EventID,
		CommandID: ev.CommandID,
		Reason:    reason,
		Details:   details,
	}
}

func commandFailureReason(out Outcome) string {
	if out.Error != nil && out.Error.Reason != "" {
		return out.Error.Reason
	}
	if out.OK {
		return "reducer returned success without a state"
	}
	return "reducer rejected the command"
}

func commandFailureDetails(index int, out Outcome) map[string]any {
	details := map[string]any{"index": index}
	if out.Error != nil {
		if out.Error.Code != "" {
			details["error_code"] = out.Error.Code
		}
		if out.Error.Reason != "" {
			details["error_reason"] = out.Error.Reason
		}
	}
	return details
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
