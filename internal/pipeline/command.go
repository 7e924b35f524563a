package pipeline

import (
	"context"
	"fmt"

	"github.com/roach88/collab/internal/canon"
	"github.com/roach88/collab/internal/conflict"
	"github.com/roach88/collab/internal/eventlog"
)

const opApplyCommandToLog = "pipeline.apply_command_to_log"

// CommandRequest describes one command to apply against the current state.
// StateHash is optional; when empty it is computed from State.
type CommandRequest struct {
	State     any
	StateHash string
	OpID      string
	TS        string
	ActorID   string
	CommandID string
	Payload   any
}

// CommandResult is the outcome of ApplyCommandToLog. On failure Log, State
// and StateHash hold the unchanged inputs and Entry is zero.
type CommandResult struct {
	Log       eventlog.Log
	State     any
	StateHash string
	Entry     eventlog.Entry
}

// ApplyCommandToLog applies one command through the reducer and appends the
// resulting hash-chained entry to log.
//
// Fails with APPLY_COMMAND_CALLBACK_REQUIRED when no reducer is configured,
// APPLY_COMMAND_FAILED when the reducer does not succeed, and with the
// eventlog.Append codes when the entry cannot be appended. In every failure
// case the returned log is the input log.
func (p *Pipeline) ApplyCommandToLog(ctx context.Context, log eventlog.Log, req CommandRequest) (CommandResult, error) {
	result := CommandResult{Log: log, State: req.State, StateHash: req.StateHash}
	if p.reducer == nil {
		return result, conflict.New(conflict.CodeApplyCommandCallbackRequired, opApplyCommandToLog,
			"an apply-command callback is required", nil)
	}

	preHash := req.StateHash
	if preHash == "" {
		h, err := p.hash(req.State)
		if err != nil {
			return result, conflict.New(conflict.CodeStateHashFailed, opApplyCommandToLog,
				fmt.Sprintf("hash current state: %v", err), map[string]any{"op_id": req.OpID})
		}
		preHash = h
		result.StateHash = h
	}

	payloadHash, err := canon.Hash(req.Payload)
	if err != nil {
		return result, conflict.New(conflict.CodeApplyCommandFailed, opApplyCommandToLog,
			fmt.Sprintf("hash payload: %v", err), map[string]any{"op_id": req.OpID})
	}

	out, err := p.reducer.ApplyCommand(ctx, req.State, Command{Type: req.CommandID, Payload: req.Payload})
	if err != nil {
		return result, conflict.New(conflict.CodeApplyCommandFailed, opApplyCommandToLog,
			fmt.Sprintf("reducer failed: %v", err), map[string]any{"op_id": req.OpID})
	}
	if !out.wellFormed() {
		details := map[string]any{"op_id": req.OpID}
		if out.Error != nil && out.Error.Code != "" {
			details["error_code"] = out.Error.Code
		}
		return result, conflict.New(conflict.CodeApplyCommandFailed, opApplyCommandToLog,
			commandFailureReason(out), details)
	}

	postHash := out.StateHash
	if postHash == "" {
		postHash, err = p.hash(out.State)
		if err != nil {
			return result, conflict.New(conflict.CodeStateHashFailed, opApplyCommandToLog,
				fmt.Sprintf("hash reducer state: %v", err), map[string]any{"op_id": req.OpID})
		}
	}

	entry := eventlog.Entry{
		OpID:          req.OpID,
		TS:            req.TS,
		ActorID:       req.ActorID,
		CommandID:     req.CommandID,
		PayloadHash:   payloadHash,
		PreStateHash:  preHash,
		PostStateHash: postHash,
	}
	next, err := log.Append(entry)
	if err != nil {
		return result, err
	}

	p.logger.Info("command appended",
		"op_id", entry.OpID,
		"command_id", entry.CommandID,
		"entries", next.Len(),
		"post_state_hash", postHash)

	return CommandResult{
		Log:       next,
		State:     out.State,
		StateHash: postHash,
		Entry:     entry,
	}, nil
}
