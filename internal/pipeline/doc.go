// Package pipeline applies collaborator edits to document state through an
// external reducer and records the results.
//
// The reducer is injected: the pipeline only relies on the envelope shape
// {ok, state, state_hash?} | {ok: false, error: {code, reason}} and never
// inspects command semantics.
//
// # Batch application
//
// ApplyEventBatch processes events strictly in input order. For each event:
//
//  1. all structural fields present, else EVENT_FIELDS_REQUIRED
//  2. event_id unseen in this batch, else EVENT_ID_DUPLICATE
//  3. prev_hash, when non-empty, equals the running state hash, else
//     PREV_HASH_MISMATCH
//  4. reducer succeeds, else COMMAND_REJECTED
//  5. the returned state and hash become the running state
//
// A rejected event never advances the running state. Rejections are
// collected in input order and the batch always runs to completion. The only
// error returned is the configuration error for a missing reducer.
//
// # Single command application
//
// ApplyCommandToLog applies one command and appends a hash-chained log entry
// on success. A failed command leaves the log unchanged.
package pipeline
