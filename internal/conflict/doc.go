// Package conflict defines the typed failure values shared by the event log,
// the application pipeline and the optimistic merge policy.
//
// Two shapes are provided:
//   - Error: {Code, Op, Reason, Details} returned wherever an operation fails.
//     It implements error so callers can use errors.As, CodeOf and IsCode.
//   - Envelope: the fixed-shape conflict descriptor produced by the merge
//     policy. Every field is always populated; absent inputs become sentinel
//     placeholders such as "unknown-op" so consumers can rely on presence.
//
// Codes fall into the categories structural, integrity, concurrency,
// idempotency and configuration; see Category.
package conflict
