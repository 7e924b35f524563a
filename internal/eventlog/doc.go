// Package eventlog implements the append-only, hash-chained event log.
//
// A Log is a value. Append never mutates the receiver: it returns a new Log
// and the old value keeps observing exactly the entries it had. Internally,
// logs derived from one another share an append-only arena, so a linear
// history of appends costs amortized O(1) per entry. Appending to an older
// snapshot forks the arena instead of overwriting entries seen by newer
// snapshots.
//
// Op IDs are unique across a log. Appending a known op ID fails with
// OPID_DUPLICATE rather than being silently dropped, so callers can tell
// "already applied" from "newly applied".
//
// Replay walks a log and checks that every entry's pre-state hash equals the
// hash carried forward from the previous entry, starting at an externally
// supplied initial hash.
package eventlog
