// Package store provides a SQLite-backed journal for event logs.
//
// Each document owns an ordered sequence of log entries and an audit trail
// of batch rejections:
//   - log_entries: one row per committed entry, UNIQUE(doc_id, op_id)
//   - rejections: one row per rejected event, kept in input order
//
// The journal is append-only. Entries are never updated or deleted, and
// LoadLog rebuilds an eventlog.Log through eventlog.Log.Append so a stored
// log passes the same validation as one built in memory.
//
// All queries order by seq or id, never by timestamps, so reads are
// deterministic.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
