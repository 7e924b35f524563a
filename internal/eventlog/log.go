package eventlog

import (
	"fmt"
	"sync"

	"github.com/roach88/collab/internal/canon"
	"github.com/roach88/collab/internal/conflict"
)

// SchemaVersion is written into every log and checked by Parse.
const SchemaVersion = "collab.eventlog/v1"

// arena is the shared backing store for a family of log snapshots.
// A snapshot of length n owns entries[:n]; positions never change once
// written.
type arena struct {
	mu      sync.Mutex
	entries []Entry
	index   map[string]int // op ID -> position
}

func newArena(entries []Entry) *arena {
	a := &arena{
		entries: entries,
		index:   make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		a.index[e.OpID] = i
	}
	return a
}

// Log is an immutable snapshot of an append-only event log.
// The zero value is an empty log with the current schema version.
type Log struct {
	schemaVersion string
	arena         *arena
	n             int
}

// New returns an empty log.
func New() Log {
	return Log{schemaVersion: SchemaVersion}
}

// SchemaVersion returns the log's schema version.
func (l Log) SchemaVersion() string {
	if l.schemaVersion == "" {
		return SchemaVersion
	}
	return l.schemaVersion
}

// Len returns the number of entries.
func (l Log) Len() int {
	return l.n
}

// Entries returns a copy of the entries in append order.
func (l Log) Entries() []Entry {
	out := make([]Entry, l.n)
	if l.n == 0 {
		return out
	}
	l.arena.mu.Lock()
	copy(out, l.arena.entries[:l.n])
	l.arena.mu.Unlock()
	return out
}

// At returns the entry at position i.
func (l Log) At(i int) (Entry, bool) {
	if i < 0 || i >= l.n {
		return Entry{}, false
	}
	l.arena.mu.Lock()
	defer l.arena.mu.Unlock()
	return l.arena.entries[i], true
}

// Head returns the post-state hash of the last entry, or "" for an empty log.
func (l Log) Head() string {
	last, ok := l.At(l.n - 1)
	if !ok {
		return ""
	}
	return last.PostStateHash
}

// Contains reports whether opID has been appended to this snapshot. Op IDs
// are compared in NFC.
func (l Log) Contains(opID string) bool {
	if l.n == 0 {
		return false
	}
	l.arena.mu.Lock()
	defer l.arena.mu.Unlock()
	pos, ok := l.arena.index[canon.Normalize(opID)]
	return ok && pos < l.n
}

// Append validates entry and returns a new log with it appended. The
// receiver is never modified.
//
// The entry is stored NFC-normalized, so op IDs that differ only in
// Unicode composition count as duplicates.
//
// Fails with ENTRY_FIELDS_REQUIRED if any field is empty, and with
// OPID_DUPLICATE if entry.OpID is already present in this snapshot. On
// failure the receiver is returned unchanged.
func (l Log) Append(entry Entry) (Log, error) {
	entry = entry.Normalized()
	if missing := entry.MissingFields(); len(missing) > 0 {
		return l, conflict.New(conflict.CodeEntryFieldsRequired, "eventlog.append",
			"log entry is missing required fields",
			map[string]any{"op_id": entry.OpID, "missing": toAny(missing)})
	}
	if l.Contains(entry.OpID) {
		return l, conflict.New(conflict.CodeOpIDDuplicate, "eventlog.append",
			fmt.Sprintf("op %q already exists in log", entry.OpID),
			map[string]any{"op_id": entry.OpID})
	}

	next := Log{schemaVersion: l.SchemaVersion(), n: l.n + 1}
	if l.arena == nil {
		next.arena = newArena([]Entry{entry})
		return next, nil
	}

	l.arena.mu.Lock()
	defer l.arena.mu.Unlock()
	if len(l.arena.entries) == l.n {
		// This snapshot is the arena's tip: extend in place.
		l.arena.entries = append(l.arena.entries, entry)
		l.arena.index[entry.OpID] = l.n
		next.arena = l.arena
		return next, nil
	}

	// Another snapshot already extended the arena past l.n; fork.
	forked := make([]Entry, l.n, l.n+1)
	copy(forked, l.arena.entries[:l.n])
	next.arena = newArena(append(forked, entry))
	return next, nil
}

// Equal reports whether two logs have the same schema version and entries.
func (l Log) Equal(other Log) bool {
	if l.SchemaVersion() != other.SchemaVersion() || l.n != other.n {
		return false
	}
	a, b := l.Entries(), other.Entries()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// canonicalMap builds the JSON-compatible form used for serialization and
// hashing.
func (l Log) canonicalMap() map[string]any {
	entries := l.Entries()
	list := make([]any, len(entries))
	for i, e := range entries {
		list[i] = e.canonicalMap()
	}
	return map[string]any{
		"schema_version": l.SchemaVersion(),
		"entries":        list,
	}
}

// Serialize returns the canonical JSON form of the log.
func (l Log) Serialize() string {
	data, err := canon.Marshal(l.canonicalMap())
	if err != nil {
		// The canonical map only holds strings, so this cannot happen.
		panic(fmt.Sprintf("eventlog: serialize: %v", err))
	}
	return string(data)
}

// Hash returns the SHA-256 digest of the canonical serialization. Two
// replicas with equal hashes hold identical histories.
func (l Log) Hash() string {
	return canon.HashBytes([]byte(l.Serialize()))
}

// MarshalJSON implements json.Marshaler using the canonical form.
func (l Log) MarshalJSON() ([]byte, error) {
	return []byte(l.Serialize()), nil
}
