package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/collab/internal/conflict"
	"github.com/roach88/collab/internal/eventlog"
)

const (
	opAppendEntry = "store.append_entry"
	opSaveLog     = "store.save_log"
	opLoadLog     = "store.load_log"
)

// AppendEntry stores entry as the next entry of docID, creating the document
// on first use. The entry is stored NFC-normalized, matching eventlog.Log.
// A duplicate op ID fails with OPID_DUPLICATE and writes nothing.
//
// AppendEntry does not check the hash chain; eventlog.Replay over LoadLog
// does that.
//
// Parameters:
//   - ctx: cancels the transaction
//   - docID: document the entry belongs to
//   - entry: a complete log entry (all seven fields non-empty)
func (s *Store) AppendEntry(ctx context.Context, docID string, entry eventlog.Entry) error {
	entry = entry.Normalized()
	if missing := entry.MissingFields(); len(missing) > 0 {
		return conflict.New(conflict.CodeEntryFieldsRequired, opAppendEntry,
			"entry is missing required fields",
			map[string]any{"doc_id": docID, "op_id": entry.OpID, "missing": stringsToAny(missing)})
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureDocument(ctx, tx, docID); err != nil {
			return err
		}

		var exists int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM log_entries WHERE doc_id = ? AND op_id = ?
		`, docID, entry.OpID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("append entry: %w", err)
		}
		if exists > 0 {
			return conflict.New(conflict.CodeOpIDDuplicate, opAppendEntry,
				fmt.Sprintf("op %q is already journaled", entry.OpID),
				map[string]any{"doc_id": docID, "op_id": entry.OpID})
		}

		seq, err := nextSeq(ctx, tx, docID)
		if err != nil {
			return err
		}
		return insertEntry(ctx, tx, docID, seq, entry)
	})
}

// SaveLog writes the entries of l that are not yet journaled for docID, in
// order and in one transaction. The journaled entries must be a prefix of l;
// otherwise SaveLog fails with JOURNAL_DIVERGED and writes nothing. It
// returns the number of entries written.
//
// CRITICAL: the prefix check compares whole entries, not just op IDs. A log
// that rewrote any hash of a journaled entry is a diverged history.
//
// Parameters:
//   - ctx: cancels the transaction
//   - docID: document to extend; created on first save
//   - l: the full log, of which the journal holds a prefix
func (s *Store) SaveLog(ctx context.Context, docID string, l eventlog.Log) (int, error) {
	written := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureDocument(ctx, tx, docID); err != nil {
			return err
		}

		stored, err := readEntries(ctx, tx, docID)
		if err != nil {
			return err
		}
		entries := l.Entries()
		if len(stored) > len(entries) {
			return conflict.New(conflict.CodeJournalDiverged, opSaveLog,
				fmt.Sprintf("journal holds %d entries but the log only %d", len(stored), len(entries)),
				map[string]any{"doc_id": docID, "journaled": len(stored), "entries": len(entries)})
		}
		for i, e := range stored {
			if e != entries[i] {
				return conflict.New(conflict.CodeJournalDiverged, opSaveLog,
					fmt.Sprintf("entry %d differs from the journal", i),
					map[string]any{"doc_id": docID, "index": i, "journaled_op_id": e.OpID, "op_id": entries[i].OpID})
			}
		}

		for i := len(stored); i < len(entries); i++ {
			if err := insertEntry(ctx, tx, docID, int64(i+1), entries[i]); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// LoadLog rebuilds the journaled log of docID by re-appending every entry in
// seq order. An unknown document yields an empty log.
func (s *Store) LoadLog(ctx context.Context, docID string) (eventlog.Log, error) {
	var schemaVersion string
	err := s.db.QueryRowContext(ctx, `
		SELECT schema_version FROM documents WHERE id = ?
	`, docID).Scan(&schemaVersion)
	if err == sql.ErrNoRows {
		return eventlog.New(), nil
	}
	if err != nil {
		return eventlog.Log{}, fmt.Errorf("load log: %w", err)
	}
	if schemaVersion != eventlog.SchemaVersion {
		return eventlog.Log{}, conflict.New(conflict.CodeLogSchemaUnsupported, opLoadLog,
			fmt.Sprintf("document %q uses schema %q", docID, schemaVersion),
			map[string]any{"doc_id": docID, "schema_version": schemaVersion})
	}

	entries, err := readEntries(ctx, s.db, docID)
	if err != nil {
		return eventlog.Log{}, err
	}
	l, err := eventlog.FromEntries(entries)
	if err != nil {
		return eventlog.Log{}, fmt.Errorf("load log %q: %w", docID, err)
	}
	return l, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func ensureDocument(ctx context.Context, tx *sql.Tx, docID string) error {
	if docID == "" {
		return fmt.Errorf("document id is required")
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, schema_version) VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, docID, eventlog.SchemaVersion)
	if err != nil {
		return fmt.Errorf("ensure document: %w", err)
	}
	return nil
}

func nextSeq(ctx context.Context, tx *sql.Tx, docID string) (int64, error) {
	var seq int64
	err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) + 1 FROM log_entries WHERE doc_id = ?
	`, docID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return seq, nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, docID string, seq int64, e eventlog.Entry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO log_entries
		(doc_id, seq, op_id, ts, actor_id, command_id, payload_hash, pre_state_hash, post_state_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		docID,
		seq,
		e.OpID,
		e.TS,
		e.ActorID,
		e.CommandID,
		e.PayloadHash,
		e.PreStateHash,
		e.PostStateHash,
	)
	if err != nil {
		return fmt.Errorf("insert entry %q: %w", e.OpID, err)
	}
	return nil
}

func readEntries(ctx context.Context, q querier, docID string) ([]eventlog.Entry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT op_id, ts, actor_id, command_id, payload_hash, pre_state_hash, post_state_hash
		FROM log_entries
		WHERE doc_id = ?
		ORDER BY seq ASC
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []eventlog.Entry{}
	for rows.Next() {
		var e eventlog.Entry
		if err := rows.Scan(
			&e.OpID,
			&e.TS,
			&e.ActorID,
			&e.CommandID,
			&e.PayloadHash,
			&e.PreStateHash,
			&e.PostStateHash,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
