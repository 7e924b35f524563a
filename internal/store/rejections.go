package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/collab/internal/conflict"
	"github.com/roach88/collab/internal/pipeline"
)

// RejectionRecord is a journaled batch rejection.
type RejectionRecord struct {
	BatchID  string `json:"batch_id"`
	Position int    `json:"position"`
	pipeline.Rejection
}

// RecordRejections journals the rejections of one batch in order. Recording
// the same batch twice is a no-op for positions already stored.
//
// The CLI writes merge conflicts here through "collab journal record";
// pipeline callers pass BatchResult.Rejected directly.
//
// Parameters:
//   - ctx: cancels the transaction
//   - docID: document the batch was applied to
//   - batchID: caller-chosen batch identity; required
//   - rejections: rejections in batch order; position i is stored as i
func (s *Store) RecordRejections(ctx context.Context, docID, batchID string, rejections []pipeline.Rejection) error {
	if batchID == "" {
		return fmt.Errorf("record rejections: batch id is required")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureDocument(ctx, tx, docID); err != nil {
			return err
		}
		for i, r := range rejections {
			details, err := marshalDetails(r.Details)
			if err != nil {
				return fmt.Errorf("record rejection %d: %w", i, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO rejections
				(doc_id, batch_id, position, code, op_id, event_id, command_id, reason, details)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(doc_id, batch_id, position) DO NOTHING
			`,
				docID,
				batchID,
				i,
				string(r.Code),
				r.OpID,
				r.EventID,
				r.CommandID,
				r.Reason,
				details,
			)
			if err != nil {
				return fmt.Errorf("record rejection %d: %w", i, err)
			}
		}
		return nil
	})
}

// ListRejections returns every journaled rejection of docID in the order
// the batches recorded them. Returns an empty slice (not nil) when there are
// none.
func (s *Store) ListRejections(ctx context.Context, docID string) ([]RejectionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, position, code, op_id, event_id, command_id, reason, details
		FROM rejections
		WHERE doc_id = ?
		ORDER BY id ASC
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("query rejections: %w", err)
	}
	defer rows.Close()

	records := []RejectionRecord{}
	for rows.Next() {
		var (
			rec     RejectionRecord
			code    string
			details string
		)
		if err := rows.Scan(
			&rec.BatchID,
			&rec.Position,
			&code,
			&rec.OpID,
			&rec.EventID,
			&rec.CommandID,
			&rec.Reason,
			&details,
		); err != nil {
			return nil, fmt.Errorf("scan rejection: %w", err)
		}
		rec.Code = conflict.Code(code)
		rec.Details, err = unmarshalDetails(details)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rejections: %w", err)
	}
	return records, nil
}
