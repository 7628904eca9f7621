package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ReadMarkerRepository tracks how far each user has read each stream.
type ReadMarkerRepository struct {
	db *DB
}

// NewReadMarkerRepository creates a new ReadMarkerRepository.
func NewReadMarkerRepository(db *DB) *ReadMarkerRepository {
	return &ReadMarkerRepository{db: db}
}

// LastReadSeqNum returns the last read sequence number (0 when never read).
func (r *ReadMarkerRepository) LastReadSeqNum(ctx context.Context, streamID, userID string) (int, error) {
	var seq int
	err := r.db.QueryRowContext(ctx, `
		SELECT last_read_seq FROM read_markers WHERE stream_id = ? AND user_id = ?
	`, streamID, userID).Scan(&seq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read marker: %w", err)
	}
	return seq, nil
}

// MarkStreamRead moves the user's marker to the newest post of the stream.
// The marker never moves backwards.
func (r *ReadMarkerRepository) MarkStreamRead(ctx context.Context, streamID, userID string) (int, error) {
	var seq int
	err := r.db.WriteTransaction(ctx, DefaultRetryPolicy, func(tx *sql.Tx) error {
		latest, err := maxSeqNum(ctx, tx, streamID)
		if err != nil {
			return err
		}
		seq = latest
		_, err = tx.ExecContext(ctx, `
			INSERT INTO read_markers (stream_id, user_id, last_read_seq, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (stream_id, user_id) DO UPDATE SET
				last_read_seq = MAX(read_markers.last_read_seq, excluded.last_read_seq),
				updated_at = excluded.updated_at
		`, streamID, userID, latest, time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("failed to upsert read marker: %w", err)
		}
		return nil
	})
	return seq, err
}
