package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

func (s *sqlxStore) IsUpdateProcessed(ctx context.Context, updateID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM processed_updates WHERE update_id = ?);`, updateID)
	if err != nil {
		return false, fmt.Errorf("failed to check update %d: %w", updateID, err)
	}
	return exists, nil
}

// MarkUpdateProcessed is idempotent.
func (s *sqlxStore) MarkUpdateProcessed(ctx context.Context, updateID, chatID int64) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO processed_updates (update_id, chat_id, processed_at)
        VALUES (?, ?, ?)
        ON CONFLICT (update_id) DO NOTHING;
    `, updateID, chatID, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to record processed update", "update_id", updateID, "error", err)
		return fmt.Errorf("failed to record update %d: %w", updateID, err)
	}
	return nil
}

func (s *sqlxStore) LastProcessedUpdateID(ctx context.Context) (int64, bool, error) {
	var last sql.NullInt64
	if err := s.db.GetContext(ctx, &last, `SELECT MAX(update_id) FROM processed_updates;`); err != nil {
		return 0, false, fmt.Errorf("failed to read last processed update: %w", err)
	}
	return last.Int64, last.Valid, nil
}

// PruneProcessedUpdates keeps the newest row so the startup cursor survives.
func (s *sqlxStore) PruneProcessedUpdates(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
        DELETE FROM processed_updates
        WHERE processed_at < ?
          AND update_id < (SELECT MAX(update_id) FROM processed_updates);
    `, cutoff.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to prune processed updates", "error", err)
		return 0, fmt.Errorf("failed to prune processed updates: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned updates: %w", err)
	}
	return n, nil
}
