package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"proctor-camera/internal/models"
)

// CaptureRepository persists received captures. Queries are schema-qualified
// because search_path is a per-connection setting.
type CaptureRepository struct {
	db     *sql.DB
	schema string
}

func NewCaptureRepository(db *sql.DB, schema string) *CaptureRepository {
	return &CaptureRepository{db: db, schema: schema}
}

// SaveCapture records a capture, creating its session row on first use
func (r *CaptureRepository) SaveCapture(ctx context.Context, capture *models.CaptureRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sessionQuery := fmt.Sprintf(`
		INSERT INTO %s.capture_sessions (id, created_at, updated_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at
	`, r.schema)
	if _, err := tx.ExecContext(ctx, sessionQuery, capture.SessionID, capture.CreatedAt); err != nil {
		return fmt.Errorf("failed to upsert capture session: %w", err)
	}

	var timing interface{}
	if len(capture.Timing) > 0 {
		timing = string(capture.Timing)
	}

	captureQuery := fmt.Sprintf(`
		INSERT INTO %s.captures (id, session_id, filename, file_path, trigger, timing, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.schema)
	_, err = tx.ExecContext(
		ctx,
		captureQuery,
		capture.ID,
		capture.SessionID,
		capture.Filename,
		capture.FilePath,
		string(capture.Trigger),
		timing,
		capture.SizeBytes,
		capture.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert capture: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit capture: %w", err)
	}
	return nil
}

// MarkSessionReset records that the agent restarted the session
func (r *CaptureRepository) MarkSessionReset(ctx context.Context, sessionID string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s.capture_sessions (id, reset_count, last_reset_at, created_at, updated_at)
		VALUES ($1, 1, $2, $2, $2)
		ON CONFLICT (id) DO UPDATE
		SET reset_count = %s.capture_sessions.reset_count + 1,
			last_reset_at = EXCLUDED.last_reset_at,
			updated_at = EXCLUDED.updated_at
	`, r.schema, r.schema)
	if _, err := r.db.ExecContext(ctx, query, sessionID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to mark session reset: %w", err)
	}
	return nil
}

// ListCaptures returns a session's captures, newest first
func (r *CaptureRepository) ListCaptures(ctx context.Context, sessionID string) ([]*models.CaptureRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, session_id, filename, file_path, trigger, COALESCE(timing::text, ''), size_bytes, created_at
		FROM %s.captures
		WHERE session_id = $1
		ORDER BY created_at DESC
	`, r.schema)
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list captures: %w", err)
	}
	defer rows.Close()

	var captures []*models.CaptureRecord
	for rows.Next() {
		var c models.CaptureRecord
		var trigger, timing string
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Filename, &c.FilePath, &trigger, &timing, &c.SizeBytes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}
		c.Trigger = models.Trigger(trigger)
		if timing != "" {
			c.Timing = []byte(timing)
		}
		captures = append(captures, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate captures: %w", err)
	}
	return captures, nil
}
