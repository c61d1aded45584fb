package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sadopc/focus/internal/clock"
)

// SaveSnapshot replaces the persisted timer state. A running snapshot never
// carries a paused remainder.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	paused := snap.PausedRemaining.Milliseconds()
	if snap.Running {
		paused = 0
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO timer_snapshot (id, running, start_ms, end_ms, expected_minutes, session_type, task_id,
			paused_remaining_ms, session_id, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			running = excluded.running,
			start_ms = excluded.start_ms,
			end_ms = excluded.end_ms,
			expected_minutes = excluded.expected_minutes,
			session_type = excluded.session_type,
			task_id = excluded.task_id,
			paused_remaining_ms = excluded.paused_remaining_ms,
			session_id = excluded.session_id,
			updated_at = excluded.updated_at`,
		boolInt(snap.Running), clock.Millis(snap.StartAt), clock.Millis(snap.EndAt), snap.ExpectedMinutes,
		string(snap.Type), nullableID(snap.TaskID), paused, snap.SessionID,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the persisted timer state, or nil when none exists.
func (s *Store) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	var running int
	var startMs, endMs, pausedMs int64
	var typ string
	var taskID sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT running, start_ms, end_ms, expected_minutes, session_type, task_id, paused_remaining_ms, session_id
		 FROM timer_snapshot WHERE id = 1`,
	).Scan(&running, &startMs, &endMs, &snap.ExpectedMinutes, &typ, &taskID, &pausedMs, &snap.SessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	snap.Running = running == 1
	snap.StartAt = clock.FromMillis(startMs)
	snap.EndAt = clock.FromMillis(endMs)
	snap.Type = SessionType(typ)
	if taskID.Valid {
		snap.TaskID = &taskID.Int64
	}
	snap.PausedRemaining = time.Duration(pausedMs) * time.Millisecond
	return &snap, nil
}

func (s *Store) ClearSnapshot(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM timer_snapshot`); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}

// ClearSessionSnapshot deletes the snapshot only if it still belongs to
// sessionID, so a session started elsewhere in the meantime survives.
func (s *Store) ClearSessionSnapshot(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM timer_snapshot WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("clear snapshot of session %s: %w", sessionID, err)
	}
	return nil
}
