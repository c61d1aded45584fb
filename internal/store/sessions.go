package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const logColumns = `id, session_id, task_id, type, start_time, end_time, expected_minutes, actual_minutes, created_at`

// AppendSessionLog records a finished session. A log for the same session id is
// written at most once; repeating the call returns the existing row id.
func (s *Store) AppendSessionLog(ctx context.Context, l SessionLog) (int64, error) {
	if l.SessionID == "" {
		return 0, fmt.Errorf("append session log: empty session id")
	}
	if !l.Type.Valid() {
		return 0, fmt.Errorf("append session log: invalid type %q", l.Type)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_logs (session_id, task_id, type, start_time, end_time, expected_minutes, actual_minutes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO NOTHING`,
		l.SessionID, nullableID(l.TaskID), string(l.Type),
		l.StartTime.UTC().Format(time.RFC3339), l.EndTime.UTC().Format(time.RFC3339),
		l.ExpectedMinutes, l.ActualMinutes, now,
	)
	if err != nil {
		return 0, fmt.Errorf("append session log: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM session_logs WHERE session_id = ?`, l.SessionID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append session log: read id: %w", err)
	}
	return id, nil
}

func (s *Store) HasSessionLog(ctx context.Context, sessionID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_logs WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup session log: %w", err)
	}
	return n > 0, nil
}

// SumSessionMinutes totals actual minutes over every log bound to taskID.
func (s *Store) SumSessionMinutes(ctx context.Context, taskID int64) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(actual_minutes), 0) FROM session_logs WHERE task_id = ?`, taskID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum session minutes for task %d: %w", taskID, err)
	}
	return total, nil
}

func (s *Store) ListSessionLogs(ctx context.Context, f LogFilter) ([]SessionLog, error) {
	query := `SELECT ` + logColumns + ` FROM session_logs WHERE 1=1`
	var args []any

	if f.TaskID != nil {
		query += ` AND task_id = ?`
		args = append(args, *f.TaskID)
	}
	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(f.Type))
	}
	if f.From != nil {
		query += ` AND start_time >= ?`
		args = append(args, f.From.UTC().Format(time.RFC3339))
	}
	if f.To != nil {
		query += ` AND start_time < ?`
		args = append(args, f.To.UTC().Format(time.RFC3339))
	}
	query += ` ORDER BY start_time DESC, id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list session logs: %w", err)
	}
	defer rows.Close()

	var logs []SessionLog
	for rows.Next() {
		var l SessionLog
		var taskID sql.NullInt64
		var typ, startTime, endTime, createdAt string
		if err := rows.Scan(&l.ID, &l.SessionID, &taskID, &typ, &startTime, &endTime,
			&l.ExpectedMinutes, &l.ActualMinutes, &createdAt); err != nil {
			return nil, err
		}
		if taskID.Valid {
			l.TaskID = &taskID.Int64
		}
		l.Type = SessionType(typ)
		l.StartTime, _ = time.Parse(time.RFC3339, startTime)
		l.EndTime, _ = time.Parse(time.RFC3339, endTime)
		l.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// GetDailySummary aggregates WORK minutes per day and project in [from, to).
func (s *Store) GetDailySummary(ctx context.Context, from, to time.Time) ([]DailySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(l.start_time) AS day,
		       COALESCE(p.id, 0), COALESCE(p.name, 'Untracked'), COALESCE(p.color, '#666666'),
		       COALESCE(SUM(l.actual_minutes), 0), COUNT(*)
		FROM session_logs l
		LEFT JOIN tasks t    ON t.id = l.task_id
		LEFT JOIN projects p ON p.id = t.project_id
		WHERE l.type = 'WORK'
		  AND l.start_time >= ? AND l.start_time < ?
		GROUP BY day, COALESCE(p.id, 0)
		ORDER BY day, 3`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("daily summary: %w", err)
	}
	defer rows.Close()

	var summaries []DailySummary
	for rows.Next() {
		var ds DailySummary
		if err := rows.Scan(&ds.Date, &ds.ProjectID, &ds.ProjectName, &ds.ProjectColor, &ds.TotalMinutes, &ds.SessionCount); err != nil {
			return nil, err
		}
		summaries = append(summaries, ds)
	}
	return summaries, rows.Err()
}

// GetTodayMinutes returns the WORK minutes logged on now's UTC day.
func (s *Store) GetTodayMinutes(ctx context.Context, now time.Time) (int, error) {
	today := now.UTC().Format("2006-01-02")
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(actual_minutes), 0)
		FROM session_logs
		WHERE date(start_time) = ? AND type = 'WORK'`, today,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("today minutes: %w", err)
	}
	return total, nil
}
