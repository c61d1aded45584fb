package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sadopc/focus/internal/clock"
)

const jobColumns = `slot, token, fire_at_ms, period_ms, payload, status, attempts, claimed_at_ms, last_error, updated_at`

// PutJob stores j under its slot, replacing whatever job the slot held. The
// stored job is pending with no attempts.
func (s *Store) PutJob(ctx context.Context, j Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_jobs (slot, token, fire_at_ms, period_ms, payload, status, attempts, claimed_at_ms, last_error, updated_at)
		 VALUES (?, ?, ?, ?, ?, 'pending', 0, 0, '', ?)
		 ON CONFLICT(slot) DO UPDATE SET
			token = excluded.token,
			fire_at_ms = excluded.fire_at_ms,
			period_ms = excluded.period_ms,
			payload = excluded.payload,
			status = 'pending',
			attempts = 0,
			claimed_at_ms = 0,
			last_error = '',
			updated_at = excluded.updated_at`,
		j.Slot, j.Token, clock.Millis(j.FireAt), j.Period.Milliseconds(), string(j.Payload),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("put job %q: %w", j.Slot, err)
	}
	return nil
}

// DeleteJob removes the job under slot. Missing slots are not an error.
func (s *Store) DeleteJob(ctx context.Context, slot string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE slot = ?`, slot); err != nil {
		return fmt.Errorf("delete job %q: %w", slot, err)
	}
	return nil
}

// GetJob returns the job under slot, or nil when the slot is empty.
func (s *Store) GetJob(ctx context.Context, slot string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM scheduled_jobs WHERE slot = ?`, slot)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %q: %w", slot, err)
	}
	return j, nil
}

// DueJobs lists pending jobs whose fire time is at or before now, plus running
// jobs whose claim is older than staleBefore.
func (s *Store) DueJobs(ctx context.Context, now, staleBefore time.Time) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM scheduled_jobs
		 WHERE (status = 'pending' AND fire_at_ms <= ?)
		    OR (status = 'running' AND claimed_at_ms < ?)
		 ORDER BY fire_at_ms`,
		clock.Millis(now), clock.Millis(staleBefore),
	)
	if err != nil {
		return nil, fmt.Errorf("list due jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// ClaimJob marks the job (slot, token) as running. It reports false when the
// job was replaced, cancelled, or claimed by someone else in the meantime.
func (s *Store) ClaimJob(ctx context.Context, slot, token string, now, staleBefore time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_jobs
		 SET status = 'running', attempts = attempts + 1, claimed_at_ms = ?, updated_at = ?
		 WHERE slot = ? AND token = ?
		   AND (status = 'pending' OR (status = 'running' AND claimed_at_ms < ?))`,
		clock.Millis(now), now.UTC().Format(time.RFC3339), slot, token, clock.Millis(staleBefore),
	)
	if err != nil {
		return false, fmt.Errorf("claim job %q: %w", slot, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim job %q: %w", slot, err)
	}
	return n == 1, nil
}

// FinishJob deletes the job only if it still carries token.
func (s *Store) FinishJob(ctx context.Context, slot, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE slot = ? AND token = ?`, slot, token); err != nil {
		return fmt.Errorf("finish job %q: %w", slot, err)
	}
	return nil
}

// RescheduleJob puts the job (slot, token) back to pending at fireAt. When
// resetAttempts is set the attempt counter starts over.
func (s *Store) RescheduleJob(ctx context.Context, slot, token string, fireAt time.Time, resetAttempts bool, lastErr string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_jobs
		 SET status = 'pending', fire_at_ms = ?, claimed_at_ms = 0, last_error = ?,
		     attempts = CASE WHEN ? = 1 THEN 0 ELSE attempts END, updated_at = ?
		 WHERE slot = ? AND token = ?`,
		clock.Millis(fireAt), lastErr, boolInt(resetAttempts), time.Now().UTC().Format(time.RFC3339), slot, token,
	)
	if err != nil {
		return fmt.Errorf("reschedule job %q: %w", slot, err)
	}
	return nil
}

// FailJob parks the job (slot, token) as failed; it stays until replaced or cancelled.
func (s *Store) FailJob(ctx context.Context, slot, token, lastErr string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_jobs SET status = 'failed', last_error = ?, updated_at = ? WHERE slot = ? AND token = ?`,
		lastErr, time.Now().UTC().Format(time.RFC3339), slot, token,
	)
	if err != nil {
		return fmt.Errorf("fail job %q: %w", slot, err)
	}
	return nil
}

func scanJob(r rowScanner) (*Job, error) {
	j := &Job{}
	var fireMs, periodMs, claimedMs int64
	var payload, status, updatedAt string
	err := r.Scan(&j.Slot, &j.Token, &fireMs, &periodMs, &payload, &status, &j.Attempts, &claimedMs, &j.LastError, &updatedAt)
	if err != nil {
		return nil, err
	}
	j.FireAt = clock.FromMillis(fireMs)
	j.Period = time.Duration(periodMs) * time.Millisecond
	j.Payload = []byte(payload)
	j.Status = JobStatus(status)
	j.ClaimedAt = clock.FromMillis(claimedMs)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return j, nil
}
