package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const taskColumns = `id, project_id, title, description, expected_minutes, actual_minutes, completed,
	alarm_on_completion, completed_at, archived, created_at, updated_at`

func (s *Store) CreateTask(ctx context.Context, projectID *int64, title string, expectedMinutes int, alarm bool) (*Task, error) {
	id, err := s.UpsertTask(ctx, &Task{
		ProjectID:         projectID,
		Title:             title,
		ExpectedMinutes:   expectedMinutes,
		AlarmOnCompletion: alarm,
	})
	if err != nil {
		return nil, err
	}
	return s.GetTask(ctx, id)
}

// UpsertTask inserts t when t.ID is zero, otherwise overwrites every mutable
// column of the existing row. It returns the row id.
func (s *Store) UpsertTask(ctx context.Context, t *Task) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	if t.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO tasks (project_id, title, description, expected_minutes, actual_minutes, completed,
				alarm_on_completion, completed_at, archived, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			nullableID(t.ProjectID), t.Title, t.Description, t.ExpectedMinutes, t.ActualMinutes,
			boolInt(t.Completed), boolInt(t.AlarmOnCompletion), formatNullTime(t.CompletedAt),
			boolInt(t.Archived), now, now,
		)
		if err != nil {
			return 0, fmt.Errorf("insert task: %w", err)
		}
		return res.LastInsertId()
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET project_id = ?, title = ?, description = ?, expected_minutes = ?, actual_minutes = ?,
			completed = ?, alarm_on_completion = ?, completed_at = ?, archived = ?, updated_at = ?
		 WHERE id = ?`,
		nullableID(t.ProjectID), t.Title, t.Description, t.ExpectedMinutes, t.ActualMinutes,
		boolInt(t.Completed), boolInt(t.AlarmOnCompletion), formatNullTime(t.CompletedAt),
		boolInt(t.Archived), now, t.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("update task %d: %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("update task %d: %w", t.ID, ErrNotFound)
	}
	return t.ID, nil
}

func (s *Store) GetTask(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

// ListTasks returns tasks of a project, or every task when projectID is nil.
func (s *Store) ListTasks(ctx context.Context, projectID *int64, includeArchived bool) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any
	if projectID != nil {
		query += ` AND project_id = ?`
		args = append(args, *projectID)
	}
	if !includeArchived {
		query += ` AND archived = 0`
	}
	query += ` ORDER BY completed, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *Store) ArchiveTask(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET archived = 1, updated_at = ? WHERE id = ?`, now, id,
	)
	return err
}

func scanTask(r rowScanner) (*Task, error) {
	t := &Task{}
	var projectID sql.NullInt64
	var completedAt sql.NullString
	var createdAt, updatedAt string
	var completed, alarm, archived int
	err := r.Scan(&t.ID, &projectID, &t.Title, &t.Description, &t.ExpectedMinutes, &t.ActualMinutes,
		&completed, &alarm, &completedAt, &archived, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if projectID.Valid {
		t.ProjectID = &projectID.Int64
	}
	t.Completed = completed == 1
	t.AlarmOnCompletion = alarm == 1
	t.CompletedAt = parseNullTime(completedAt)
	t.Archived = archived == 1
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return t, nil
}
