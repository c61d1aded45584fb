package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const projectColumns = `id, name, color, description, expected_minutes, completed, completed_at, archived, created_at, updated_at`

func (s *Store) CreateProject(ctx context.Context, name, color, description string, expectedMinutes int) (*Project, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (name, color, description, expected_minutes, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		name, color, description, expectedMinutes, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetProject(ctx, id)
}

func (s *Store) GetProject(ctx context.Context, id int64) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context, includeArchived bool) ([]Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	if !includeArchived {
		query += ` WHERE archived = 0`
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (s *Store) UpdateProject(ctx context.Context, id int64, name, color, description string, expectedMinutes int) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`UPDATE projects SET name = ?, color = ?, description = ?, expected_minutes = ?, updated_at = ? WHERE id = ?`,
		name, color, description, expectedMinutes, now, id,
	)
	if err != nil {
		return fmt.Errorf("update project %d: %w", id, err)
	}
	return nil
}

// SetProjectCompleted marks a project complete (stamping completed_at) or reopens it.
func (s *Store) SetProjectCompleted(ctx context.Context, id int64, completed bool) error {
	now := time.Now().UTC().Format(time.RFC3339)
	var completedAt any
	if completed {
		completedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE projects SET completed = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
		boolInt(completed), completedAt, now, id,
	)
	return err
}

func (s *Store) ArchiveProject(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`UPDATE projects SET archived = 1, updated_at = ? WHERE id = ?`, now, id,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(r rowScanner) (*Project, error) {
	p := &Project{}
	var createdAt, updatedAt string
	var completedAt sql.NullString
	var completed, archived int
	err := r.Scan(&p.ID, &p.Name, &p.Color, &p.Description, &p.ExpectedMinutes,
		&completed, &completedAt, &archived, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.Completed = completed == 1
	p.CompletedAt = parseNullTime(completedAt)
	p.Archived = archived == 1
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return p, nil
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
