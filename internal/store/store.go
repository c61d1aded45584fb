package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection serialises the ticking loop, the job runner and the UI.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS projects (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		name             TEXT NOT NULL UNIQUE,
		color            TEXT NOT NULL DEFAULT '#6C63FF',
		description      TEXT NOT NULL DEFAULT '',
		expected_minutes INTEGER NOT NULL DEFAULT 0,
		completed        INTEGER NOT NULL DEFAULT 0,
		completed_at     TEXT,
		archived         INTEGER NOT NULL DEFAULT 0,
		created_at       TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
		updated_at       TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id          INTEGER REFERENCES projects(id) ON DELETE CASCADE,
		title               TEXT NOT NULL,
		description         TEXT NOT NULL DEFAULT '',
		expected_minutes    INTEGER NOT NULL DEFAULT 0,
		actual_minutes      INTEGER NOT NULL DEFAULT 0,
		completed           INTEGER NOT NULL DEFAULT 0,
		alarm_on_completion INTEGER NOT NULL DEFAULT 0,
		completed_at        TEXT,
		archived            INTEGER NOT NULL DEFAULT 0,
		created_at          TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
		updated_at          TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);

	CREATE TABLE IF NOT EXISTS session_logs (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id       TEXT NOT NULL UNIQUE,
		task_id          INTEGER REFERENCES tasks(id) ON DELETE SET NULL,
		type             TEXT NOT NULL CHECK(type IN ('WORK','BREAK')),
		start_time       TEXT NOT NULL,
		end_time         TEXT NOT NULL,
		expected_minutes INTEGER NOT NULL,
		actual_minutes   INTEGER NOT NULL,
		created_at       TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE INDEX IF NOT EXISTS idx_logs_task  ON session_logs(task_id);
	CREATE INDEX IF NOT EXISTS idx_logs_start ON session_logs(start_time);

	CREATE TABLE IF NOT EXISTS timer_snapshot (
		id                  INTEGER PRIMARY KEY CHECK(id = 1),
		running             INTEGER NOT NULL,
		start_ms            INTEGER NOT NULL,
		end_ms              INTEGER NOT NULL,
		expected_minutes    INTEGER NOT NULL,
		session_type        TEXT NOT NULL,
		task_id             INTEGER,
		paused_remaining_ms INTEGER NOT NULL DEFAULT 0,
		session_id          TEXT NOT NULL DEFAULT '',
		updated_at          TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scheduled_jobs (
		slot          TEXT PRIMARY KEY,
		token         TEXT NOT NULL,
		fire_at_ms    INTEGER NOT NULL,
		period_ms     INTEGER NOT NULL DEFAULT 0,
		payload       TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL DEFAULT 'pending',
		attempts      INTEGER NOT NULL DEFAULT 0,
		claimed_at_ms INTEGER NOT NULL DEFAULT 0,
		last_error    TEXT NOT NULL DEFAULT '',
		updated_at    TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO settings (key, value) VALUES
		('work_minutes',           '25'),
		('break_minutes',          '5'),
		('break_reminder_minutes', '30'),
		('break_reminders',        'off');
	`
	_, err := s.db.Exec(ddl)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
