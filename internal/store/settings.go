package store

import (
	"context"
	"fmt"
	"strconv"
)

// Keys of the user preferences seeded by the first migration.
const (
	SettingWorkMinutes          = "work_minutes"
	SettingBreakMinutes         = "break_minutes"
	SettingBreakReminderMinutes = "break_reminder_minutes"
	SettingBreakReminders       = "break_reminders"
)

const (
	DefaultWorkMinutes          = 25
	DefaultBreakMinutes         = 5
	DefaultBreakReminderMinutes = 30
)

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// GetIntSetting returns the integer value of key, or fallback when the key is
// missing or not a positive integer.
func (s *Store) GetIntSetting(ctx context.Context, key string, fallback int) int {
	v, err := s.GetSetting(ctx, key)
	if err != nil {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *Store) GetAllSettings(ctx context.Context) ([]Setting, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// GetBoolSetting reports whether key holds "on" or "true".
func (s *Store) GetBoolSetting(ctx context.Context, key string) bool {
	v, err := s.GetSetting(ctx, key)
	if err != nil {
		return false
	}
	return v == "on" || v == "true"
}
