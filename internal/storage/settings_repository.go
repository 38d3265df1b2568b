package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Setting keys.
const (
	SettingUpcomingLimit = "upcoming_limit"
	SettingIncludeWeekly = "include_weekly"
)

// SettingsRepository stores runtime settings as key/value pairs. Values are
// JSON encoded by the caller.
type SettingsRepository struct {
	BaseRepository
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// GetAll returns every stored setting.
func (r *SettingsRepository) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := r.DB().QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("querying settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// Set stores a single setting.
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	return r.SetMany(ctx, map[string]string{key: value})
}

// SetMany stores several settings in one transaction.
func (r *SettingsRepository) SetMany(ctx context.Context, values map[string]string) error {
	now := r.Now()
	return r.Transaction(func(tx *sql.Tx) error {
		for key, value := range values {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
			`, key, value, now); err != nil {
				return fmt.Errorf("storing setting %s: %w", key, err)
			}
		}
		return nil
	})
}
