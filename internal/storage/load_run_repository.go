package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tour-dashboard/backend/internal/storage/models"
)

// LoadRunRepository stores the history of dashboard load cycles.
type LoadRunRepository struct {
	BaseRepository
}

// NewLoadRunRepository creates a new load run repository.
func NewLoadRunRepository(db *DB) *LoadRunRepository {
	return &LoadRunRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const loadRunColumns = `id, trigger_source, status, error, users, calendar_entries,
	weekly_entries, started_at, finished_at`

// Create inserts a running load run and assigns its ID.
func (r *LoadRunRepository) Create(ctx context.Context, run *models.LoadRun) error {
	run.ID = GenerateID()
	if run.StartedAt.IsZero() {
		run.StartedAt = r.Now()
	}
	if run.Status == "" {
		run.Status = models.LoadStatusRunning
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO load_runs (`+loadRunColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.Trigger, run.Status, run.Error, run.Users, run.CalendarEntries,
		run.WeeklyEntries, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting load run: %w", err)
	}
	return nil
}

// Finish stores the outcome of a load run.
func (r *LoadRunRepository) Finish(ctx context.Context, run *models.LoadRun) error {
	if run.FinishedAt == nil {
		now := r.Now()
		run.FinishedAt = &now
	}

	result, err := r.DB().ExecContext(ctx, `
		UPDATE load_runs SET
			status = ?, error = ?, users = ?, calendar_entries = ?, weekly_entries = ?, finished_at = ?
		WHERE id = ?
	`,
		run.Status, run.Error, run.Users, run.CalendarEntries, run.WeeklyEntries, run.FinishedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("updating load run: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("load run not found: %s", run.ID)
	}
	return nil
}

// ListRecent returns the most recent load runs, newest first.
func (r *LoadRunRepository) ListRecent(ctx context.Context, limit int) ([]models.LoadRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+loadRunColumns+`
		FROM load_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying load runs: %w", err)
	}
	defer rows.Close()

	runs := make([]models.LoadRun, 0)
	for rows.Next() {
		var run models.LoadRun
		if err := scanLoadRun(rows, &run); err != nil {
			return nil, fmt.Errorf("scanning load run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Latest returns the most recent finished load run, or nil if none exists.
func (r *LoadRunRepository) Latest(ctx context.Context) (*models.LoadRun, error) {
	run := &models.LoadRun{}
	err := scanLoadRun(r.DB().QueryRowContext(ctx, `
		SELECT `+loadRunColumns+`
		FROM load_runs
		WHERE finished_at IS NOT NULL
		ORDER BY started_at DESC
		LIMIT 1
	`), run)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest load run: %w", err)
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLoadRun(s scanner, run *models.LoadRun) error {
	return s.Scan(
		&run.ID, &run.Trigger, &run.Status, &run.Error, &run.Users, &run.CalendarEntries,
		&run.WeeklyEntries, &run.StartedAt, &run.FinishedAt,
	)
}
