package storage

import (
	"context"
	"fmt"

	"github.com/tour-dashboard/backend/internal/storage/models"
)

// SubmissionRepository stores the audit trail of add-entry submissions.
type SubmissionRepository struct {
	BaseRepository
}

// NewSubmissionRepository creates a new submission repository.
func NewSubmissionRepository(db *DB) *SubmissionRepository {
	return &SubmissionRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a pending submission and assigns its ID.
func (r *SubmissionRepository) Create(ctx context.Context, sub *models.EntrySubmission) error {
	sub.ID = GenerateID()
	sub.CreatedAt = r.Now()
	sub.UpdatedAt = sub.CreatedAt
	if sub.Status == "" {
		sub.Status = models.SubmissionPending
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO entry_submissions (
			id, payload, status, remote_record_id, error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		sub.ID, sub.Payload, sub.Status, sub.RemoteRecordID, sub.Error, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting submission: %w", err)
	}
	return nil
}

// MarkSucceeded records the record id the remote service assigned.
func (r *SubmissionRepository) MarkSucceeded(ctx context.Context, id, remoteRecordID string) error {
	var recordID *string
	if remoteRecordID != "" {
		recordID = &remoteRecordID
	}
	return r.finish(ctx, id, models.SubmissionSucceeded, recordID, nil)
}

// MarkFailed records the remote error message.
func (r *SubmissionRepository) MarkFailed(ctx context.Context, id, message string) error {
	return r.finish(ctx, id, models.SubmissionFailed, nil, &message)
}

func (r *SubmissionRepository) finish(ctx context.Context, id, status string, recordID, errMsg *string) error {
	result, err := r.DB().ExecContext(ctx, `
		UPDATE entry_submissions SET
			status = ?, remote_record_id = ?, error = ?, updated_at = ?
		WHERE id = ?
	`, status, recordID, errMsg, r.Now(), id)
	if err != nil {
		return fmt.Errorf("updating submission: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("submission not found: %s", id)
	}
	return nil
}

// ListRecent returns the most recent submissions, newest first.
func (r *SubmissionRepository) ListRecent(ctx context.Context, limit int) ([]models.EntrySubmission, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, payload, status, remote_record_id, error, created_at, updated_at
		FROM entry_submissions
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying submissions: %w", err)
	}
	defer rows.Close()

	subs := make([]models.EntrySubmission, 0)
	for rows.Next() {
		var sub models.EntrySubmission
		if err := rows.Scan(
			&sub.ID, &sub.Payload, &sub.Status, &sub.RemoteRecordID, &sub.Error,
			&sub.CreatedAt, &sub.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
