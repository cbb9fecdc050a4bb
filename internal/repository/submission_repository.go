package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-assess-api/internal/models"
)

// SubmissionRepository handles persistence of submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// FindByID returns a submission by its ID.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	const query = `SELECT id, enrollment_id, item_id, content, status, submitted_at, created_at, updated_at
        FROM submissions WHERE id = $1`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// Exists checks whether a submission already exists for the pair.
func (r *SubmissionRepository) Exists(ctx context.Context, enrollmentID, itemID string) (bool, error) {
	const query = `SELECT 1 FROM submissions WHERE enrollment_id = $1 AND item_id = $2 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, enrollmentID, itemID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check submission: %w", err)
	}
	return true, nil
}

// Create persists a new submission record.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	submission.CreatedAt = now
	submission.UpdatedAt = now
	const query = `INSERT INTO submissions (id, enrollment_id, item_id, content, status, submitted_at, created_at, updated_at)
        VALUES (:id, :enrollment_id, :item_id, :content, :status, :submitted_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// Update persists content, status and submitted_at for a submission.
func (r *SubmissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	submission.UpdatedAt = time.Now().UTC()
	const query = `UPDATE submissions SET content = :content, status = :status, submitted_at = :submitted_at, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	return nil
}

// ListByEnrollment returns the enrollment's submissions.
func (r *SubmissionRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Submission, error) {
	const query = `SELECT id, enrollment_id, item_id, content, status, submitted_at, created_at, updated_at
        FROM submissions WHERE enrollment_id = $1 ORDER BY created_at`
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}
