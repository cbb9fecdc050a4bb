package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-assess-api/internal/models"
	appErrors "github.com/noah-isme/lms-assess-api/pkg/errors"
)

// ItemGradeRepository manages the authoritative points-earned records.
type ItemGradeRepository struct {
	db *sqlx.DB
}

// NewItemGradeRepository constructs the repository.
func NewItemGradeRepository(db *sqlx.DB) *ItemGradeRepository {
	return &ItemGradeRepository{db: db}
}

// Upsert inserts or updates the grade for an (enrollment, item) pair in a
// single statement. The statement sources its row from the item itself and
// revalidates points_earned against the item's current max_points, so the
// range guard and the write commit atomically; a concurrent change to the
// item maximum cannot slip an out-of-range grade through. Zero rows
// affected means the guard rejected the write.
func (r *ItemGradeRepository) Upsert(ctx context.Context, grade *models.ItemGrade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	if grade.GradedAt.IsZero() {
		grade.GradedAt = time.Now().UTC()
	}
	const query = `INSERT INTO item_grades (id, enrollment_id, item_id, points_earned, graded_at)
        SELECT $1, $2, $3, $4, $5
        FROM items i
        WHERE i.id = $3 AND i.max_points >= $4
        ON CONFLICT (enrollment_id, item_id)
        DO UPDATE SET points_earned = EXCLUDED.points_earned, graded_at = EXCLUDED.graded_at`
	result, err := r.db.ExecContext(ctx, query, grade.ID, grade.EnrollmentID, grade.ItemID, grade.PointsEarned, grade.GradedAt)
	if err != nil {
		return fmt.Errorf("upsert item grade: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert item grade: %w", err)
	}
	if rows == 0 {
		return appErrors.Clone(appErrors.ErrOutOfRange, "points earned exceed item maximum")
	}
	return nil
}

// ListByEnrollment returns every grade recorded for an enrollment.
func (r *ItemGradeRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.ItemGrade, error) {
	const query = `SELECT id, enrollment_id, item_id, points_earned, graded_at
        FROM item_grades WHERE enrollment_id = $1 ORDER BY graded_at`
	var grades []models.ItemGrade
	if err := r.db.SelectContext(ctx, &grades, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list enrollment grades: %w", err)
	}
	return grades, nil
}

// ListByItem returns every grade recorded for an item.
func (r *ItemGradeRepository) ListByItem(ctx context.Context, itemID string) ([]models.ItemGrade, error) {
	const query = `SELECT id, enrollment_id, item_id, points_earned, graded_at
        FROM item_grades WHERE item_id = $1 ORDER BY graded_at`
	var grades []models.ItemGrade
	if err := r.db.SelectContext(ctx, &grades, query, itemID); err != nil {
		return nil, fmt.Errorf("list item grades: %w", err)
	}
	return grades, nil
}

// ListGradableByEnrollment returns the enrollment's grades restricted to
// gradable items of the given course.
func (r *ItemGradeRepository) ListGradableByEnrollment(ctx context.Context, enrollmentID, courseID string) ([]models.ItemGrade, error) {
	const query = `SELECT ig.id, ig.enrollment_id, ig.item_id, ig.points_earned, ig.graded_at
        FROM item_grades ig
        JOIN items i ON i.id = ig.item_id
        WHERE ig.enrollment_id = $1 AND i.course_id = $2 AND i.kind IN ($3, $4)
        ORDER BY ig.graded_at`
	var grades []models.ItemGrade
	if err := r.db.SelectContext(ctx, &grades, query, enrollmentID, courseID, models.ItemKindAssignment, models.ItemKindQuiz); err != nil {
		return nil, fmt.Errorf("list course grades: %w", err)
	}
	return grades, nil
}
