package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-assess-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, course_id, student_id, status, final_grade, joined_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindActiveByCourseAndStudent returns the student's active enrollment for a course.
func (r *EnrollmentRepository) FindActiveByCourseAndStudent(ctx context.Context, courseID, studentID string) (*models.Enrollment, error) {
	const query = `SELECT id, course_id, student_id, status, final_grade, joined_at
        FROM enrollments WHERE course_id = $1 AND student_id = $2 AND status = $3`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, courseID, studentID, models.EnrollmentStatusActive); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListActiveByCourse returns every active enrollment of a course.
func (r *EnrollmentRepository) ListActiveByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error) {
	const query = `SELECT id, course_id, student_id, status, final_grade, joined_at
        FROM enrollments WHERE course_id = $1 AND status = $2 ORDER BY joined_at`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, courseID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list course enrollments: %w", err)
	}
	return enrollments, nil
}

// UpdateFinalGrade writes the denormalized final grade cache. A nil grade
// clears the cache so stale letters never outlive their inputs.
func (r *EnrollmentRepository) UpdateFinalGrade(ctx context.Context, id string, finalGrade *string) error {
	const query = `UPDATE enrollments SET final_grade = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, finalGrade); err != nil {
		return fmt.Errorf("update final grade: %w", err)
	}
	return nil
}
