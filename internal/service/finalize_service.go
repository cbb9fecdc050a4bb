package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-assess-api/internal/models"
	appErrors "github.com/noah-isme/lms-assess-api/pkg/errors"
)

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type enrollmentLister interface {
	ListActiveByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error)
}

type finalGradeComputer interface {
	ComputeForEnrollment(ctx context.Context, enrollment *models.Enrollment) (*string, error)
}

type finalizeMetrics interface {
	ObserveFinalize(d time.Duration)
}

// FinalizeService batch-computes final grades across a course.
type FinalizeService struct {
	courses     courseReader
	enrollments enrollmentLister
	computer    finalGradeComputer
	metrics     finalizeMetrics
	logger      *zap.Logger
}

// NewFinalizeService constructs FinalizeService.
func NewFinalizeService(courses courseReader, enrollments enrollmentLister, computer finalGradeComputer, metrics finalizeMetrics, logger *zap.Logger) *FinalizeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinalizeService{courses: courses, enrollments: enrollments, computer: computer, metrics: metrics, logger: logger}
}

// FinalizeCourse recomputes the final grade of every active enrollment in
// the course. Each student's outcome is independent: a failure is recorded
// against that student and the loop keeps going, so partial success never
// rolls back. Safe to re-run; results come from current grade data.
func (s *FinalizeService) FinalizeCourse(ctx context.Context, courseID string) (*models.CourseFinalizeResult, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	enrollments, err := s.enrollments.ListActiveByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	start := time.Now()
	result := &models.CourseFinalizeResult{CourseID: courseID}
	for i := range enrollments {
		enrollment := enrollments[i]
		final, err := s.computer.ComputeForEnrollment(ctx, &enrollment)
		if err != nil {
			s.logger.Warn("finalize failed for enrollment",
				zap.String("course_id", courseID),
				zap.String("enrollment_id", enrollment.ID),
				zap.Error(err))
			result.Failures = append(result.Failures, models.FinalizeFailure{
				EnrollmentID: enrollment.ID,
				StudentID:    enrollment.StudentID,
				Reason:       err.Error(),
			})
			continue
		}
		result.Results = append(result.Results, models.EnrollmentFinalGrade{
			EnrollmentID: enrollment.ID,
			StudentID:    enrollment.StudentID,
			FinalGrade:   final,
		})
	}
	if s.metrics != nil {
		s.metrics.ObserveFinalize(time.Since(start))
	}
	s.logger.Info("course finalized",
		zap.String("course_id", courseID),
		zap.Int("succeeded", len(result.Results)),
		zap.Int("failed", len(result.Failures)))
	return result, nil
}
