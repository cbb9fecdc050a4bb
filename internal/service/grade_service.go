package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-assess-api/internal/models"
	appErrors "github.com/noah-isme/lms-assess-api/pkg/errors"
)

type itemGradeRepo interface {
	Upsert(ctx context.Context, grade *models.ItemGrade) error
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.ItemGrade, error)
	ListByItem(ctx context.Context, itemID string) ([]models.ItemGrade, error)
	ListGradableByEnrollment(ctx context.Context, enrollmentID, courseID string) ([]models.ItemGrade, error)
}

type enrollmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindActiveByCourseAndStudent(ctx context.Context, courseID, studentID string) (*models.Enrollment, error)
	UpdateFinalGrade(ctx context.Context, id string, finalGrade *string) error
}

type itemStore interface {
	FindByID(ctx context.Context, id string) (*models.Item, error)
	ListGradableByCourse(ctx context.Context, courseID string) ([]models.Item, error)
}

type summaryCache interface {
	Get(ctx context.Context, courseID, enrollmentID string) (*models.GradeSummary, bool)
	Set(ctx context.Context, summary *models.GradeSummary)
	Invalidate(ctx context.Context, courseID, enrollmentID string)
}

type gradeMetrics interface {
	CacheHit()
	CacheMiss()
	GradeRecalculated()
}

// GradeItemRequest records points earned for an (enrollment, item) pair.
// PointsEarned of zero is a legitimate grade, not an omission.
type GradeItemRequest struct {
	EnrollmentID string  `json:"enrollment_id" validate:"required"`
	ItemID       string  `json:"item_id" validate:"required"`
	PointsEarned float64 `json:"points_earned" validate:"gte=0"`
}

// gradeBands maps the inclusive lower bound of each percentage band to its
// letter. Ordered highest first; anything below 60 is an F.
var gradeBands = []struct {
	min    float64
	letter string
}{
	{93, "A"},
	{90, "A-"},
	{87, "B+"},
	{83, "B"},
	{80, "B-"},
	{77, "C+"},
	{73, "C"},
	{70, "C-"},
	{67, "D+"},
	{63, "D"},
	{60, "D-"},
}

// LetterGrade converts a percentage into a letter. Total and pure: every
// real input maps to exactly one band.
func LetterGrade(percentage float64) string {
	for _, band := range gradeBands {
		if percentage >= band.min {
			return band.letter
		}
	}
	return "F"
}

// Percentage computes earned points over the max points of the graded
// items. An empty denominator yields 0, never NaN.
func Percentage(grades []models.ItemGrade, maxByItem map[string]float64) float64 {
	var earned, possible float64
	for _, grade := range grades {
		max, ok := maxByItem[grade.ItemID]
		if !ok {
			continue
		}
		earned += grade.PointsEarned
		possible += max
	}
	if possible == 0 {
		return 0
	}
	return earned / possible * 100
}

// GradeService owns the item grade store and the final grade aggregation.
// It is the sole writer of Enrollment.FinalGrade.
type GradeService struct {
	grades      itemGradeRepo
	enrollments enrollmentStore
	items       itemStore
	cache       summaryCache
	metrics     gradeMetrics
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs GradeService. Cache and metrics are optional.
func NewGradeService(grades itemGradeRepo, enrollments enrollmentStore, items itemStore, cache summaryCache, metrics gradeMetrics, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		grades:      grades,
		enrollments: enrollments,
		items:       items,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// GradeItem validates and upserts a grade, then synchronously recomputes
// the enrollment's final grade so the aggregate never goes stale. Points
// above the item maximum are rejected outright, never clamped. The early
// check here produces the detailed message; the store re-applies the same
// guard inside the write statement, so a concurrent change to the item
// maximum between the check and the write still cannot persist an
// out-of-range grade.
func (s *GradeService) GradeItem(ctx context.Context, req GradeItemRequest) (*models.ItemGrade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	enrollment, err := s.enrollments.FindByID(ctx, req.EnrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	item, err := s.items.FindByID(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
	}
	if !item.Kind.Gradable() {
		return nil, appErrors.Clone(appErrors.ErrInvalidItemKind, "document items cannot be graded")
	}
	if item.CourseID != enrollment.CourseID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment does not belong to the item's course")
	}
	if req.PointsEarned > item.MaxPoints {
		return nil, appErrors.Clone(appErrors.ErrOutOfRange,
			fmt.Sprintf("points earned %.2f exceed item maximum %.2f", req.PointsEarned, item.MaxPoints))
	}

	grade := &models.ItemGrade{
		EnrollmentID: req.EnrollmentID,
		ItemID:       req.ItemID,
		PointsEarned: req.PointsEarned,
	}
	if err := s.grades.Upsert(ctx, grade); err != nil {
		if appErrors.Is(err, appErrors.ErrOutOfRange) {
			return nil, appErrors.Clone(appErrors.ErrOutOfRange,
				fmt.Sprintf("points earned %.2f exceed the item's current maximum", req.PointsEarned))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upsert grade")
	}
	if _, err := s.ComputeForEnrollment(ctx, enrollment); err != nil {
		return nil, err
	}
	return grade, nil
}

// ListByEnrollment returns the grades recorded for an enrollment.
func (s *GradeService) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.ItemGrade, error) {
	grades, err := s.grades.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// ListByItem returns the grades recorded for an item.
func (s *GradeService) ListByItem(ctx context.Context, itemID string) ([]models.ItemGrade, error) {
	grades, err := s.grades.ListByItem(ctx, itemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// ComputeFinalGrade recomputes and persists the final grade for the
// student's active enrollment in a course. Nil means no grade can yet be
// stated: either the course has no gradable items or the student has no
// recorded grades. A premature F is never reported.
func (s *GradeService) ComputeFinalGrade(ctx context.Context, courseID, studentID string) (*string, error) {
	enrollment, err := s.enrollments.FindActiveByCourseAndStudent(ctx, courseID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "active enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return s.ComputeForEnrollment(ctx, enrollment)
}

// ComputeForEnrollment aggregates over the items that have a recorded
// grade (ungraded items are excluded from numerator and denominator, not
// treated as zero) and writes the result to the enrollment row. The write
// happens even when the result is nil so the cache stays recomputable.
func (s *GradeService) ComputeForEnrollment(ctx context.Context, enrollment *models.Enrollment) (*string, error) {
	items, err := s.items.ListGradableByCourse(ctx, enrollment.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list gradable items")
	}
	grades, err := s.grades.ListGradableByEnrollment(ctx, enrollment.ID, enrollment.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}

	var final *string
	if len(items) > 0 && len(grades) > 0 {
		maxByItem := make(map[string]float64, len(items))
		for _, item := range items {
			maxByItem[item.ID] = item.MaxPoints
		}
		letter := LetterGrade(Percentage(grades, maxByItem))
		final = &letter
	}

	if err := s.enrollments.UpdateFinalGrade(ctx, enrollment.ID, final); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist final grade")
	}
	enrollment.FinalGrade = final
	if s.cache != nil {
		s.cache.Invalidate(ctx, enrollment.CourseID, enrollment.ID)
	}
	if s.metrics != nil {
		s.metrics.GradeRecalculated()
	}
	return final, nil
}

// MyGrades assembles the student-facing grade summary for one course:
// recorded grades, gradable items still awaiting a grade and the current
// final letter. Served from cache when fresh.
func (s *GradeService) MyGrades(ctx context.Context, courseID, studentID string) (*models.GradeSummary, error) {
	enrollment, err := s.enrollments.FindActiveByCourseAndStudent(ctx, courseID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "active enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if s.cache != nil {
		if summary, ok := s.cache.Get(ctx, courseID, enrollment.ID); ok {
			if s.metrics != nil {
				s.metrics.CacheHit()
			}
			return summary, nil
		}
		if s.metrics != nil {
			s.metrics.CacheMiss()
		}
	}

	items, err := s.items.ListGradableByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list gradable items")
	}
	grades, err := s.grades.ListGradableByEnrollment(ctx, enrollment.ID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}

	gradedItems := make(map[string]bool, len(grades))
	for _, grade := range grades {
		gradedItems[grade.ItemID] = true
	}
	ungraded := make([]models.Item, 0, len(items))
	maxByItem := make(map[string]float64, len(items))
	for _, item := range items {
		maxByItem[item.ID] = item.MaxPoints
		if !gradedItems[item.ID] {
			ungraded = append(ungraded, item)
		}
	}

	summary := &models.GradeSummary{
		CourseID:      courseID,
		EnrollmentID:  enrollment.ID,
		Grades:        grades,
		UngradedItems: ungraded,
		FinalGrade:    enrollment.FinalGrade,
	}
	if len(items) > 0 && len(grades) > 0 {
		pct := Percentage(grades, maxByItem)
		summary.Percentage = &pct
	}
	if s.cache != nil {
		s.cache.Set(ctx, summary)
	}
	return summary, nil
}
