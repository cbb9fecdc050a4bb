package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-assess-api/internal/models"
	appErrors "github.com/noah-isme/lms-assess-api/pkg/errors"
)

type submissionRepo interface {
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	Exists(ctx context.Context, enrollmentID, itemID string) (bool, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Submission, error)
}

type enrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

type itemReader interface {
	FindByID(ctx context.Context, id string) (*models.Item, error)
}

// CreateSubmissionRequest starts a submission for an (enrollment, item) pair.
// Status may be set to SUBMITTED for an explicit immediate-submit; quizzes
// start a submission the moment the student begins.
type CreateSubmissionRequest struct {
	EnrollmentID string                  `json:"enrollment_id" validate:"required"`
	ItemID       string                  `json:"item_id" validate:"required"`
	Content      *string                 `json:"content"`
	Status       models.SubmissionStatus `json:"status" validate:"omitempty,oneof=DRAFT SUBMITTED"`
}

// UpdateSubmissionRequest mutates content and/or status of a submission.
type UpdateSubmissionRequest struct {
	Content *string                  `json:"content"`
	Status  *models.SubmissionStatus `json:"status"`
}

// SubmissionService enforces the submission lifecycle.
type SubmissionService struct {
	submissions submissionRepo
	enrollments enrollmentReader
	items       itemReader
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubmissionService constructs SubmissionService.
func NewSubmissionService(submissions submissionRepo, enrollments enrollmentReader, items itemReader, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		submissions: submissions,
		enrollments: enrollments,
		items:       items,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a new submission in DRAFT, or directly in SUBMITTED when an
// immediate-submit was requested.
func (s *SubmissionService) Create(ctx context.Context, req CreateSubmissionRequest, actor *models.JWTClaims) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	enrollment, err := s.enrollments.FindByID(ctx, req.EnrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := requireOwnership(enrollment, actor); err != nil {
		return nil, err
	}
	item, err := s.items.FindByID(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
	}
	if !item.Kind.Gradable() {
		return nil, appErrors.Clone(appErrors.ErrInvalidItemKind, "document items do not accept submissions")
	}
	if item.CourseID != enrollment.CourseID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment does not belong to the item's course")
	}
	exists, err := s.submissions.Exists(ctx, req.EnrollmentID, req.ItemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing submission")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "submission already exists for this item")
	}

	status := req.Status
	if status == "" {
		status = models.SubmissionStatusDraft
	}
	submission := &models.Submission{
		EnrollmentID: req.EnrollmentID,
		ItemID:       req.ItemID,
		Content:      req.Content,
		Status:       status,
	}
	if status == models.SubmissionStatusSubmitted {
		ts := s.now()
		submission.SubmittedAt = &ts
	}
	if err := s.submissions.Create(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}
	s.logger.Info("submission created",
		zap.String("submission_id", submission.ID),
		zap.String("enrollment_id", submission.EnrollmentID),
		zap.String("item_id", submission.ItemID),
		zap.String("status", string(submission.Status)))
	return submission, nil
}

// Update applies content and status changes under the transition rules.
// SubmittedAt is stamped only on the first move out of DRAFT; an idempotent
// re-submit keeps the original timestamp.
func (s *SubmissionService) Update(ctx context.Context, id string, req UpdateSubmissionRequest, actor *models.JWTClaims) (*models.Submission, error) {
	submission, err := s.submissions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if actor != nil && actor.Role == models.RoleStudent {
		enrollment, err := s.enrollments.FindByID(ctx, submission.EnrollmentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
		}
		if err := requireOwnership(enrollment, actor); err != nil {
			return nil, err
		}
	}

	if req.Status != nil {
		next := *req.Status
		if !next.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown submission status")
		}
		if !submission.Status.CanTransitionTo(next) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot move submission from "+string(submission.Status)+" to "+string(next))
		}
		if next == models.SubmissionStatusSubmitted && submission.Status == models.SubmissionStatusDraft {
			ts := s.now()
			submission.SubmittedAt = &ts
		}
		submission.Status = next
	}
	if req.Content != nil {
		if submission.Status == models.SubmissionStatusGraded {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "graded submissions are immutable")
		}
		submission.Content = req.Content
	}

	if err := s.submissions.Update(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission")
	}
	return submission, nil
}

// Get returns a submission by ID.
func (s *SubmissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	submission, err := s.submissions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return submission, nil
}

// ListByEnrollment returns an enrollment's submissions.
func (s *SubmissionService) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Submission, error) {
	submissions, err := s.submissions.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissions, nil
}

// requireOwnership refuses student access to someone else's enrollment.
// Instructors and admins pass through; the full permission model lives in
// the auth layer upstream.
func requireOwnership(enrollment *models.Enrollment, actor *models.JWTClaims) error {
	if actor == nil || actor.Role != models.RoleStudent {
		return nil
	}
	if enrollment.StudentID != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student")
	}
	return nil
}
