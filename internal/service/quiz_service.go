package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-assess-api/internal/models"
	appErrors "github.com/noah-isme/lms-assess-api/pkg/errors"
)

type quizRepo interface {
	FindQuestion(ctx context.Context, id string) (*models.QuizQuestion, error)
	ListQuestionsByItem(ctx context.Context, itemID string) ([]models.QuizQuestion, error)
	UpsertResponse(ctx context.Context, response *models.QuizResponse) error
	ListScoredBySubmission(ctx context.Context, submissionID string) ([]models.ScoredResponse, error)
}

type submissionReader interface {
	FindByID(ctx context.Context, id string) (*models.Submission, error)
}

// SubmitQuizResponseRequest records a student's answer to one question.
type SubmitQuizResponseRequest struct {
	SubmissionID string `json:"submission_id" validate:"required"`
	QuestionID   string `json:"question_id" validate:"required"`
	RawAnswer    string `json:"raw_answer" validate:"required"`
}

// QuizScore is the summed result of scoring one submission.
type QuizScore struct {
	SubmissionID string  `json:"submission_id"`
	Points       float64 `json:"points"`
	Pending      int     `json:"pending_responses"`
}

// EvaluateResponse determines correctness for a raw answer. It is pure.
//
// Multiple choice compares the answer against the id of the unique correct
// option; a malformed question with no correct option yields INCORRECT
// rather than an error so a data problem never blocks a student. Short
// answers always come back PENDING: credit is assigned by a human through
// the item grade path, never guessed here.
func EvaluateResponse(question *models.QuizQuestion, rawAnswer string) models.Correctness {
	if question.Type == models.QuestionTypeShortAnswer {
		return models.CorrectnessPending
	}
	for _, option := range question.Options {
		if option.IsCorrect {
			if option.ID == rawAnswer {
				return models.CorrectnessCorrect
			}
			return models.CorrectnessIncorrect
		}
	}
	return models.CorrectnessIncorrect
}

// QuizService evaluates and scores quiz responses.
type QuizService struct {
	quizzes     quizRepo
	submissions submissionReader
	enrollments enrollmentReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewQuizService constructs QuizService.
func NewQuizService(quizzes quizRepo, submissions submissionReader, enrollments enrollmentReader, validate *validator.Validate, logger *zap.Logger) *QuizService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizService{quizzes: quizzes, submissions: submissions, enrollments: enrollments, validator: validate, logger: logger}
}

// SubmitResponse evaluates the answer at write time and upserts the
// response, so per-question correctness is visible immediately.
// Re-submitting the same question overwrites in place.
func (s *QuizService) SubmitResponse(ctx context.Context, req SubmitQuizResponseRequest, actor *models.JWTClaims) (*models.QuizResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid response payload")
	}
	submission, err := s.submissions.FindByID(ctx, req.SubmissionID)
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
	if submission.Status == models.SubmissionStatusGraded {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "submission already graded")
	}
	question, err := s.quizzes.FindQuestion(ctx, req.QuestionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question")
	}
	if question.ItemID != submission.ItemID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "question does not belong to the submission's quiz")
	}

	response := &models.QuizResponse{
		SubmissionID: req.SubmissionID,
		QuestionID:   req.QuestionID,
		RawAnswer:    req.RawAnswer,
		Correctness:  EvaluateResponse(question, req.RawAnswer),
	}
	if err := s.quizzes.UpsertResponse(ctx, response); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store response")
	}
	return response, nil
}

// Score sums question points over correct responses for one submission.
// Pending responses contribute zero until a human grades them via an item
// grade override. The calculation is idempotent and writes nothing.
func (s *QuizService) Score(ctx context.Context, submissionID string) (*QuizScore, error) {
	if _, err := s.submissions.FindByID(ctx, submissionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	responses, err := s.quizzes.ListScoredBySubmission(ctx, submissionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load responses")
	}
	score := &QuizScore{SubmissionID: submissionID}
	for _, response := range responses {
		switch response.Correctness {
		case models.CorrectnessCorrect:
			score.Points += response.QuestionPoints
		case models.CorrectnessPending:
			score.Pending++
		}
	}
	return score, nil
}

// ListQuestions returns the questions of a quiz item.
func (s *QuizService) ListQuestions(ctx context.Context, itemID string) ([]models.QuizQuestion, error) {
	questions, err := s.quizzes.ListQuestionsByItem(ctx, itemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}
	return questions, nil
}
