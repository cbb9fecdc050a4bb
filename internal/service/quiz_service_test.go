package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-assess-api/internal/models"
	appErrors "github.com/noah-isme/lms-assess-api/pkg/errors"
)

type mockQuizRepo struct {
	questions map[string]*models.QuizQuestion
	responses map[string]*models.QuizResponse
	scored    []models.ScoredResponse
}

func (m *mockQuizRepo) FindQuestion(ctx context.Context, id string) (*models.QuizQuestion, error) {
	if q, ok := m.questions[id]; ok {
		return q, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockQuizRepo) ListQuestionsByItem(ctx context.Context, itemID string) ([]models.QuizQuestion, error) {
	var result []models.QuizQuestion
	for _, q := range m.questions {
		if q.ItemID == itemID {
			result = append(result, *q)
		}
	}
	return result, nil
}

func (m *mockQuizRepo) UpsertResponse(ctx context.Context, response *models.QuizResponse) error {
	if m.responses == nil {
		m.responses = make(map[string]*models.QuizResponse)
	}
	copied := *response
	m.responses[response.SubmissionID+"/"+response.QuestionID] = &copied
	return nil
}

func (m *mockQuizRepo) ListScoredBySubmission(ctx context.Context, submissionID string) ([]models.ScoredResponse, error) {
	var result []models.ScoredResponse
	for _, r := range m.scored {
		if r.SubmissionID == submissionID {
			result = append(result, r)
		}
	}
	return result, nil
}

func multipleChoiceQuestion(id, itemID, correctOptionID string, points float64) *models.QuizQuestion {
	return &models.QuizQuestion{
		ID:     id,
		ItemID: itemID,
		Type:   models.QuestionTypeMultipleChoice,
		Points: points,
		Options: []models.QuizOption{
			{ID: correctOptionID, QuestionID: id, IsCorrect: true, Position: 1},
			{ID: correctOptionID + "-wrong", QuestionID: id, IsCorrect: false, Position: 2},
		},
	}
}

func newQuizFixture() (*QuizService, *mockQuizRepo, *mockSubmissionRepo) {
	quizzes := &mockQuizRepo{questions: map[string]*models.QuizQuestion{
		"q-1": multipleChoiceQuestion("q-1", "item-1", "opt-1", 5),
		"q-2": {ID: "q-2", ItemID: "item-1", Type: models.QuestionTypeShortAnswer, Points: 10},
		"q-3": multipleChoiceQuestion("q-3", "item-other", "opt-3", 5),
	}}
	submissions := &mockSubmissionRepo{submissions: map[string]*models.Submission{
		"sub-1": {ID: "sub-1", EnrollmentID: "enr-1", ItemID: "item-1", Status: models.SubmissionStatusSubmitted},
		"sub-2": {ID: "sub-2", EnrollmentID: "enr-1", ItemID: "item-1", Status: models.SubmissionStatusGraded},
	}}
	enrollments := &mockEnrollmentReader{enrollments: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", CourseID: "course-1", StudentID: "stu-1", Status: models.EnrollmentStatusActive},
	}}
	return NewQuizService(quizzes, submissions, enrollments, nil, nil), quizzes, submissions
}

func TestEvaluateResponse(t *testing.T) {
	mc := multipleChoiceQuestion("q-1", "item-1", "opt-1", 5)
	short := &models.QuizQuestion{ID: "q-2", Type: models.QuestionTypeShortAnswer}
	noCorrect := &models.QuizQuestion{
		ID:   "q-3",
		Type: models.QuestionTypeMultipleChoice,
		Options: []models.QuizOption{
			{ID: "opt-a"}, {ID: "opt-b"},
		},
	}

	assert.Equal(t, models.CorrectnessCorrect, EvaluateResponse(mc, "opt-1"))
	assert.Equal(t, models.CorrectnessIncorrect, EvaluateResponse(mc, "opt-1-wrong"))
	assert.Equal(t, models.CorrectnessIncorrect, EvaluateResponse(mc, "not-an-option"))
	assert.Equal(t, models.CorrectnessPending, EvaluateResponse(short, "anything at all"))
	assert.Equal(t, models.CorrectnessIncorrect, EvaluateResponse(noCorrect, "opt-a"))
}

func TestQuizSubmitResponseEvaluatesAtWrite(t *testing.T) {
	svc, quizzes, _ := newQuizFixture()

	response, err := svc.SubmitResponse(context.Background(), SubmitQuizResponseRequest{
		SubmissionID: "sub-1",
		QuestionID:   "q-1",
		RawAnswer:    "opt-1",
	}, studentClaims("stu-1"))

	require.NoError(t, err)
	assert.Equal(t, models.CorrectnessCorrect, response.Correctness)
	require.Contains(t, quizzes.responses, "sub-1/q-1")
}

func TestQuizSubmitResponseOverwritesInPlace(t *testing.T) {
	svc, quizzes, _ := newQuizFixture()
	ctx := context.Background()

	_, err := svc.SubmitResponse(ctx, SubmitQuizResponseRequest{
		SubmissionID: "sub-1", QuestionID: "q-1", RawAnswer: "opt-1-wrong",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.CorrectnessIncorrect, quizzes.responses["sub-1/q-1"].Correctness)

	_, err = svc.SubmitResponse(ctx, SubmitQuizResponseRequest{
		SubmissionID: "sub-1", QuestionID: "q-1", RawAnswer: "opt-1",
	}, nil)
	require.NoError(t, err)
	assert.Len(t, quizzes.responses, 1)
	assert.Equal(t, models.CorrectnessCorrect, quizzes.responses["sub-1/q-1"].Correctness)
}

func TestQuizSubmitResponseShortAnswerPending(t *testing.T) {
	svc, _, _ := newQuizFixture()

	response, err := svc.SubmitResponse(context.Background(), SubmitQuizResponseRequest{
		SubmissionID: "sub-1", QuestionID: "q-2", RawAnswer: "photosynthesis",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, models.CorrectnessPending, response.Correctness)
}

func TestQuizSubmitResponseRejectsGradedSubmission(t *testing.T) {
	svc, _, _ := newQuizFixture()

	_, err := svc.SubmitResponse(context.Background(), SubmitQuizResponseRequest{
		SubmissionID: "sub-2", QuestionID: "q-1", RawAnswer: "opt-1",
	}, nil)

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestQuizSubmitResponseRejectsForeignQuestion(t *testing.T) {
	svc, _, _ := newQuizFixture()

	_, err := svc.SubmitResponse(context.Background(), SubmitQuizResponseRequest{
		SubmissionID: "sub-1", QuestionID: "q-3", RawAnswer: "opt-3",
	}, nil)

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestQuizSubmitResponseRejectsForeignStudent(t *testing.T) {
	svc, _, _ := newQuizFixture()

	_, err := svc.SubmitResponse(context.Background(), SubmitQuizResponseRequest{
		SubmissionID: "sub-1", QuestionID: "q-1", RawAnswer: "opt-1",
	}, studentClaims("stu-2"))

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestQuizScoreSumsCorrectOnly(t *testing.T) {
	svc, quizzes, _ := newQuizFixture()
	quizzes.scored = []models.ScoredResponse{
		{QuizResponse: models.QuizResponse{SubmissionID: "sub-1", QuestionID: "q-1", Correctness: models.CorrectnessCorrect}, QuestionPoints: 5},
		{QuizResponse: models.QuizResponse{SubmissionID: "sub-1", QuestionID: "q-2", Correctness: models.CorrectnessPending}, QuestionPoints: 10},
		{QuizResponse: models.QuizResponse{SubmissionID: "sub-1", QuestionID: "q-4", Correctness: models.CorrectnessIncorrect}, QuestionPoints: 3},
	}

	score, err := svc.Score(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, 5.0, score.Points)
	assert.Equal(t, 1, score.Pending)

	// Scoring writes nothing, so a second pass returns the same result.
	again, err := svc.Score(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, score, again)
}

func TestQuizScoreUnknownSubmission(t *testing.T) {
	svc, _, _ := newQuizFixture()

	_, err := svc.Score(context.Background(), "sub-missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestQuizScoreEmptySubmission(t *testing.T) {
	svc, _, _ := newQuizFixture()

	score, err := svc.Score(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Zero(t, score.Points)
	assert.Zero(t, score.Pending)
}
