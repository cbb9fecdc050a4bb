package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-assess-api/internal/models"
)

func TestQuizRepositoryFindQuestionLoadsOptionsInOrder(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQuizRepository(db)

	now := time.Now()
	questionRows := sqlmock.NewRows([]string{"id", "item_id", "text", "type", "points", "created_at"}).
		AddRow("q-1", "item-1", "2+2?", models.QuestionTypeMultipleChoice, 5.0, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, item_id, text, type, points, created_at FROM quiz_questions WHERE id = $1")).
		WithArgs("q-1").
		WillReturnRows(questionRows)

	optionRows := sqlmock.NewRows([]string{"id", "question_id", "text", "is_correct", "position"}).
		AddRow("opt-1", "q-1", "4", true, 1).
		AddRow("opt-2", "q-1", "5", false, 2)
	mock.ExpectQuery(regexp.QuoteMeta("FROM quiz_options WHERE question_id = $1 ORDER BY position")).
		WithArgs("q-1").
		WillReturnRows(optionRows)

	question, err := repo.FindQuestion(context.Background(), "q-1")
	require.NoError(t, err)
	require.Len(t, question.Options, 2)
	require.True(t, question.Options[0].IsCorrect)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizRepositoryFindQuestionShortAnswerSkipsOptions(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQuizRepository(db)

	rows := sqlmock.NewRows([]string{"id", "item_id", "text", "type", "points", "created_at"}).
		AddRow("q-2", "item-1", "Explain photosynthesis", models.QuestionTypeShortAnswer, 10.0, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, item_id, text, type, points, created_at FROM quiz_questions WHERE id = $1")).
		WithArgs("q-2").
		WillReturnRows(rows)

	question, err := repo.FindQuestion(context.Background(), "q-2")
	require.NoError(t, err)
	require.Empty(t, question.Options)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizRepositoryUpsertResponse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQuizRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (submission_id, question_id)")).
		WithArgs(sqlmock.AnyArg(), "sub-1", "q-1", "opt-1", models.CorrectnessCorrect, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	response := &models.QuizResponse{
		SubmissionID: "sub-1",
		QuestionID:   "q-1",
		RawAnswer:    "opt-1",
		Correctness:  models.CorrectnessCorrect,
	}
	require.NoError(t, repo.UpsertResponse(context.Background(), response))
	require.NotEmpty(t, response.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizRepositoryListScoredBySubmission(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQuizRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "submission_id", "question_id", "raw_answer", "correctness", "created_at", "updated_at", "question_points"}).
		AddRow("resp-1", "sub-1", "q-1", "opt-1", models.CorrectnessCorrect, now, now, 5.0).
		AddRow("resp-2", "sub-1", "q-2", "some text", models.CorrectnessPending, now, now, 10.0)
	mock.ExpectQuery(regexp.QuoteMeta("JOIN quiz_questions qq ON qq.id = qr.question_id")).
		WithArgs("sub-1").
		WillReturnRows(rows)

	responses, err := repo.ListScoredBySubmission(context.Background(), "sub-1")
	require.NoError(t, err)
	require.Len(t, responses, 2)
	require.Equal(t, 5.0, responses[0].QuestionPoints)
	require.Equal(t, models.CorrectnessPending, responses[1].Correctness)
	require.NoError(t, mock.ExpectationsWereMet())
}
