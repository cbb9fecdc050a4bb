package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-assess-api/internal/models"
)

// QuizRepository handles persistence of quiz questions and responses.
type QuizRepository struct {
	db *sqlx.DB
}

// NewQuizRepository constructs the repository.
func NewQuizRepository(db *sqlx.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// FindQuestion returns a question with its options loaded in order.
func (r *QuizRepository) FindQuestion(ctx context.Context, id string) (*models.QuizQuestion, error) {
	const query = `SELECT id, item_id, text, type, points, created_at FROM quiz_questions WHERE id = $1`
	var question models.QuizQuestion
	if err := r.db.GetContext(ctx, &question, query, id); err != nil {
		return nil, err
	}
	if question.Type == models.QuestionTypeMultipleChoice {
		const optQuery = `SELECT id, question_id, text, is_correct, position
            FROM quiz_options WHERE question_id = $1 ORDER BY position`
		if err := r.db.SelectContext(ctx, &question.Options, optQuery, id); err != nil {
			return nil, fmt.Errorf("load quiz options: %w", err)
		}
	}
	return &question, nil
}

// ListQuestionsByItem returns every question of a quiz item.
func (r *QuizRepository) ListQuestionsByItem(ctx context.Context, itemID string) ([]models.QuizQuestion, error) {
	const query = `SELECT id, item_id, text, type, points, created_at FROM quiz_questions WHERE item_id = $1 ORDER BY created_at`
	var questions []models.QuizQuestion
	if err := r.db.SelectContext(ctx, &questions, query, itemID); err != nil {
		return nil, fmt.Errorf("list quiz questions: %w", err)
	}
	return questions, nil
}

// UpsertResponse inserts or overwrites the response for a
// (submission, question) pair. Last write wins.
func (r *QuizRepository) UpsertResponse(ctx context.Context, response *models.QuizResponse) error {
	if response.ID == "" {
		response.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if response.CreatedAt.IsZero() {
		response.CreatedAt = now
	}
	response.UpdatedAt = now
	const query = `INSERT INTO quiz_responses (id, submission_id, question_id, raw_answer, correctness, created_at, updated_at)
        VALUES (:id, :submission_id, :question_id, :raw_answer, :correctness, :created_at, :updated_at)
        ON CONFLICT (submission_id, question_id)
        DO UPDATE SET raw_answer = EXCLUDED.raw_answer, correctness = EXCLUDED.correctness, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, response); err != nil {
		return fmt.Errorf("upsert quiz response: %w", err)
	}
	return nil
}

// ListScoredBySubmission returns the submission's responses joined with the
// points each question is worth.
func (r *QuizRepository) ListScoredBySubmission(ctx context.Context, submissionID string) ([]models.ScoredResponse, error) {
	const query = `SELECT qr.id, qr.submission_id, qr.question_id, qr.raw_answer, qr.correctness, qr.created_at, qr.updated_at,
        qq.points AS question_points
        FROM quiz_responses qr
        JOIN quiz_questions qq ON qq.id = qr.question_id
        WHERE qr.submission_id = $1`
	var responses []models.ScoredResponse
	if err := r.db.SelectContext(ctx, &responses, query, submissionID); err != nil {
		return nil, fmt.Errorf("list scored responses: %w", err)
	}
	return responses, nil
}
