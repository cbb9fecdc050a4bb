package models

import "time"

// QuestionType distinguishes auto-graded from manually reviewed questions.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeShortAnswer    QuestionType = "SHORT_ANSWER"
)

// Correctness is the tri-state outcome of evaluating a quiz response.
// Pending means "awaiting manual review" and must never be conflated with
// incorrect.
type Correctness string

const (
	CorrectnessCorrect   Correctness = "CORRECT"
	CorrectnessIncorrect Correctness = "INCORRECT"
	CorrectnessPending   Correctness = "PENDING"
)

// QuizQuestion belongs to a quiz item.
type QuizQuestion struct {
	ID        string       `db:"id" json:"id"`
	ItemID    string       `db:"item_id" json:"item_id"`
	Text      string       `db:"text" json:"text"`
	Type      QuestionType `db:"type" json:"type"`
	Points    float64      `db:"points" json:"points"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	Options   []QuizOption `json:"options,omitempty"`
}

// QuizOption is one choice of a multiple-choice question. Exactly one
// option per question carries is_correct = true.
type QuizOption struct {
	ID         string `db:"id" json:"id"`
	QuestionID string `db:"question_id" json:"question_id"`
	Text       string `db:"text" json:"text"`
	IsCorrect  bool   `db:"is_correct" json:"is_correct"`
	Position   int    `db:"position" json:"position"`
}

// QuizResponse records a student's answer to one question within a
// submission. Unique per (submission, question); re-submission overwrites
// in place.
type QuizResponse struct {
	ID           string      `db:"id" json:"id"`
	SubmissionID string      `db:"submission_id" json:"submission_id"`
	QuestionID   string      `db:"question_id" json:"question_id"`
	RawAnswer    string      `db:"raw_answer" json:"raw_answer"`
	Correctness  Correctness `db:"correctness" json:"correctness"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// ScoredResponse joins a response with the points its question is worth.
type ScoredResponse struct {
	QuizResponse
	QuestionPoints float64 `db:"question_points" json:"question_points"`
}
