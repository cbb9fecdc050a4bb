package models

import "time"

// ItemKind classifies a course item. Only assignments and quizzes are gradable.
type ItemKind string

const (
	ItemKindAssignment ItemKind = "ASSIGNMENT"
	ItemKindQuiz       ItemKind = "QUIZ"
	ItemKindDocument   ItemKind = "DOCUMENT"
)

// Gradable reports whether the kind participates in grading.
func (k ItemKind) Gradable() bool {
	return k == ItemKindAssignment || k == ItemKindQuiz
}

// Course is the unit of enrollment and grade aggregation.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Item is a gradable or informational unit inside a course.
type Item struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Title     string    `db:"title" json:"title"`
	Kind      ItemKind  `db:"kind" json:"kind"`
	MaxPoints float64   `db:"max_points" json:"max_points"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
