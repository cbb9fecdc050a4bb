package models

import "time"

// ItemGrade is the authoritative points-earned record per (enrollment, item).
// It exists independently of any submission row so that instructor overrides
// (for example manual short-answer credit) can be recorded directly.
type ItemGrade struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	ItemID       string    `db:"item_id" json:"item_id"`
	PointsEarned float64   `db:"points_earned" json:"points_earned"`
	GradedAt     time.Time `db:"graded_at" json:"graded_at"`
}

// GradeSummary is the student-facing view of standing in one course.
type GradeSummary struct {
	CourseID      string      `json:"course_id"`
	EnrollmentID  string      `json:"enrollment_id"`
	Grades        []ItemGrade `json:"grades"`
	UngradedItems []Item      `json:"ungraded_items"`
	Percentage    *float64    `json:"percentage,omitempty"`
	FinalGrade    *string     `json:"final_grade,omitempty"`
}

// EnrollmentFinalGrade is one successful outcome of a course finalize run.
type EnrollmentFinalGrade struct {
	EnrollmentID string  `json:"enrollment_id"`
	StudentID    string  `json:"student_id"`
	FinalGrade   *string `json:"final_grade"`
}

// FinalizeFailure records a per-student failure without aborting the batch.
type FinalizeFailure struct {
	EnrollmentID string `json:"enrollment_id"`
	StudentID    string `json:"student_id"`
	Reason       string `json:"reason"`
}

// CourseFinalizeResult summarises a finalize run across a course.
type CourseFinalizeResult struct {
	CourseID string                 `json:"course_id"`
	Results  []EnrollmentFinalGrade `json:"results"`
	Failures []FinalizeFailure      `json:"failures,omitempty"`
}
