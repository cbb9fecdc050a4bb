package models

import "time"

// SubmissionStatus is the closed set of submission lifecycle states.
type SubmissionStatus string

const (
	SubmissionStatusDraft     SubmissionStatus = "DRAFT"
	SubmissionStatusSubmitted SubmissionStatus = "SUBMITTED"
	SubmissionStatusGraded    SubmissionStatus = "GRADED"
)

// Valid reports whether s is a member of the closed enum.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusDraft, SubmissionStatusSubmitted, SubmissionStatusGraded:
		return true
	}
	return false
}

// CanTransitionTo enumerates every legal status edge. Graded is terminal:
// the only edge out of it is the idempotent self-loop. Re-submitting an
// already submitted submission is allowed and is a no-op on the timestamp.
func (s SubmissionStatus) CanTransitionTo(next SubmissionStatus) bool {
	switch s {
	case SubmissionStatusDraft:
		return next == SubmissionStatusDraft || next == SubmissionStatusSubmitted || next == SubmissionStatusGraded
	case SubmissionStatusSubmitted:
		return next == SubmissionStatusSubmitted || next == SubmissionStatusGraded
	case SubmissionStatusGraded:
		return next == SubmissionStatusGraded
	}
	return false
}

// Submission is a student's work artifact for one gradable item.
// Unique per (enrollment, item).
type Submission struct {
	ID           string           `db:"id" json:"id"`
	EnrollmentID string           `db:"enrollment_id" json:"enrollment_id"`
	ItemID       string           `db:"item_id" json:"item_id"`
	Content      *string          `db:"content" json:"content,omitempty"`
	Status       SubmissionStatus `db:"status" json:"status"`
	SubmittedAt  *time.Time       `db:"submitted_at" json:"submitted_at,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}
