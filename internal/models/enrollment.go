package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusDropped   EnrollmentStatus = "DROPPED"
)

// Enrollment captures a student's registration to a course.
//
// FinalGrade is a denormalized cache of the computed letter grade. It is
// written exclusively by the grade aggregation path and recomputed on every
// grade write and on explicit finalize; no other component may touch it.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	CourseID   string           `db:"course_id" json:"course_id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	FinalGrade *string          `db:"final_grade" json:"final_grade,omitempty"`
	JoinedAt   time.Time        `db:"joined_at" json:"joined_at"`
}
