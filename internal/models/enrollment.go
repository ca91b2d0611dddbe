package models

import "time"

// EnrollmentOutcome classifies the result of an enroll request. The three
// outcomes are mutually exclusive and exhaustive; callers are expected to
// branch on them rather than treat already_enrolled or capacity_exceeded
// as errors.
type EnrollmentOutcome string

const (
	EnrollmentOutcomeEnrolled         EnrollmentOutcome = "enrolled"
	EnrollmentOutcomeAlreadyEnrolled  EnrollmentOutcome = "already_enrolled"
	EnrollmentOutcomeCapacityExceeded EnrollmentOutcome = "capacity_exceeded"
)

// Enrollment links one officer to one training session. At most one row
// exists per (officer, training) pair.
type Enrollment struct {
	ID           string    `db:"id" json:"id"`
	OfficerID    string    `db:"officer_id" json:"officer_id"`
	TrainingID   string    `db:"training_id" json:"training_id"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

// EnrollmentDetail enriches Enrollment with officer and training info.
type EnrollmentDetail struct {
	Enrollment
	OfficerName   string  `db:"officer_name" json:"officer_name"`
	Cooperative   *string `db:"cooperative" json:"cooperative,omitempty"`
	TrainingCode  string  `db:"training_code" json:"training_code"`
	TrainingTitle string  `db:"training_title" json:"training_title"`
}

// EnrollmentResult is the response of the enroll operation.
type EnrollmentResult struct {
	Outcome    EnrollmentOutcome `json:"outcome"`
	Enrollment *Enrollment       `json:"enrollment,omitempty"`
}

// RosterEntry reconciles an enrollment against the attendance ledger at
// read time. CheckedIn is a set-difference view, never stored.
type RosterEntry struct {
	EnrollmentID string     `db:"enrollment_id" json:"enrollment_id"`
	OfficerID    string     `db:"officer_id" json:"officer_id"`
	OfficerName  string     `db:"officer_name" json:"officer_name"`
	Cooperative  *string    `db:"cooperative" json:"cooperative,omitempty"`
	RegisteredAt time.Time  `db:"registered_at" json:"registered_at"`
	CheckedIn    bool       `db:"checked_in" json:"checked_in"`
	RecordedAt   *time.Time `db:"recorded_at" json:"recorded_at,omitempty"`
}
