package models

import "time"

// TrainingStatus represents the lifecycle of a training session.
// Transitions are caller-driven; only upcoming and ongoing sessions accept
// enrollments.
type TrainingStatus string

const (
	TrainingStatusUpcoming  TrainingStatus = "upcoming"
	TrainingStatusOngoing   TrainingStatus = "ongoing"
	TrainingStatusCompleted TrainingStatus = "completed"
)

// Valid returns true when the status is a supported value.
func (s TrainingStatus) Valid() bool {
	switch s {
	case TrainingStatusUpcoming, TrainingStatusOngoing, TrainingStatusCompleted:
		return true
	default:
		return false
	}
}

// Enrollable reports whether the status permits new enrollments.
func (s TrainingStatus) Enrollable() bool {
	return s == TrainingStatusUpcoming || s == TrainingStatusOngoing
}

// TrainingSession is a scheduled training event with finite capacity.
// Code is the human-readable identifier shown on certificates and rosters.
type TrainingSession struct {
	ID        string         `db:"id" json:"id"`
	Code      string         `db:"code" json:"code"`
	Title     string         `db:"title" json:"title"`
	Topic     string         `db:"topic" json:"topic"`
	Date      time.Time      `db:"date" json:"date"`
	Time      *string        `db:"time" json:"time,omitempty"`
	Venue     string         `db:"venue" json:"venue"`
	Speaker   string         `db:"speaker" json:"speaker"`
	Capacity  int            `db:"capacity" json:"capacity"`
	Status    TrainingStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// TrainingFilter provides filters for listing training sessions.
type TrainingFilter struct {
	Status   *TrainingStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PageSize int
}
