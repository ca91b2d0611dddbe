package models

import "time"

// AttendanceMethod records how presence was captured.
type AttendanceMethod string

const (
	AttendanceMethodManual    AttendanceMethod = "manual"
	AttendanceMethodQR        AttendanceMethod = "qr"
	AttendanceMethodNFC       AttendanceMethod = "nfc"
	AttendanceMethodBiometric AttendanceMethod = "biometric"
)

// Valid returns true when the method is a supported value.
func (m AttendanceMethod) Valid() bool {
	switch m {
	case AttendanceMethodManual, AttendanceMethodQR, AttendanceMethodNFC, AttendanceMethodBiometric:
		return true
	default:
		return false
	}
}

// Attendance is the single presence record for an (officer, training) pair.
// Presence is binary: the row either exists or it does not. A repeated mark
// replaces timestamp and method rather than adding a second row. Attendance
// does not require a prior enrollment (walk-ins are recorded the same way).
type Attendance struct {
	ID         string           `db:"id" json:"id"`
	OfficerID  string           `db:"officer_id" json:"officer_id"`
	TrainingID string           `db:"training_id" json:"training_id"`
	Method     AttendanceMethod `db:"method" json:"method"`
	RecordedAt time.Time        `db:"recorded_at" json:"recorded_at"`
	RecordedBy *string          `db:"recorded_by" json:"recorded_by,omitempty"`
}

// AttendanceDetail extends Attendance with officer metadata for rosters.
type AttendanceDetail struct {
	Attendance
	OfficerName string  `db:"officer_name" json:"officer_name"`
	Cooperative *string `db:"cooperative" json:"cooperative,omitempty"`
}
