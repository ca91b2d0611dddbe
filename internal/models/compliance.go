package models

import "time"

// ComplianceStatus is the tiered classification derived from the rate.
type ComplianceStatus string

const (
	ComplianceStatusCompliant    ComplianceStatus = "compliant"
	ComplianceStatusPartial      ComplianceStatus = "partial"
	ComplianceStatusNonCompliant ComplianceStatus = "non-compliant"
)

// Fixed domain thresholds. Administrators change an officer's standing by
// editing the requirement set, not by tuning these.
const (
	ComplianceCompliantThreshold = 90
	CompliancePartialThreshold   = 50
)

// ComplianceStatusFor classifies a 0-100 rate.
func ComplianceStatusFor(rate int) ComplianceStatus {
	switch {
	case rate >= ComplianceCompliantThreshold:
		return ComplianceStatusCompliant
	case rate >= CompliancePartialThreshold:
		return ComplianceStatusPartial
	default:
		return ComplianceStatusNonCompliant
	}
}

// ComplianceAssessment is a derived, non-persisted view of an officer's
// standing against a required training set. It is recomputed on demand from
// the enrollment and attendance ledgers and is never stored as ground truth.
type ComplianceAssessment struct {
	OfficerID string           `json:"officer_id"`
	Completed int              `json:"completed"`
	Required  int              `json:"required"`
	Rate      int              `json:"rate"`
	Status    ComplianceStatus `json:"status"`
	Missing   []string         `json:"missing"`
}

// Requirement assigns a training session to an officer's required set.
type Requirement struct {
	ID         string    `db:"id" json:"id"`
	OfficerID  string    `db:"officer_id" json:"officer_id"`
	TrainingID string    `db:"training_id" json:"training_id"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
}

// RequirementDetail enriches Requirement with the training title.
type RequirementDetail struct {
	Requirement
	TrainingCode  string `db:"training_code" json:"training_code"`
	TrainingTitle string `db:"training_title" json:"training_title"`
}

// ComplianceOverviewRow pairs an officer with their current assessment.
type ComplianceOverviewRow struct {
	Officer    Officer              `json:"officer"`
	Assessment ComplianceAssessment `json:"assessment"`
}

// ComplianceOverview aggregates assessments across all officers.
type ComplianceOverview struct {
	Total        int                     `json:"total"`
	Compliant    int                     `json:"compliant"`
	Partial      int                     `json:"partial"`
	NonCompliant int                     `json:"non_compliant"`
	Officers     []ComplianceOverviewRow `json:"officers"`
	GeneratedAt  time.Time               `json:"generated_at"`
}
