package models

import "time"

// Certificate records completion of a training by an officer. Issued by an
// administrator after attendance has been verified.
type Certificate struct {
	ID            string    `db:"id" json:"id"`
	CertificateNo string    `db:"certificate_no" json:"certificate_no"`
	OfficerID     string    `db:"officer_id" json:"officer_id"`
	TrainingID    string    `db:"training_id" json:"training_id"`
	IssueDate     time.Time `db:"issue_date" json:"issue_date"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// CertificateDetail extends Certificate with display metadata.
type CertificateDetail struct {
	Certificate
	OfficerName   string `db:"officer_name" json:"officer_name"`
	TrainingCode  string `db:"training_code" json:"training_code"`
	TrainingTitle string `db:"training_title" json:"training_title"`
}
