package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coop-training-api/internal/models"
)

// ErrCertificateExists is returned when the (officer, training) pair already
// holds an issued certificate.
var ErrCertificateExists = errors.New("certificate already issued")

// CertificateRepository handles persistence of issued certificates.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository constructs the repository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// Create issues a certificate. At most one certificate exists per
// (officer, training) pair; the conflict guard keeps a retried issue from
// producing a second row.
func (r *CertificateRepository) Create(ctx context.Context, cert *models.Certificate) error {
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	if cert.CreatedAt.IsZero() {
		cert.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO certificates (id, certificate_no, officer_id, training_id, issue_date, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (officer_id, training_id) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query,
		cert.ID, cert.CertificateNo, cert.OfficerID, cert.TrainingID, cert.IssueDate, cert.CreatedAt)
	if err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	if affected == 0 {
		return ErrCertificateExists
	}
	return nil
}

// FindByID returns a certificate with display metadata.
func (r *CertificateRepository) FindByID(ctx context.Context, id string) (*models.CertificateDetail, error) {
	const query = `SELECT c.id, c.certificate_no, c.officer_id, c.training_id, c.issue_date, c.created_at,
        o.full_name AS officer_name, t.code AS training_code, t.title AS training_title
        FROM certificates c
        JOIN officers o ON o.id = c.officer_id
        JOIN trainings t ON t.id = c.training_id
        WHERE c.id = $1`
	var cert models.CertificateDetail
	if err := r.db.GetContext(ctx, &cert, query, id); err != nil {
		return nil, err
	}
	return &cert, nil
}

// ListByOfficer returns the officer's certificates, most recent first.
func (r *CertificateRepository) ListByOfficer(ctx context.Context, officerID string) ([]models.CertificateDetail, error) {
	const query = `SELECT c.id, c.certificate_no, c.officer_id, c.training_id, c.issue_date, c.created_at,
        o.full_name AS officer_name, t.code AS training_code, t.title AS training_title
        FROM certificates c
        JOIN officers o ON o.id = c.officer_id
        JOIN trainings t ON t.id = c.training_id
        WHERE c.officer_id = $1
        ORDER BY c.issue_date DESC`
	var certs []models.CertificateDetail
	if err := r.db.SelectContext(ctx, &certs, query, officerID); err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certs, nil
}

// CountForYear returns the number of certificates issued in a calendar year,
// used for sequential certificate numbering.
func (r *CertificateRepository) CountForYear(ctx context.Context, year int) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM certificates WHERE EXTRACT(YEAR FROM issue_date) = $1`, year); err != nil {
		return 0, fmt.Errorf("count certificates: %w", err)
	}
	return count, nil
}
