package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/coop-training-api/internal/models"
	"github.com/noah-isme/coop-training-api/internal/repository"
	appErrors "github.com/noah-isme/coop-training-api/pkg/errors"
)

type certificateRepository interface {
	Create(ctx context.Context, cert *models.Certificate) error
	FindByID(ctx context.Context, id string) (*models.CertificateDetail, error)
	ListByOfficer(ctx context.Context, officerID string) ([]models.CertificateDetail, error)
	CountForYear(ctx context.Context, year int) (int, error)
}

type attendanceChecker interface {
	Find(ctx context.Context, officerID, trainingID string) (*models.Attendance, error)
}

// IssueCertificateRequest describes the certificate issuance payload.
type IssueCertificateRequest struct {
	OfficerID  string `json:"officer_id" validate:"required"`
	TrainingID string `json:"training_id" validate:"required"`
}

// CertificateService issues completion certificates. A certificate requires
// a verified attendance record; it is never issued on enrollment alone.
type CertificateService struct {
	repo       certificateRepository
	attendance attendanceChecker
	officers   officerReader
	trainings  trainingReader
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewCertificateService constructs CertificateService.
func NewCertificateService(repo certificateRepository, attendance attendanceChecker, officers officerReader, trainings trainingReader, validate *validator.Validate, logger *zap.Logger) *CertificateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{repo: repo, attendance: attendance, officers: officers, trainings: trainings, validator: validate, logger: logger}
}

// Issue creates a certificate for an attended training.
func (s *CertificateService) Issue(ctx context.Context, req IssueCertificateRequest) (*models.CertificateDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid certificate payload")
	}
	if _, err := s.officers.FindByID(ctx, req.OfficerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "officer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load officer")
	}
	if _, err := s.trainings.FindByID(ctx, req.TrainingID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training")
	}
	if _, err := s.attendance.Find(ctx, req.OfficerID, req.TrainingID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "attendance not recorded for this training")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify attendance")
	}

	now := time.Now().UTC()
	seq, err := s.repo.CountForYear(ctx, now.Year())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to number certificate")
	}
	cert := &models.Certificate{
		CertificateNo: fmt.Sprintf("CERT-%d-%04d", now.Year(), seq+1),
		OfficerID:     req.OfficerID,
		TrainingID:    req.TrainingID,
		IssueDate:     now,
	}
	if err := s.repo.Create(ctx, cert); err != nil {
		if errors.Is(err, repository.ErrCertificateExists) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "certificate already issued for this training")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue certificate")
	}
	s.logger.Info("certificate issued",
		zap.String("certificate_no", cert.CertificateNo),
		zap.String("officer_id", req.OfficerID),
		zap.String("training_id", req.TrainingID))

	detail, err := s.repo.FindByID(ctx, cert.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	return detail, nil
}

// Get returns a certificate by ID.
func (s *CertificateService) Get(ctx context.Context, id string) (*models.CertificateDetail, error) {
	cert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	return cert, nil
}

// ListByOfficer returns an officer's certificates.
func (s *CertificateService) ListByOfficer(ctx context.Context, officerID string) ([]models.CertificateDetail, error) {
	if _, err := s.officers.FindByID(ctx, officerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "officer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load officer")
	}
	certs, err := s.repo.ListByOfficer(ctx, officerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list certificates")
	}
	return certs, nil
}
