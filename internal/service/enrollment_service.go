package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/coop-training-api/internal/models"
	"github.com/noah-isme/coop-training-api/internal/repository"
	appErrors "github.com/noah-isme/coop-training-api/pkg/errors"
)

type enrollmentRepository interface {
	Enroll(ctx context.Context, officerID, trainingID string) (models.EnrollmentOutcome, *models.Enrollment, error)
	Find(ctx context.Context, officerID, trainingID string) (*models.Enrollment, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ListByTraining(ctx context.Context, trainingID string) ([]models.EnrollmentDetail, error)
	ListByOfficer(ctx context.Context, officerID string) ([]models.EnrollmentDetail, error)
	Delete(ctx context.Context, id string) error
	Roster(ctx context.Context, trainingID string) ([]models.RosterEntry, error)
}

type officerReader interface {
	FindByID(ctx context.Context, id string) (*models.Officer, error)
}

type trainingReader interface {
	FindByID(ctx context.Context, id string) (*models.TrainingSession, error)
}

// EnrollRequest describes the enroll payload.
type EnrollRequest struct {
	OfficerID  string `json:"officer_id" validate:"required"`
	TrainingID string `json:"training_id" validate:"required"`
}

// EnrollmentService orchestrates registration workflows. The repository
// carries the atomicity; this layer resolves references and translates
// outcomes into the API's error taxonomy.
type EnrollmentService struct {
	repo      enrollmentRepository
	officers  officerReader
	trainings trainingReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, officers officerReader, trainings trainingReader, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, officers: officers, trainings: trainings, validator: validate, logger: logger}
}

// Enroll registers an officer for a training session. The three outcomes
// (enrolled, already_enrolled, capacity_exceeded) are reported in the
// result, never as errors. Errors are reserved for unknown references, a
// session that is past enrollment, and infrastructure failures.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.EnrollmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if _, err := s.officers.FindByID(ctx, req.OfficerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "officer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load officer")
	}

	outcome, enrollment, err := s.repo.Enroll(ctx, req.OfficerID, req.TrainingID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		if errors.Is(err, repository.ErrTrainingNotEnrollable) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "training is not open for enrollment")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll officer")
	}

	if outcome == models.EnrollmentOutcomeEnrolled {
		s.logger.Info("officer enrolled",
			zap.String("officer_id", req.OfficerID),
			zap.String("training_id", req.TrainingID))
	}
	return &models.EnrollmentResult{Outcome: outcome, Enrollment: enrollment}, nil
}

// ListByTraining returns the enrollments for a session in insertion order.
func (s *EnrollmentService) ListByTraining(ctx context.Context, trainingID string) ([]models.EnrollmentDetail, error) {
	if _, err := s.trainings.FindByID(ctx, trainingID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training")
	}
	enrollments, err := s.repo.ListByTraining(ctx, trainingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// ListByOfficer returns an officer's enrollments in insertion order.
func (s *EnrollmentService) ListByOfficer(ctx context.Context, officerID string) ([]models.EnrollmentDetail, error) {
	if _, err := s.officers.FindByID(ctx, officerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "officer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load officer")
	}
	enrollments, err := s.repo.ListByOfficer(ctx, officerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// Unenroll removes an enrollment by ID.
func (s *EnrollmentService) Unenroll(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	s.logger.Info("enrollment removed", zap.String("enrollment_id", id))
	return nil
}

// Roster returns the session roster with attendance reconciliation.
func (s *EnrollmentService) Roster(ctx context.Context, trainingID string) ([]models.RosterEntry, error) {
	if _, err := s.trainings.FindByID(ctx, trainingID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training")
	}
	roster, err := s.repo.Roster(ctx, trainingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return roster, nil
}
