package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/coop-training-api/internal/models"
	appErrors "github.com/noah-isme/coop-training-api/pkg/errors"
)

type attendanceRepository interface {
	Upsert(ctx context.Context, record *models.Attendance) error
	Find(ctx context.Context, officerID, trainingID string) (*models.Attendance, error)
	Delete(ctx context.Context, officerID, trainingID string) (int64, error)
	ListByTraining(ctx context.Context, trainingID string) ([]models.AttendanceDetail, error)
}

type complianceInvalidator interface {
	InvalidateOfficer(ctx context.Context, officerID string)
}

// MarkPresentRequest describes the attendance payload. Enrollment is not a
// precondition: walk-ins are recorded the same way.
type MarkPresentRequest struct {
	OfficerID  string  `json:"officer_id" validate:"required"`
	TrainingID string  `json:"training_id" validate:"required"`
	Method     string  `json:"method" validate:"required"`
	RecordedBy *string `json:"recorded_by,omitempty"`
}

// AttendanceService manages the presence ledger.
type AttendanceService struct {
	repo      attendanceRepository
	officers  officerReader
	trainings trainingReader
	cache     complianceInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs AttendanceService. The cache invalidator
// may be nil when compliance caching is disabled.
func NewAttendanceService(repo attendanceRepository, officers officerReader, trainings trainingReader, cache complianceInvalidator, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, officers: officers, trainings: trainings, cache: cache, validator: validate, logger: logger}
}

// MarkPresent records presence for an (officer, training) pair. Marking the
// same pair again replaces timestamp and method instead of adding a row, so
// the call is safe to repeat.
func (s *AttendanceService) MarkPresent(ctx context.Context, req MarkPresentRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	method := models.AttendanceMethod(req.Method)
	if !method.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid attendance method")
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

	record := &models.Attendance{
		OfficerID:  req.OfficerID,
		TrainingID: req.TrainingID,
		Method:     method,
		RecordedAt: time.Now().UTC(),
		RecordedBy: req.RecordedBy,
	}
	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	if s.cache != nil {
		s.cache.InvalidateOfficer(ctx, req.OfficerID)
	}
	s.logger.Info("attendance recorded",
		zap.String("officer_id", req.OfficerID),
		zap.String("training_id", req.TrainingID),
		zap.String("method", string(method)))
	return record, nil
}

// MarkAbsent removes the presence record for a pair. Removing an absent
// pair is a no-op, not an error, so the call is safe to repeat.
func (s *AttendanceService) MarkAbsent(ctx context.Context, officerID, trainingID string) error {
	if _, err := s.trainings.FindByID(ctx, trainingID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training")
	}
	affected, err := s.repo.Delete(ctx, officerID, trainingID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove attendance")
	}
	if affected > 0 && s.cache != nil {
		s.cache.InvalidateOfficer(ctx, officerID)
	}
	return nil
}

// Get returns the presence record for a pair.
func (s *AttendanceService) Get(ctx context.Context, officerID, trainingID string) (*models.Attendance, error) {
	record, err := s.repo.Find(ctx, officerID, trainingID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return record, nil
}

// ListByTraining returns all presence records for a session.
func (s *AttendanceService) ListByTraining(ctx context.Context, trainingID string) ([]models.AttendanceDetail, error) {
	if _, err := s.trainings.FindByID(ctx, trainingID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training")
	}
	records, err := s.repo.ListByTraining(ctx, trainingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}
