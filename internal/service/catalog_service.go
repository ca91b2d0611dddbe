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

type trainingRepository interface {
	List(ctx context.Context, filter models.TrainingFilter) ([]models.TrainingSession, int, error)
	FindByID(ctx context.Context, id string) (*models.TrainingSession, error)
	Create(ctx context.Context, session *models.TrainingSession) error
	Update(ctx context.Context, session *models.TrainingSession) error
	Delete(ctx context.Context, id string) error
}

type enrollmentCounter interface {
	CountByTraining(ctx context.Context, trainingID string) (int, error)
}

// CreateTrainingRequest describes the payload for creating a session.
type CreateTrainingRequest struct {
	Code     string  `json:"code" validate:"required"`
	Title    string  `json:"title" validate:"required"`
	Topic    string  `json:"topic"`
	Date     string  `json:"date" validate:"required,datetime=2006-01-02"`
	Time     *string `json:"time,omitempty"`
	Venue    string  `json:"venue"`
	Speaker  string  `json:"speaker"`
	Capacity int     `json:"capacity" validate:"gte=0"`
}

// UpdateTrainingRequest describes the mutable fields of a session.
type UpdateTrainingRequest struct {
	Code     *string `json:"code,omitempty"`
	Title    *string `json:"title,omitempty"`
	Topic    *string `json:"topic,omitempty"`
	Date     *string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Time     *string `json:"time,omitempty"`
	Venue    *string `json:"venue,omitempty"`
	Speaker  *string `json:"speaker,omitempty"`
	Capacity *int    `json:"capacity,omitempty" validate:"omitempty,gte=0"`
	Status   *string `json:"status,omitempty"`
}

// TrainingWithOccupancy pairs a session with its current enrollment count.
type TrainingWithOccupancy struct {
	models.TrainingSession
	Enrolled int `json:"enrolled"`
}

// CatalogService manages the training session catalog.
type CatalogService struct {
	repo        trainingRepository
	enrollments enrollmentCounter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(repo trainingRepository, enrollments enrollmentCounter, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, enrollments: enrollments, validator: validate, logger: logger}
}

// List returns catalog sessions with pagination metadata.
func (s *CatalogService) List(ctx context.Context, filter models.TrainingFilter) ([]models.TrainingSession, *models.Pagination, error) {
	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list trainings")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return sessions, pagination, nil
}

// Get returns a session together with its current enrollment count.
func (s *CatalogService) Get(ctx context.Context, id string) (*TrainingWithOccupancy, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training")
	}
	enrolled, err := s.enrollments.CountByTraining(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	return &TrainingWithOccupancy{TrainingSession: *session, Enrolled: enrolled}, nil
}

// Create adds a session to the catalog.
func (s *CatalogService) Create(ctx context.Context, req CreateTrainingRequest) (*models.TrainingSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid training payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid training date")
	}
	session := &models.TrainingSession{
		Code:     req.Code,
		Title:    req.Title,
		Topic:    req.Topic,
		Date:     date,
		Time:     req.Time,
		Venue:    req.Venue,
		Speaker:  req.Speaker,
		Capacity: req.Capacity,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create training")
	}
	s.logger.Info("training created", zap.String("training_id", session.ID), zap.String("code", session.Code))
	return session, nil
}

// Update applies partial changes to a session.
func (s *CatalogService) Update(ctx context.Context, id string, req UpdateTrainingRequest) (*models.TrainingSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid training payload")
	}
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training")
	}
	if req.Code != nil {
		session.Code = *req.Code
	}
	if req.Title != nil {
		session.Title = *req.Title
	}
	if req.Topic != nil {
		session.Topic = *req.Topic
	}
	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid training date")
		}
		session.Date = date
	}
	if req.Time != nil {
		session.Time = req.Time
	}
	if req.Venue != nil {
		session.Venue = *req.Venue
	}
	if req.Speaker != nil {
		session.Speaker = *req.Speaker
	}
	if req.Capacity != nil {
		session.Capacity = *req.Capacity
	}
	if req.Status != nil {
		status := models.TrainingStatus(*req.Status)
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid training status")
		}
		session.Status = status
	}
	if err := s.repo.Update(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update training")
	}
	return session, nil
}

// Delete removes a session from the catalog.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete training")
	}
	s.logger.Info("training deleted", zap.String("training_id", id))
	return nil
}
