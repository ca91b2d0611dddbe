package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/noah-isme/coop-training-api/internal/models"
	appErrors "github.com/noah-isme/coop-training-api/pkg/errors"
)

// OfficerService exposes the read-only officer directory.
type OfficerService struct {
	repo   officerLister
	logger *zap.Logger
}

// NewOfficerService constructs OfficerService.
func NewOfficerService(repo officerLister, logger *zap.Logger) *OfficerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfficerService{repo: repo, logger: logger}
}

// List returns officers with pagination metadata.
func (s *OfficerService) List(ctx context.Context, filter models.OfficerFilter) ([]models.Officer, *models.Pagination, error) {
	officers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list officers")
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
	return officers, pagination, nil
}

// Get returns an officer by ID.
func (s *OfficerService) Get(ctx context.Context, id string) (*models.Officer, error) {
	officer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "officer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load officer")
	}
	return officer, nil
}
