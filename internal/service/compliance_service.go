package service

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/coop-training-api/internal/models"
	appErrors "github.com/noah-isme/coop-training-api/pkg/errors"
)

type requirementRepository interface {
	ReplaceForOfficer(ctx context.Context, officerID string, trainingIDs []string) error
	ListByOfficer(ctx context.Context, officerID string) ([]models.RequirementDetail, error)
	TrainingIDsByOfficer(ctx context.Context, officerID string) ([]string, error)
	RequiredByOfficers(ctx context.Context, officerIDs []string) (map[string][]string, error)
}

type attendanceReader interface {
	ListTrainingIDsByOfficer(ctx context.Context, officerID string) ([]string, error)
	AttendedByOfficers(ctx context.Context, officerIDs []string) (map[string][]string, error)
}

type officerLister interface {
	List(ctx context.Context, filter models.OfficerFilter) ([]models.Officer, int, error)
	FindByID(ctx context.Context, id string) (*models.Officer, error)
}

type trainingBatchReader interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]models.TrainingSession, error)
}

type complianceCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AssignRequirementsRequest replaces an officer's required training set.
type AssignRequirementsRequest struct {
	TrainingIDs []string `json:"training_ids" validate:"required"`
}

const (
	complianceCachePrefix      = "compliance:officer:"
	complianceOverviewCacheKey = "compliance:overview"
)

// ComplianceService derives officer standing from the enrollment and
// attendance ledgers. Assessments are computed on demand and only cached,
// never stored as ground truth.
type ComplianceService struct {
	requirements requirementRepository
	attendance   attendanceReader
	officers     officerLister
	trainings    trainingBatchReader
	cache        complianceCache
	cacheTTL     time.Duration
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewComplianceService constructs ComplianceService. The cache and metrics
// may be nil when compliance caching or instrumentation is disabled.
func NewComplianceService(requirements requirementRepository, attendance attendanceReader, officers officerLister, trainings trainingBatchReader, cache complianceCache, cacheTTL time.Duration, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ComplianceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ComplianceService{
		requirements: requirements,
		attendance:   attendance,
		officers:     officers,
		trainings:    trainings,
		cache:        cache,
		cacheTTL:     cacheTTL,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
	}
}

// computeAssessment evaluates an officer against a required training set.
// Pure: same inputs always yield the same assessment. The missing list
// preserves the order of requiredIDs and carries session titles resolved
// through the titles map, falling back to the raw ID when a session is no
// longer in the catalog. An attended session outside the required set
// contributes nothing. An empty required set yields rate 0 and
// non-compliant standing.
func computeAssessment(officerID string, requiredIDs, attendedIDs []string, titles map[string]string) models.ComplianceAssessment {
	attended := make(map[string]struct{}, len(attendedIDs))
	for _, id := range attendedIDs {
		attended[id] = struct{}{}
	}

	completed := 0
	missing := []string{}
	for _, id := range requiredIDs {
		if _, ok := attended[id]; ok {
			completed++
			continue
		}
		name := titles[id]
		if name == "" {
			name = id
		}
		missing = append(missing, name)
	}

	rate := 0
	if len(requiredIDs) > 0 {
		rate = int(math.Round(float64(completed) * 100 / float64(len(requiredIDs))))
	}

	return models.ComplianceAssessment{
		OfficerID: officerID,
		Completed: completed,
		Required:  len(requiredIDs),
		Rate:      rate,
		Status:    models.ComplianceStatusFor(rate),
		Missing:   missing,
	}
}

// Assess evaluates an officer against an explicit required training set.
// The caller controls the set; walk-in attendance counts only when the
// session is part of it.
func (s *ComplianceService) Assess(ctx context.Context, officerID string, requiredIDs []string) (*models.ComplianceAssessment, error) {
	if _, err := s.officers.FindByID(ctx, officerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "officer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load officer")
	}
	attendedIDs, err := s.attendance.ListTrainingIDsByOfficer(ctx, officerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	titles, err := s.trainingTitles(ctx, requiredIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trainings")
	}
	assessment := computeAssessment(officerID, requiredIDs, attendedIDs, titles)
	return &assessment, nil
}

// trainingTitles resolves catalog titles for the missing list.
func (s *ComplianceService) trainingTitles(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sessions, err := s.trainings.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	titles := make(map[string]string, len(sessions))
	for id, session := range sessions {
		titles[id] = session.Title
	}
	return titles, nil
}

// AssessAssigned evaluates an officer against their assigned requirements,
// consulting the cache first.
func (s *ComplianceService) AssessAssigned(ctx context.Context, officerID string) (*models.ComplianceAssessment, error) {
	cacheKey := complianceCachePrefix + officerID
	if s.cache != nil {
		var cached models.ComplianceAssessment
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	requiredIDs, err := s.requirements.TrainingIDsByOfficer(ctx, officerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load requirements")
	}
	assessment, err := s.Assess(ctx, officerID, requiredIDs)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, assessment, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache assessment", zap.String("officer_id", officerID), zap.Error(err))
		}
	}
	return assessment, nil
}

// AssignRequirements replaces an officer's required training set. Every
// training ID must resolve to a catalog session.
func (s *ComplianceService) AssignRequirements(ctx context.Context, officerID string, req AssignRequirementsRequest) ([]models.RequirementDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid requirements payload")
	}
	if _, err := s.officers.FindByID(ctx, officerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "officer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load officer")
	}
	if len(req.TrainingIDs) > 0 {
		sessions, err := s.trainings.FindByIDs(ctx, req.TrainingIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trainings")
		}
		for _, id := range req.TrainingIDs {
			if _, ok := sessions[id]; !ok {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "training not found: "+id)
			}
		}
	}

	if err := s.requirements.ReplaceForOfficer(ctx, officerID, req.TrainingIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign requirements")
	}
	s.InvalidateOfficer(ctx, officerID)
	s.logger.Info("requirements assigned",
		zap.String("officer_id", officerID),
		zap.Int("count", len(req.TrainingIDs)))

	requirements, err := s.requirements.ListByOfficer(ctx, officerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requirements")
	}
	return requirements, nil
}

// ListRequirements returns an officer's assigned requirements in order.
func (s *ComplianceService) ListRequirements(ctx context.Context, officerID string) ([]models.RequirementDetail, error) {
	if _, err := s.officers.FindByID(ctx, officerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "officer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load officer")
	}
	requirements, err := s.requirements.ListByOfficer(ctx, officerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requirements")
	}
	return requirements, nil
}

// Overview assesses every officer and aggregates status counts. The result
// is cached because it fans out across all three ledgers.
func (s *ComplianceService) Overview(ctx context.Context) (*models.ComplianceOverview, error) {
	if s.cache != nil {
		var cached models.ComplianceOverview
		if err := s.cache.Get(ctx, complianceOverviewCacheKey, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	// Walk every page: the overview covers the whole population, not the
	// first LIMIT worth of officers.
	var officers []models.Officer
	total := 0
	filter := models.OfficerFilter{Page: 1, PageSize: 100}
	for {
		page, count, err := s.officers.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list officers")
		}
		officers = append(officers, page...)
		total = count
		if len(page) < filter.PageSize || len(officers) >= count {
			break
		}
		filter.Page++
	}
	if total < len(officers) {
		total = len(officers)
	}
	ids := make([]string, len(officers))
	for i, officer := range officers {
		ids[i] = officer.ID
	}

	required, err := s.requirements.RequiredByOfficers(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load requirements")
	}
	attended, err := s.attendance.AttendedByOfficers(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	requiredIDSet := make(map[string]struct{})
	var allRequiredIDs []string
	for _, id := range ids {
		for _, trainingID := range required[id] {
			if _, ok := requiredIDSet[trainingID]; !ok {
				requiredIDSet[trainingID] = struct{}{}
				allRequiredIDs = append(allRequiredIDs, trainingID)
			}
		}
	}
	titles, err := s.trainingTitles(ctx, allRequiredIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trainings")
	}

	overview := &models.ComplianceOverview{
		Total:       total,
		Officers:    make([]models.ComplianceOverviewRow, 0, len(officers)),
		GeneratedAt: time.Now().UTC(),
	}
	for _, officer := range officers {
		assessment := computeAssessment(officer.ID, required[officer.ID], attended[officer.ID], titles)
		switch assessment.Status {
		case models.ComplianceStatusCompliant:
			overview.Compliant++
		case models.ComplianceStatusPartial:
			overview.Partial++
		default:
			overview.NonCompliant++
		}
		overview.Officers = append(overview.Officers, models.ComplianceOverviewRow{Officer: officer, Assessment: assessment})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, complianceOverviewCacheKey, overview, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache overview", zap.Error(err))
		}
	}
	return overview, nil
}

// InvalidateOfficer drops cached assessments affected by a ledger change.
func (s *ComplianceService) InvalidateOfficer(ctx context.Context, officerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, complianceCachePrefix+officerID); err != nil {
		s.logger.Warn("failed to invalidate assessment cache", zap.String("officer_id", officerID), zap.Error(err))
	}
	if err := s.cache.DeleteByPattern(ctx, complianceOverviewCacheKey); err != nil {
		s.logger.Warn("failed to invalidate overview cache", zap.Error(err))
	}
}
