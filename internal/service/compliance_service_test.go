package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coop-training-api/internal/models"
	appErrors "github.com/noah-isme/coop-training-api/pkg/errors"
)

type mockRequirementRepo struct {
	required map[string][]string
	replaced map[string][]string
}

func (m *mockRequirementRepo) ReplaceForOfficer(ctx context.Context, officerID string, trainingIDs []string) error {
	if m.replaced == nil {
		m.replaced = make(map[string][]string)
	}
	m.replaced[officerID] = trainingIDs
	if m.required == nil {
		m.required = make(map[string][]string)
	}
	m.required[officerID] = trainingIDs
	return nil
}

func (m *mockRequirementRepo) ListByOfficer(ctx context.Context, officerID string) ([]models.RequirementDetail, error) {
	details := make([]models.RequirementDetail, 0, len(m.required[officerID]))
	for _, id := range m.required[officerID] {
		details = append(details, models.RequirementDetail{Requirement: models.Requirement{OfficerID: officerID, TrainingID: id}})
	}
	return details, nil
}

func (m *mockRequirementRepo) TrainingIDsByOfficer(ctx context.Context, officerID string) ([]string, error) {
	return m.required[officerID], nil
}

func (m *mockRequirementRepo) RequiredByOfficers(ctx context.Context, officerIDs []string) (map[string][]string, error) {
	return m.required, nil
}

type mockAttendanceReader struct {
	attended map[string][]string
}

func (m *mockAttendanceReader) ListTrainingIDsByOfficer(ctx context.Context, officerID string) ([]string, error) {
	return m.attended[officerID], nil
}

func (m *mockAttendanceReader) AttendedByOfficers(ctx context.Context, officerIDs []string) (map[string][]string, error) {
	return m.attended, nil
}

type mockOfficerRepo struct {
	officers  map[string]models.Officer
	listCalls int
}

func (m *mockOfficerRepo) List(ctx context.Context, filter models.OfficerFilter) ([]models.Officer, int, error) {
	m.listCalls++
	ids := make([]string, 0, len(m.officers))
	for id := range m.officers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	total := len(ids)
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = total
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	officers := make([]models.Officer, 0, end-start)
	for _, id := range ids[start:end] {
		officers = append(officers, m.officers[id])
	}
	return officers, total, nil
}

func (m *mockOfficerRepo) FindByID(ctx context.Context, id string) (*models.Officer, error) {
	if officer, ok := m.officers[id]; ok {
		return &officer, nil
	}
	return nil, sql.ErrNoRows
}

type mockTrainingBatchReader struct {
	sessions map[string]models.TrainingSession
}

func (m *mockTrainingBatchReader) FindByIDs(ctx context.Context, ids []string) (map[string]models.TrainingSession, error) {
	found := make(map[string]models.TrainingSession)
	for _, id := range ids {
		if session, ok := m.sessions[id]; ok {
			found[id] = session
		}
	}
	return found, nil
}

type memCache struct {
	store map[string][]byte
}

func (m *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	m.store[key] = raw
	return nil
}

func (m *memCache) DeleteByPattern(ctx context.Context, pattern string) error {
	delete(m.store, pattern)
	return nil
}

func TestComputeAssessmentPartial(t *testing.T) {
	assessment := computeAssessment("off-1",
		[]string{"tr-a", "tr-b", "tr-c", "tr-d"},
		[]string{"tr-a", "tr-c"}, nil)

	assert.Equal(t, 2, assessment.Completed)
	assert.Equal(t, 4, assessment.Required)
	assert.Equal(t, 50, assessment.Rate)
	assert.Equal(t, models.ComplianceStatusPartial, assessment.Status)
	assert.Equal(t, []string{"tr-b", "tr-d"}, assessment.Missing)
}

func TestComputeAssessmentFullyCompliant(t *testing.T) {
	assessment := computeAssessment("off-1",
		[]string{"tr-a", "tr-b"},
		[]string{"tr-b", "tr-a", "tr-z"}, nil)

	assert.Equal(t, 100, assessment.Rate)
	assert.Equal(t, models.ComplianceStatusCompliant, assessment.Status)
	assert.Empty(t, assessment.Missing)
}

func TestComputeAssessmentEmptyRequiredSet(t *testing.T) {
	assessment := computeAssessment("off-1", nil, []string{"tr-a"}, nil)

	assert.Zero(t, assessment.Rate)
	assert.Equal(t, models.ComplianceStatusNonCompliant, assessment.Status)
	assert.Empty(t, assessment.Missing)
	assert.NotNil(t, assessment.Missing)
}

func TestComputeAssessmentWalkInsOutsideRequiredSetIgnored(t *testing.T) {
	assessment := computeAssessment("off-1",
		[]string{"tr-a"},
		[]string{"tr-x", "tr-y", "tr-z"}, nil)

	assert.Zero(t, assessment.Completed)
	assert.Zero(t, assessment.Rate)
	assert.Equal(t, models.ComplianceStatusNonCompliant, assessment.Status)
}

func TestComputeAssessmentRounding(t *testing.T) {
	// 2 of 3 completed rounds 66.67 to 67.
	assessment := computeAssessment("off-1",
		[]string{"tr-a", "tr-b", "tr-c"},
		[]string{"tr-a", "tr-b"}, nil)

	assert.Equal(t, 67, assessment.Rate)
	assert.Equal(t, models.ComplianceStatusPartial, assessment.Status)
}

func TestComputeAssessmentThresholdBoundaries(t *testing.T) {
	// 9 of 10 is exactly 90 and counts as compliant.
	required := []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8", "t9", "t10"}
	attended := required[:9]
	assessment := computeAssessment("off-1", required, attended, nil)
	assert.Equal(t, 90, assessment.Rate)
	assert.Equal(t, models.ComplianceStatusCompliant, assessment.Status)

	// 5 of 10 is exactly 50 and counts as partial.
	assessment = computeAssessment("off-1", required, required[:5], nil)
	assert.Equal(t, 50, assessment.Rate)
	assert.Equal(t, models.ComplianceStatusPartial, assessment.Status)
}

func TestComputeAssessmentDeterministic(t *testing.T) {
	required := []string{"tr-b", "tr-a", "tr-c"}
	attended := []string{"tr-c"}
	first := computeAssessment("off-1", required, attended, nil)
	second := computeAssessment("off-1", required, attended, nil)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"tr-b", "tr-a"}, first.Missing)
}

func TestComputeAssessmentMissingCarriesTitles(t *testing.T) {
	titles := map[string]string{
		"id-fin": "Financial Management",
		"id-gov": "Governance Training",
	}
	assessment := computeAssessment("off-1",
		[]string{"id-gov", "id-fin"},
		[]string{"id-gov"}, titles)

	assert.Equal(t, []string{"Financial Management"}, assessment.Missing)
}

func TestComplianceServiceAssessResolvesMissingTitles(t *testing.T) {
	officers := &mockOfficerRepo{officers: map[string]models.Officer{
		"off-1": {ID: "off-1", FullName: "Ana Reyes"},
	}}
	attendance := &mockAttendanceReader{attended: map[string][]string{
		"off-1": {"id-gov"},
	}}
	trainings := &mockTrainingBatchReader{sessions: map[string]models.TrainingSession{
		"id-fin": {ID: "id-fin", Title: "Financial Management"},
		"id-gov": {ID: "id-gov", Title: "Governance Training"},
	}}
	svc := NewComplianceService(&mockRequirementRepo{}, attendance, officers, trainings, nil, time.Minute, nil, nil, nil)

	assessment, err := svc.Assess(context.Background(), "off-1", []string{"id-gov", "id-fin"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Financial Management"}, assessment.Missing)

	// A required session no longer in the catalog falls back to its ID.
	assessment, err = svc.Assess(context.Background(), "off-1", []string{"id-fin", "id-ghost"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Financial Management", "id-ghost"}, assessment.Missing)
}

func TestComplianceServiceAssessUnknownOfficer(t *testing.T) {
	svc := NewComplianceService(
		&mockRequirementRepo{},
		&mockAttendanceReader{},
		&mockOfficerRepo{},
		&mockTrainingBatchReader{},
		nil, time.Minute, nil, nil, nil)

	_, err := svc.Assess(context.Background(), "missing", []string{"tr-a"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestComplianceServiceAssignRequirementsUnknownTraining(t *testing.T) {
	officers := &mockOfficerRepo{officers: map[string]models.Officer{
		"off-1": {ID: "off-1", FullName: "Ana Reyes"},
	}}
	trainings := &mockTrainingBatchReader{sessions: map[string]models.TrainingSession{
		"tr-a": {ID: "tr-a"},
	}}
	svc := NewComplianceService(&mockRequirementRepo{}, &mockAttendanceReader{}, officers, trainings, nil, time.Minute, nil, nil, nil)

	_, err := svc.AssignRequirements(context.Background(), "off-1", AssignRequirementsRequest{TrainingIDs: []string{"tr-a", "tr-missing"}})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestComplianceServiceAssignAndAssess(t *testing.T) {
	requirements := &mockRequirementRepo{}
	attendance := &mockAttendanceReader{attended: map[string][]string{
		"off-1": {"tr-a"},
	}}
	officers := &mockOfficerRepo{officers: map[string]models.Officer{
		"off-1": {ID: "off-1", FullName: "Ana Reyes"},
	}}
	trainings := &mockTrainingBatchReader{sessions: map[string]models.TrainingSession{
		"tr-a": {ID: "tr-a", Title: "Financial Management"},
		"tr-b": {ID: "tr-b", Title: "Governance Training"},
	}}
	svc := NewComplianceService(requirements, attendance, officers, trainings, nil, time.Minute, nil, nil, nil)

	_, err := svc.AssignRequirements(context.Background(), "off-1", AssignRequirementsRequest{TrainingIDs: []string{"tr-a", "tr-b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"tr-a", "tr-b"}, requirements.replaced["off-1"])

	assessment, err := svc.AssessAssigned(context.Background(), "off-1")
	require.NoError(t, err)
	assert.Equal(t, 1, assessment.Completed)
	assert.Equal(t, 50, assessment.Rate)
	assert.Equal(t, models.ComplianceStatusPartial, assessment.Status)
	assert.Equal(t, []string{"Governance Training"}, assessment.Missing)
}

func TestComplianceServiceOverviewCounts(t *testing.T) {
	requirements := &mockRequirementRepo{required: map[string][]string{
		"off-1": {"tr-a"},
		"off-2": {"tr-a", "tr-b"},
		"off-3": {},
	}}
	attendance := &mockAttendanceReader{attended: map[string][]string{
		"off-1": {"tr-a"},
		"off-2": {"tr-a"},
	}}
	officers := &mockOfficerRepo{officers: map[string]models.Officer{
		"off-1": {ID: "off-1"},
		"off-2": {ID: "off-2"},
		"off-3": {ID: "off-3"},
	}}
	svc := NewComplianceService(requirements, attendance, officers, &mockTrainingBatchReader{}, nil, time.Minute, nil, nil, nil)

	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, overview.Total)
	assert.Equal(t, 1, overview.Compliant)
	assert.Equal(t, 1, overview.Partial)
	assert.Equal(t, 1, overview.NonCompliant)
	assert.Len(t, overview.Officers, 3)
}

func TestComplianceServiceOverviewSpansPages(t *testing.T) {
	population := make(map[string]models.Officer, 150)
	for i := 1; i <= 150; i++ {
		id := fmt.Sprintf("off-%03d", i)
		population[id] = models.Officer{ID: id}
	}
	officers := &mockOfficerRepo{officers: population}
	svc := NewComplianceService(&mockRequirementRepo{}, &mockAttendanceReader{}, officers, &mockTrainingBatchReader{}, nil, time.Minute, nil, nil, nil)

	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)
	// Every officer beyond the first page is still assessed.
	assert.Equal(t, 150, overview.Total)
	assert.Len(t, overview.Officers, 150)
	assert.Equal(t, 150, overview.NonCompliant)
	assert.GreaterOrEqual(t, officers.listCalls, 2)
}

func TestComplianceServiceCacheMetrics(t *testing.T) {
	metrics := NewMetricsService()
	requirements := &mockRequirementRepo{required: map[string][]string{
		"off-1": {"tr-a"},
	}}
	attendance := &mockAttendanceReader{attended: map[string][]string{
		"off-1": {"tr-a"},
	}}
	officers := &mockOfficerRepo{officers: map[string]models.Officer{
		"off-1": {ID: "off-1"},
	}}
	trainings := &mockTrainingBatchReader{sessions: map[string]models.TrainingSession{
		"tr-a": {ID: "tr-a", Title: "Financial Management"},
	}}
	svc := NewComplianceService(requirements, attendance, officers, trainings, &memCache{}, time.Minute, metrics, nil, nil)

	_, err := svc.AssessAssigned(context.Background(), "off-1")
	require.NoError(t, err)
	_, err = svc.AssessAssigned(context.Background(), "off-1")
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheMisses))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheHits))
}
