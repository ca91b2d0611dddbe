package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coop-training-api/internal/models"
	"github.com/noah-isme/coop-training-api/internal/repository"
	appErrors "github.com/noah-isme/coop-training-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	outcome    models.EnrollmentOutcome
	enrollment *models.Enrollment
	err        error
	deleted    []string
	byID       map[string]models.Enrollment
	roster     []models.RosterEntry
}

func (m *mockEnrollmentRepo) Enroll(ctx context.Context, officerID, trainingID string) (models.EnrollmentOutcome, *models.Enrollment, error) {
	if m.err != nil {
		return "", nil, m.err
	}
	return m.outcome, m.enrollment, nil
}

func (m *mockEnrollmentRepo) Find(ctx context.Context, officerID, trainingID string) (*models.Enrollment, error) {
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.byID[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) ListByTraining(ctx context.Context, trainingID string) ([]models.EnrollmentDetail, error) {
	return nil, nil
}

func (m *mockEnrollmentRepo) ListByOfficer(ctx context.Context, officerID string) ([]models.EnrollmentDetail, error) {
	return nil, nil
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockEnrollmentRepo) Roster(ctx context.Context, trainingID string) ([]models.RosterEntry, error) {
	return m.roster, nil
}

type mockTrainingReader struct {
	sessions map[string]models.TrainingSession
}

func (m *mockTrainingReader) FindByID(ctx context.Context, id string) (*models.TrainingSession, error) {
	if session, ok := m.sessions[id]; ok {
		return &session, nil
	}
	return nil, sql.ErrNoRows
}

func knownOfficers() *mockOfficerRepo {
	return &mockOfficerRepo{officers: map[string]models.Officer{
		"off-1": {ID: "off-1", FullName: "Ana Reyes"},
	}}
}

func TestEnrollmentServiceEnrollSuccess(t *testing.T) {
	repo := &mockEnrollmentRepo{
		outcome:    models.EnrollmentOutcomeEnrolled,
		enrollment: &models.Enrollment{ID: "enr-1", OfficerID: "off-1", TrainingID: "tr-1", RegisteredAt: time.Now().UTC()},
	}
	svc := NewEnrollmentService(repo, knownOfficers(), &mockTrainingReader{}, nil, nil)

	result, err := svc.Enroll(context.Background(), EnrollRequest{OfficerID: "off-1", TrainingID: "tr-1"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentOutcomeEnrolled, result.Outcome)
	require.NotNil(t, result.Enrollment)
	assert.Equal(t, "enr-1", result.Enrollment.ID)
}

func TestEnrollmentServiceEnrollAlreadyEnrolledIsNotError(t *testing.T) {
	repo := &mockEnrollmentRepo{
		outcome:    models.EnrollmentOutcomeAlreadyEnrolled,
		enrollment: &models.Enrollment{ID: "enr-1", OfficerID: "off-1", TrainingID: "tr-1"},
	}
	svc := NewEnrollmentService(repo, knownOfficers(), &mockTrainingReader{}, nil, nil)

	result, err := svc.Enroll(context.Background(), EnrollRequest{OfficerID: "off-1", TrainingID: "tr-1"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentOutcomeAlreadyEnrolled, result.Outcome)
}

func TestEnrollmentServiceEnrollCapacityExceededIsNotError(t *testing.T) {
	repo := &mockEnrollmentRepo{outcome: models.EnrollmentOutcomeCapacityExceeded}
	svc := NewEnrollmentService(repo, knownOfficers(), &mockTrainingReader{}, nil, nil)

	result, err := svc.Enroll(context.Background(), EnrollRequest{OfficerID: "off-1", TrainingID: "tr-1"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentOutcomeCapacityExceeded, result.Outcome)
	assert.Nil(t, result.Enrollment)
}

func TestEnrollmentServiceEnrollUnknownOfficer(t *testing.T) {
	svc := NewEnrollmentService(&mockEnrollmentRepo{}, knownOfficers(), &mockTrainingReader{}, nil, nil)

	_, err := svc.Enroll(context.Background(), EnrollRequest{OfficerID: "off-missing", TrainingID: "tr-1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestEnrollmentServiceEnrollUnknownTraining(t *testing.T) {
	repo := &mockEnrollmentRepo{err: sql.ErrNoRows}
	svc := NewEnrollmentService(repo, knownOfficers(), &mockTrainingReader{}, nil, nil)

	_, err := svc.Enroll(context.Background(), EnrollRequest{OfficerID: "off-1", TrainingID: "tr-missing"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestEnrollmentServiceEnrollClosedTraining(t *testing.T) {
	repo := &mockEnrollmentRepo{err: repository.ErrTrainingNotEnrollable}
	svc := NewEnrollmentService(repo, knownOfficers(), &mockTrainingReader{}, nil, nil)

	_, err := svc.Enroll(context.Background(), EnrollRequest{OfficerID: "off-1", TrainingID: "tr-1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestEnrollmentServiceEnrollValidatesPayload(t *testing.T) {
	svc := NewEnrollmentService(&mockEnrollmentRepo{}, knownOfficers(), &mockTrainingReader{}, nil, nil)

	_, err := svc.Enroll(context.Background(), EnrollRequest{OfficerID: "off-1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestEnrollmentServiceUnenroll(t *testing.T) {
	repo := &mockEnrollmentRepo{byID: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", OfficerID: "off-1", TrainingID: "tr-1"},
	}}
	svc := NewEnrollmentService(repo, knownOfficers(), &mockTrainingReader{}, nil, nil)

	require.NoError(t, svc.Unenroll(context.Background(), "enr-1"))
	assert.Equal(t, []string{"enr-1"}, repo.deleted)

	err := svc.Unenroll(context.Background(), "enr-missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestEnrollmentServiceRosterUnknownTraining(t *testing.T) {
	svc := NewEnrollmentService(&mockEnrollmentRepo{}, knownOfficers(), &mockTrainingReader{}, nil, nil)

	_, err := svc.Roster(context.Background(), "tr-missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
