package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coop-training-api/internal/models"
	appErrors "github.com/noah-isme/coop-training-api/pkg/errors"
)

type mockAttendanceRepo struct {
	records map[string]models.Attendance
}

func pairKey(officerID, trainingID string) string {
	return officerID + "/" + trainingID
}

func (m *mockAttendanceRepo) Upsert(ctx context.Context, record *models.Attendance) error {
	if m.records == nil {
		m.records = make(map[string]models.Attendance)
	}
	key := pairKey(record.OfficerID, record.TrainingID)
	if existing, ok := m.records[key]; ok {
		record.ID = existing.ID
	} else if record.ID == "" {
		record.ID = "att-" + key
	}
	m.records[key] = *record
	return nil
}

func (m *mockAttendanceRepo) Find(ctx context.Context, officerID, trainingID string) (*models.Attendance, error) {
	if record, ok := m.records[pairKey(officerID, trainingID)]; ok {
		return &record, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAttendanceRepo) Delete(ctx context.Context, officerID, trainingID string) (int64, error) {
	key := pairKey(officerID, trainingID)
	if _, ok := m.records[key]; ok {
		delete(m.records, key)
		return 1, nil
	}
	return 0, nil
}

func (m *mockAttendanceRepo) ListByTraining(ctx context.Context, trainingID string) ([]models.AttendanceDetail, error) {
	var records []models.AttendanceDetail
	for _, record := range m.records {
		if record.TrainingID == trainingID {
			records = append(records, models.AttendanceDetail{Attendance: record})
		}
	}
	return records, nil
}

type recordingInvalidator struct {
	invalidated []string
}

func (r *recordingInvalidator) InvalidateOfficer(ctx context.Context, officerID string) {
	r.invalidated = append(r.invalidated, officerID)
}

func attendanceTrainings() *mockTrainingReader {
	return &mockTrainingReader{sessions: map[string]models.TrainingSession{
		"tr-1": {ID: "tr-1", Status: models.TrainingStatusOngoing},
	}}
}

func TestAttendanceServiceMarkPresent(t *testing.T) {
	repo := &mockAttendanceRepo{}
	cache := &recordingInvalidator{}
	svc := NewAttendanceService(repo, knownOfficers(), attendanceTrainings(), cache, nil, nil)

	record, err := svc.MarkPresent(context.Background(), MarkPresentRequest{
		OfficerID:  "off-1",
		TrainingID: "tr-1",
		Method:     "qr",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceMethodQR, record.Method)
	assert.Equal(t, []string{"off-1"}, cache.invalidated)
}

func TestAttendanceServiceMarkPresentIdempotent(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := NewAttendanceService(repo, knownOfficers(), attendanceTrainings(), nil, nil, nil)

	first, err := svc.MarkPresent(context.Background(), MarkPresentRequest{
		OfficerID: "off-1", TrainingID: "tr-1", Method: "manual",
	})
	require.NoError(t, err)

	second, err := svc.MarkPresent(context.Background(), MarkPresentRequest{
		OfficerID: "off-1", TrainingID: "tr-1", Method: "qr",
	})
	require.NoError(t, err)

	// Same row is replaced, never duplicated.
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.records, 1)
	assert.Equal(t, models.AttendanceMethodQR, repo.records[pairKey("off-1", "tr-1")].Method)
}

func TestAttendanceServiceMarkPresentInvalidMethod(t *testing.T) {
	svc := NewAttendanceService(&mockAttendanceRepo{}, knownOfficers(), attendanceTrainings(), nil, nil, nil)

	_, err := svc.MarkPresent(context.Background(), MarkPresentRequest{
		OfficerID: "off-1", TrainingID: "tr-1", Method: "telepathy",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAttendanceServiceMarkPresentWalkIn(t *testing.T) {
	// No enrollment check: attendance for an unenrolled officer succeeds.
	repo := &mockAttendanceRepo{}
	svc := NewAttendanceService(repo, knownOfficers(), attendanceTrainings(), nil, nil, nil)

	record, err := svc.MarkPresent(context.Background(), MarkPresentRequest{
		OfficerID: "off-1", TrainingID: "tr-1", Method: "nfc",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
}

func TestAttendanceServiceMarkAbsentIdempotent(t *testing.T) {
	repo := &mockAttendanceRepo{}
	cache := &recordingInvalidator{}
	svc := NewAttendanceService(repo, knownOfficers(), attendanceTrainings(), cache, nil, nil)

	_, err := svc.MarkPresent(context.Background(), MarkPresentRequest{
		OfficerID: "off-1", TrainingID: "tr-1", Method: "manual",
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkAbsent(context.Background(), "off-1", "tr-1"))
	// Second removal of an absent pair is a no-op, not an error.
	require.NoError(t, svc.MarkAbsent(context.Background(), "off-1", "tr-1"))
	assert.Empty(t, repo.records)
	// Only the removal that changed state invalidated the cache.
	assert.Equal(t, []string{"off-1", "off-1"}, cache.invalidated[:2])
	assert.Len(t, cache.invalidated, 2)
}

func TestAttendanceServiceGetMissing(t *testing.T) {
	svc := NewAttendanceService(&mockAttendanceRepo{}, knownOfficers(), attendanceTrainings(), nil, nil, nil)

	_, err := svc.Get(context.Background(), "off-1", "tr-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
