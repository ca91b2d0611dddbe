package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coop-training-api/internal/models"
)

func TestAttendanceRepositoryUpsertInsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	recordedAt := time.Now().UTC()
	mock.ExpectQuery(`INSERT INTO attendance`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "recorded_at"}).AddRow("att-1", recordedAt))

	record := &models.Attendance{
		OfficerID:  "off-1",
		TrainingID: "tr-1",
		Method:     models.AttendanceMethodQR,
	}
	err := repo.Upsert(context.Background(), record)
	require.NoError(t, err)
	require.Equal(t, "att-1", record.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertReplacesExisting(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	// The conflict branch returns the surviving row's id, not the one the
	// caller generated.
	original := time.Now().UTC().Add(-time.Hour)
	mock.ExpectQuery(`ON CONFLICT \(officer_id, training_id\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "recorded_at"}).AddRow("att-existing", original.Add(time.Hour)))

	record := &models.Attendance{
		OfficerID:  "off-1",
		TrainingID: "tr-1",
		Method:     models.AttendanceMethodManual,
	}
	err := repo.Upsert(context.Background(), record)
	require.NoError(t, err)
	require.Equal(t, "att-existing", record.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(`DELETE FROM attendance WHERE officer_id = \$1 AND training_id = \$2`).
		WithArgs("off-1", "tr-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.Delete(context.Background(), "off-1", "tr-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryDeleteAbsentPair(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(`DELETE FROM attendance WHERE officer_id = \$1 AND training_id = \$2`).
		WithArgs("off-1", "tr-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.Delete(context.Background(), "off-1", "tr-1")
	require.NoError(t, err)
	require.Zero(t, affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryAttendedByOfficers(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"officer_id", "training_id"}).
		AddRow("off-1", "tr-1").
		AddRow("off-1", "tr-2").
		AddRow("off-2", "tr-1")
	mock.ExpectQuery(`SELECT officer_id, training_id FROM attendance WHERE officer_id IN`).
		WillReturnRows(rows)

	attended, err := repo.AttendedByOfficers(context.Background(), []string{"off-1", "off-2"})
	require.NoError(t, err)
	require.Equal(t, []string{"tr-1", "tr-2"}, attended["off-1"])
	require.Equal(t, []string{"tr-1"}, attended["off-2"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryAttendedByOfficersEmpty(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	attended, err := repo.AttendedByOfficers(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, attended)
}
