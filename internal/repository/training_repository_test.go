package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coop-training-api/internal/models"
)

func trainingColumns() []string {
	return []string{"id", "code", "title", "topic", "date", "time", "venue", "speaker", "capacity", "status", "created_at", "updated_at"}
}

func TestTrainingRepositoryListFiltersByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTrainingRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(trainingColumns()).
		AddRow("tr-1", "TRN-001", "Cooperative Governance", "governance", now, nil, "Main Hall", "J. Santos", 40, models.TrainingStatusUpcoming, now, now)
	mock.ExpectQuery(`SELECT .+ FROM trainings t WHERE 1=1 AND t\.status = \$1 ORDER BY t\.date ASC`).
		WithArgs(models.TrainingStatusUpcoming).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM trainings t WHERE 1=1 AND t\.status = \$1`).
		WithArgs(models.TrainingStatusUpcoming).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	status := models.TrainingStatusUpcoming
	sessions, total, err := repo.List(context.Background(), models.TrainingFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, 1, total)
	require.Equal(t, "TRN-001", sessions[0].Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTrainingRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTrainingRepository(db)

	mock.ExpectExec(`INSERT INTO trainings`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	session := &models.TrainingSession{
		Code:     "TRN-002",
		Title:    "Financial Literacy",
		Capacity: 25,
	}
	err := repo.Create(context.Background(), session)
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	require.Equal(t, models.TrainingStatusUpcoming, session.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTrainingRepositoryFindByIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTrainingRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(trainingColumns()).
		AddRow("tr-1", "TRN-001", "Cooperative Governance", "governance", now, nil, "Main Hall", "J. Santos", 40, models.TrainingStatusUpcoming, now, now).
		AddRow("tr-2", "TRN-002", "Financial Literacy", "finance", now, nil, "Annex", "L. Dizon", 25, models.TrainingStatusCompleted, now, now)
	mock.ExpectQuery(`FROM trainings WHERE id IN`).
		WithArgs("tr-1", "tr-2").
		WillReturnRows(rows)

	sessions, err := repo.FindByIDs(context.Background(), []string{"tr-1", "tr-2"})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, "Financial Literacy", sessions["tr-2"].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}
