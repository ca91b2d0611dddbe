package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coop-training-api/internal/models"
)

// AttendanceRepository handles persistence of attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert records presence for an (officer, training) pair. A repeated mark
// replaces method, timestamp and recorder on the existing row so the pair
// never holds more than one record.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.Attendance) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance (id, officer_id, training_id, method, recorded_at, recorded_by)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (officer_id, training_id)
        DO UPDATE SET method = EXCLUDED.method, recorded_at = EXCLUDED.recorded_at, recorded_by = EXCLUDED.recorded_by
        RETURNING id, recorded_at`
	row := r.db.QueryRowxContext(ctx, query,
		record.ID, record.OfficerID, record.TrainingID, record.Method, record.RecordedAt, record.RecordedBy)
	if err := row.Scan(&record.ID, &record.RecordedAt); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// Find returns the attendance record for an (officer, training) pair.
func (r *AttendanceRepository) Find(ctx context.Context, officerID, trainingID string) (*models.Attendance, error) {
	const query = `SELECT id, officer_id, training_id, method, recorded_at, recorded_by
        FROM attendance WHERE officer_id = $1 AND training_id = $2`
	var record models.Attendance
	if err := r.db.GetContext(ctx, &record, query, officerID, trainingID); err != nil {
		return nil, err
	}
	return &record, nil
}

// Delete removes the attendance record for a pair. Returns the number of
// rows removed so callers can treat a second delete as a no-op.
func (r *AttendanceRepository) Delete(ctx context.Context, officerID, trainingID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM attendance WHERE officer_id = $1 AND training_id = $2`, officerID, trainingID)
	if err != nil {
		return 0, fmt.Errorf("delete attendance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete attendance: %w", err)
	}
	return affected, nil
}

// ListByTraining returns all attendance records for a session with officer
// metadata, ordered by when presence was recorded.
func (r *AttendanceRepository) ListByTraining(ctx context.Context, trainingID string) ([]models.AttendanceDetail, error) {
	const query = `SELECT a.id, a.officer_id, a.training_id, a.method, a.recorded_at, a.recorded_by,
        o.full_name AS officer_name, o.cooperative
        FROM attendance a
        JOIN officers o ON o.id = a.officer_id
        WHERE a.training_id = $1
        ORDER BY a.recorded_at ASC`
	var records []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &records, query, trainingID); err != nil {
		return nil, fmt.Errorf("list training attendance: %w", err)
	}
	return records, nil
}

// ListTrainingIDsByOfficer returns the set of training IDs the officer has
// attended. Compliance evaluation intersects this with the required set.
func (r *AttendanceRepository) ListTrainingIDsByOfficer(ctx context.Context, officerID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids,
		`SELECT training_id FROM attendance WHERE officer_id = $1`, officerID); err != nil {
		return nil, fmt.Errorf("list attended trainings: %w", err)
	}
	return ids, nil
}

// AttendedByOfficers returns, for each given officer, the training IDs they
// attended. Used by the compliance overview to avoid one query per officer.
func (r *AttendanceRepository) AttendedByOfficers(ctx context.Context, officerIDs []string) (map[string][]string, error) {
	attended := make(map[string][]string, len(officerIDs))
	if len(officerIDs) == 0 {
		return attended, nil
	}
	query, args, err := sqlx.In(`SELECT officer_id, training_id FROM attendance WHERE officer_id IN (?)`, officerIDs)
	if err != nil {
		return nil, fmt.Errorf("build attendance query: %w", err)
	}
	query = r.db.Rebind(query)
	rows := []struct {
		OfficerID  string `db:"officer_id"`
		TrainingID string `db:"training_id"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance by officers: %w", err)
	}
	for _, row := range rows {
		attended[row.OfficerID] = append(attended[row.OfficerID], row.TrainingID)
	}
	return attended, nil
}
