package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coop-training-api/internal/models"
)

// ErrTrainingNotEnrollable is returned when the target session exists but is
// no longer open for registration.
var ErrTrainingNotEnrollable = errors.New("training not open for enrollment")

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Enroll registers the officer for the training session exactly once while
// capacity allows. The whole sequence runs in one transaction: the training
// row is locked with FOR UPDATE so concurrent enrollments for the same
// session serialise on the capacity check, and the insert carries an
// ON CONFLICT guard on (officer_id, training_id) so a racing duplicate can
// never produce a second row. Returns sql.ErrNoRows when the session does
// not exist and ErrTrainingNotEnrollable when its status forbids enrollment.
func (r *EnrollmentRepository) Enroll(ctx context.Context, officerID, trainingID string) (models.EnrollmentOutcome, *models.Enrollment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", nil, fmt.Errorf("begin enroll tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var session struct {
		Capacity int                   `db:"capacity"`
		Status   models.TrainingStatus `db:"status"`
	}
	if err := tx.GetContext(ctx, &session, `SELECT capacity, status FROM trainings WHERE id = $1 FOR UPDATE`, trainingID); err != nil {
		return "", nil, err
	}
	if !session.Status.Enrollable() {
		return "", nil, ErrTrainingNotEnrollable
	}

	var existing models.Enrollment
	err = tx.GetContext(ctx, &existing,
		`SELECT id, officer_id, training_id, registered_at FROM enrollments WHERE officer_id = $1 AND training_id = $2`,
		officerID, trainingID)
	switch {
	case err == nil:
		if err := tx.Commit(); err != nil {
			return "", nil, fmt.Errorf("commit enroll tx: %w", err)
		}
		return models.EnrollmentOutcomeAlreadyEnrolled, &existing, nil
	case err != sql.ErrNoRows:
		return "", nil, fmt.Errorf("check enrollment: %w", err)
	}

	var count int
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM enrollments WHERE training_id = $1`, trainingID); err != nil {
		return "", nil, fmt.Errorf("count enrollments: %w", err)
	}
	if count >= session.Capacity {
		if err := tx.Commit(); err != nil {
			return "", nil, fmt.Errorf("commit enroll tx: %w", err)
		}
		return models.EnrollmentOutcomeCapacityExceeded, nil, nil
	}

	enrollment := &models.Enrollment{
		ID:           uuid.NewString(),
		OfficerID:    officerID,
		TrainingID:   trainingID,
		RegisteredAt: time.Now().UTC(),
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO enrollments (id, officer_id, training_id, registered_at) VALUES ($1, $2, $3, $4)
         ON CONFLICT (officer_id, training_id) DO NOTHING`,
		enrollment.ID, enrollment.OfficerID, enrollment.TrainingID, enrollment.RegisteredAt)
	if err != nil {
		return "", nil, fmt.Errorf("create enrollment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return "", nil, fmt.Errorf("create enrollment: %w", err)
	}
	if affected == 0 {
		// A concurrent transaction won the unique constraint race. Re-read
		// the winning row so callers see the same payload as a sequential
		// duplicate.
		var winner models.Enrollment
		if err := tx.GetContext(ctx, &winner,
			`SELECT id, officer_id, training_id, registered_at FROM enrollments WHERE officer_id = $1 AND training_id = $2`,
			officerID, trainingID); err != nil {
			return "", nil, fmt.Errorf("load winning enrollment: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return "", nil, fmt.Errorf("commit enroll tx: %w", err)
		}
		return models.EnrollmentOutcomeAlreadyEnrolled, &winner, nil
	}
	if err := tx.Commit(); err != nil {
		return "", nil, fmt.Errorf("commit enroll tx: %w", err)
	}
	return models.EnrollmentOutcomeEnrolled, enrollment, nil
}

// Find returns the enrollment for an (officer, training) pair.
func (r *EnrollmentRepository) Find(ctx context.Context, officerID, trainingID string) (*models.Enrollment, error) {
	const query = `SELECT id, officer_id, training_id, registered_at FROM enrollments WHERE officer_id = $1 AND training_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, officerID, trainingID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, officer_id, training_id, registered_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListByTraining returns enrollments for a session in insertion order.
func (r *EnrollmentRepository) ListByTraining(ctx context.Context, trainingID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.officer_id, e.training_id, e.registered_at,
        o.full_name AS officer_name, o.cooperative, t.code AS training_code, t.title AS training_title
        FROM enrollments e
        JOIN officers o ON o.id = e.officer_id
        JOIN trainings t ON t.id = e.training_id
        WHERE e.training_id = $1
        ORDER BY e.registered_at ASC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, trainingID); err != nil {
		return nil, fmt.Errorf("list training enrollments: %w", err)
	}
	return enrollments, nil
}

// ListByOfficer returns an officer's enrollments in insertion order.
func (r *EnrollmentRepository) ListByOfficer(ctx context.Context, officerID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.officer_id, e.training_id, e.registered_at,
        o.full_name AS officer_name, o.cooperative, t.code AS training_code, t.title AS training_title
        FROM enrollments e
        JOIN officers o ON o.id = e.officer_id
        JOIN trainings t ON t.id = e.training_id
        WHERE e.officer_id = $1
        ORDER BY e.registered_at ASC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, officerID); err != nil {
		return nil, fmt.Errorf("list officer enrollments: %w", err)
	}
	return enrollments, nil
}

// CountByTraining returns the number of enrollments for a session.
func (r *EnrollmentRepository) CountByTraining(ctx context.Context, trainingID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM enrollments WHERE training_id = $1`, trainingID); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

// Delete removes an enrollment (administrative roster edit). Subsequent
// enroll calls for the freed slot go through the usual atomic path.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

// Roster reconciles enrollments against the attendance ledger for a session.
// Presence is computed by LEFT JOIN set difference at read time, never stored.
func (r *EnrollmentRepository) Roster(ctx context.Context, trainingID string) ([]models.RosterEntry, error) {
	const query = `SELECT e.id AS enrollment_id, e.officer_id, o.full_name AS officer_name, o.cooperative,
        e.registered_at, a.id IS NOT NULL AS checked_in, a.recorded_at
        FROM enrollments e
        JOIN officers o ON o.id = e.officer_id
        LEFT JOIN attendance a ON a.officer_id = e.officer_id AND a.training_id = e.training_id
        WHERE e.training_id = $1
        ORDER BY e.registered_at ASC`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, trainingID); err != nil {
		return nil, fmt.Errorf("load training roster: %w", err)
	}
	return roster, nil
}
