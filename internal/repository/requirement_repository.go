package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coop-training-api/internal/models"
)

// RequirementRepository manages per-officer required training assignments.
type RequirementRepository struct {
	db *sqlx.DB
}

// NewRequirementRepository constructs the repository.
func NewRequirementRepository(db *sqlx.DB) *RequirementRepository {
	return &RequirementRepository{db: db}
}

// ReplaceForOfficer swaps the officer's required training set in one
// transaction. Assignment order is preserved through assigned_at so the
// missing list in an assessment reads back in the order given here.
func (r *RequirementRepository) ReplaceForOfficer(ctx context.Context, officerID string, trainingIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin requirements tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM requirements WHERE officer_id = $1`, officerID); err != nil {
		return fmt.Errorf("clear requirements: %w", err)
	}
	base := time.Now().UTC()
	for i, trainingID := range trainingIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO requirements (id, officer_id, training_id, assigned_at) VALUES ($1, $2, $3, $4)`,
			uuid.NewString(), officerID, trainingID, base.Add(time.Duration(i)*time.Microsecond))
		if err != nil {
			return fmt.Errorf("insert requirement: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit requirements tx: %w", err)
	}
	return nil
}

// ListByOfficer returns the officer's requirements in assignment order.
func (r *RequirementRepository) ListByOfficer(ctx context.Context, officerID string) ([]models.RequirementDetail, error) {
	const query = `SELECT r.id, r.officer_id, r.training_id, r.assigned_at,
        t.code AS training_code, t.title AS training_title
        FROM requirements r
        JOIN trainings t ON t.id = r.training_id
        WHERE r.officer_id = $1
        ORDER BY r.assigned_at ASC`
	var requirements []models.RequirementDetail
	if err := r.db.SelectContext(ctx, &requirements, query, officerID); err != nil {
		return nil, fmt.Errorf("list requirements: %w", err)
	}
	return requirements, nil
}

// TrainingIDsByOfficer returns only the required training IDs in order.
func (r *RequirementRepository) TrainingIDsByOfficer(ctx context.Context, officerID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids,
		`SELECT training_id FROM requirements WHERE officer_id = $1 ORDER BY assigned_at ASC`, officerID); err != nil {
		return nil, fmt.Errorf("list required trainings: %w", err)
	}
	return ids, nil
}

// RequiredByOfficers returns ordered required training IDs per officer.
func (r *RequirementRepository) RequiredByOfficers(ctx context.Context, officerIDs []string) (map[string][]string, error) {
	required := make(map[string][]string, len(officerIDs))
	if len(officerIDs) == 0 {
		return required, nil
	}
	query, args, err := sqlx.In(
		`SELECT officer_id, training_id FROM requirements WHERE officer_id IN (?) ORDER BY assigned_at ASC`, officerIDs)
	if err != nil {
		return nil, fmt.Errorf("build requirements query: %w", err)
	}
	query = r.db.Rebind(query)
	rows := []struct {
		OfficerID  string `db:"officer_id"`
		TrainingID string `db:"training_id"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list requirements by officers: %w", err)
	}
	for _, row := range rows {
		required[row.OfficerID] = append(required[row.OfficerID], row.TrainingID)
	}
	return required, nil
}
