package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coop-training-api/internal/models"
)

// TrainingRepository handles persistence of training sessions.
type TrainingRepository struct {
	db *sqlx.DB
}

// NewTrainingRepository constructs the repository.
func NewTrainingRepository(db *sqlx.DB) *TrainingRepository {
	return &TrainingRepository{db: db}
}

// List returns training sessions matching the filter, ordered by date ascending.
func (r *TrainingRepository) List(ctx context.Context, filter models.TrainingFilter) ([]models.TrainingSession, int, error) {
	base := `FROM trainings t`
	where := []string{"1=1"}
	args := []interface{}{}

	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("t.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("t.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("t.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT t.id, t.code, t.title, t.topic, t.date, t.time, t.venue, t.speaker, t.capacity, t.status, t.created_at, t.updated_at
        %s WHERE %s ORDER BY t.date ASC LIMIT %d OFFSET %d`, base, whereClause, size, offset)

	var sessions []models.TrainingSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list trainings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count trainings: %w", err)
	}
	return sessions, total, nil
}

// FindByID returns a training session by its ID.
func (r *TrainingRepository) FindByID(ctx context.Context, id string) (*models.TrainingSession, error) {
	const query = `SELECT id, code, title, topic, date, time, venue, speaker, capacity, status, created_at, updated_at FROM trainings WHERE id = $1`
	var session models.TrainingSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// FindByIDs returns the sessions for the provided IDs keyed by ID.
func (r *TrainingRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.TrainingSession, error) {
	if len(ids) == 0 {
		return map[string]models.TrainingSession{}, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, code, title, topic, date, time, venue, speaker, capacity, status, created_at, updated_at
        FROM trainings WHERE id IN (%s)`, strings.Join(placeholders, ","))
	var sessions []models.TrainingSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("find trainings by ids: %w", err)
	}
	result := make(map[string]models.TrainingSession, len(sessions))
	for _, s := range sessions {
		result[s.ID] = s
	}
	return result, nil
}

// Create persists a new training session.
func (r *TrainingRepository) Create(ctx context.Context, session *models.TrainingSession) error {
	now := time.Now().UTC()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.Status == "" {
		session.Status = models.TrainingStatusUpcoming
	}
	session.CreatedAt = now
	session.UpdatedAt = now
	const query = `INSERT INTO trainings (id, code, title, topic, date, time, venue, speaker, capacity, status, created_at, updated_at)
        VALUES (:id, :code, :title, :topic, :date, :time, :venue, :speaker, :capacity, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create training: %w", err)
	}
	return nil
}

// Update persists changes to a training session.
func (r *TrainingRepository) Update(ctx context.Context, session *models.TrainingSession) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE trainings SET code = :code, title = :title, topic = :topic, date = :date, time = :time,
        venue = :venue, speaker = :speaker, capacity = :capacity, status = :status, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("update training: %w", err)
	}
	return nil
}

// Delete removes a training session.
func (r *TrainingRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM trainings WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete training: %w", err)
	}
	return nil
}
