package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coop-training-api/internal/models"
)

// OfficerRepository reads officer profiles. Rows are provisioned by the
// identity subsystem; there is no write contract here.
type OfficerRepository struct {
	db *sqlx.DB
}

// NewOfficerRepository constructs the repository.
func NewOfficerRepository(db *sqlx.DB) *OfficerRepository {
	return &OfficerRepository{db: db}
}

// List returns officers filtered by the provided criteria.
func (r *OfficerRepository) List(ctx context.Context, filter models.OfficerFilter) ([]models.Officer, int, error) {
	base := `FROM officers o`
	where := []string{"1=1"}
	args := []interface{}{}

	if filter.Role != nil {
		where = append(where, fmt.Sprintf("o.role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(o.full_name ILIKE $%d OR o.cooperative ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	whereClause := strings.Join(where, " AND ")

	allowedSorts := map[string]string{
		"full_name":   "o.full_name",
		"cooperative": "o.cooperative",
		"created_at":  "o.created_at",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "full_name"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "o.full_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT o.id, o.username, o.full_name, o.cooperative, o.position, o.role, o.created_at, o.updated_at
        %s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, whereClause, orderBy, order, size, offset)

	var officers []models.Officer
	if err := r.db.SelectContext(ctx, &officers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list officers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count officers: %w", err)
	}
	return officers, total, nil
}

// FindByID returns an officer by its ID.
func (r *OfficerRepository) FindByID(ctx context.Context, id string) (*models.Officer, error) {
	const query = `SELECT id, username, full_name, cooperative, position, role, created_at, updated_at FROM officers WHERE id = $1`
	var officer models.Officer
	if err := r.db.GetContext(ctx, &officer, query, id); err != nil {
		return nil, err
	}
	return &officer, nil
}
