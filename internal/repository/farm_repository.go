package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/farmhub/farmhub-api/internal/models"
)

// FarmRepository handles persistence of farms.
type FarmRepository struct {
	db *sqlx.DB
}

// NewFarmRepository constructs the repository.
func NewFarmRepository(db *sqlx.DB) *FarmRepository {
	return &FarmRepository{db: db}
}

// List returns farms matching the filter with a total count.
func (r *FarmRepository) List(ctx context.Context, filter models.FarmFilter) ([]models.FarmDetail, int, error) {
	base := `FROM farms f
LEFT JOIN users a ON a.id = f.agent_id`
	var conditions []string
	var args []interface{}

	if filter.AgentID != "" {
		conditions = append(conditions, fmt.Sprintf("f.agent_id = $%d", len(args)+1))
		args = append(args, filter.AgentID)
	}
	if filter.FarmID != "" {
		conditions = append(conditions, fmt.Sprintf("f.id = $%d", len(args)+1))
		args = append(args, filter.FarmID)
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("f.is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT f.id, f.name, f.location, f.agent_id, f.is_active, f.farm_type, f.farm_size,
        f.created_at, f.updated_at, a.username AS agent_username
        %s ORDER BY f.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var farms []models.FarmDetail
	if err := r.db.SelectContext(ctx, &farms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list farms: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count farms: %w", err)
	}
	return farms, total, nil
}

// FindByID returns a farm by its ID.
func (r *FarmRepository) FindByID(ctx context.Context, id string) (*models.Farm, error) {
	const query = `SELECT id, name, location, agent_id, is_active, farm_type, farm_size, created_at, updated_at
FROM farms WHERE id = $1`
	var farm models.Farm
	if err := r.db.GetContext(ctx, &farm, query, id); err != nil {
		return nil, err
	}
	return &farm, nil
}

// FindDetailByID returns a farm with its agent's username.
func (r *FarmRepository) FindDetailByID(ctx context.Context, id string) (*models.FarmDetail, error) {
	const query = `SELECT f.id, f.name, f.location, f.agent_id, f.is_active, f.farm_type, f.farm_size,
        f.created_at, f.updated_at, a.username AS agent_username
        FROM farms f
        LEFT JOIN users a ON a.id = f.agent_id
        WHERE f.id = $1`
	var detail models.FarmDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListByAgent returns all farms managed by the agent.
func (r *FarmRepository) ListByAgent(ctx context.Context, agentID string) ([]models.Farm, error) {
	const query = `SELECT id, name, location, agent_id, is_active, farm_type, farm_size, created_at, updated_at
FROM farms WHERE agent_id = $1 ORDER BY created_at DESC`
	var farms []models.Farm
	if err := r.db.SelectContext(ctx, &farms, query, agentID); err != nil {
		return nil, fmt.Errorf("list farms by agent: %w", err)
	}
	return farms, nil
}

// Create persists a new farm row.
func (r *FarmRepository) Create(ctx context.Context, farm *models.Farm) error {
	if farm.ID == "" {
		farm.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if farm.CreatedAt.IsZero() {
		farm.CreatedAt = now
	}
	farm.UpdatedAt = now
	const query = `INSERT INTO farms (id, name, location, agent_id, is_active, farm_type, farm_size, created_at, updated_at)
        VALUES (:id, :name, :location, :agent_id, :is_active, :farm_type, :farm_size, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, farm); err != nil {
		return fmt.Errorf("create farm: %w", err)
	}
	return nil
}

// Update persists the mutable fields of a farm row.
func (r *FarmRepository) Update(ctx context.Context, farm *models.Farm) error {
	farm.UpdatedAt = time.Now().UTC()
	const query = `UPDATE farms SET name = :name, location = :location, agent_id = :agent_id,
        is_active = :is_active, farm_type = :farm_type, farm_size = :farm_size, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, farm); err != nil {
		return fmt.Errorf("update farm: %w", err)
	}
	return nil
}

// Delete removes a farm row.
func (r *FarmRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM farms WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete farm: %w", err)
	}
	return nil
}

func pageBounds(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size, (page - 1) * size
}
