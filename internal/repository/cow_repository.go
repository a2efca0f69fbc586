package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/farmhub/farmhub-api/internal/models"
)

// CowRepository handles persistence of cows.
type CowRepository struct {
	db *sqlx.DB
}

// NewCowRepository constructs the repository.
func NewCowRepository(db *sqlx.DB) *CowRepository {
	return &CowRepository{db: db}
}

// List returns cows matching the filter with a total count.
func (r *CowRepository) List(ctx context.Context, filter models.CowFilter) ([]models.CowDetail, int, error) {
	base := `FROM cows c
LEFT JOIN farms f ON f.id = c.farm_id
LEFT JOIN users u ON u.id = c.farmer_id`
	var conditions []string
	var args []interface{}

	if filter.AgentID != "" {
		conditions = append(conditions, fmt.Sprintf("f.agent_id = $%d", len(args)+1))
		args = append(args, filter.AgentID)
	}
	if filter.FarmerID != "" {
		conditions = append(conditions, fmt.Sprintf("c.farmer_id = $%d", len(args)+1))
		args = append(args, filter.FarmerID)
	}
	if filter.FarmID != "" {
		conditions = append(conditions, fmt.Sprintf("c.farm_id = $%d", len(args)+1))
		args = append(args, filter.FarmID)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT c.id, c.tag_number, c.breed, c.birth_date, c.health_status, c.farm_id,
        c.farmer_id, c.is_active, c.created_at, c.updated_at,
        f.name AS farm_name, u.username AS farmer_username
        %s ORDER BY c.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var cows []models.CowDetail
	if err := r.db.SelectContext(ctx, &cows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list cows: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count cows: %w", err)
	}
	return cows, total, nil
}

// FindByID returns a cow by its ID.
func (r *CowRepository) FindByID(ctx context.Context, id string) (*models.Cow, error) {
	const query = `SELECT id, tag_number, breed, birth_date, health_status, farm_id, farmer_id, is_active,
        created_at, updated_at FROM cows WHERE id = $1`
	var cow models.Cow
	if err := r.db.GetContext(ctx, &cow, query, id); err != nil {
		return nil, err
	}
	return &cow, nil
}

// FindDetailByID returns a cow with farm and farmer context.
func (r *CowRepository) FindDetailByID(ctx context.Context, id string) (*models.CowDetail, error) {
	const query = `SELECT c.id, c.tag_number, c.breed, c.birth_date, c.health_status, c.farm_id,
        c.farmer_id, c.is_active, c.created_at, c.updated_at,
        f.name AS farm_name, u.username AS farmer_username
        FROM cows c
        LEFT JOIN farms f ON f.id = c.farm_id
        LEFT JOIN users u ON u.id = c.farmer_id
        WHERE c.id = $1`
	var detail models.CowDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsTag checks whether a tag number is already taken.
func (r *CowRepository) ExistsTag(ctx context.Context, tagNumber, excludeID string) (bool, error) {
	query := "SELECT 1 FROM cows WHERE tag_number = $1"
	args := []interface{}{tagNumber}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check cow tag: %w", err)
	}
	return true, nil
}

// Create persists a new cow row.
func (r *CowRepository) Create(ctx context.Context, cow *models.Cow) error {
	if cow.ID == "" {
		cow.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cow.CreatedAt.IsZero() {
		cow.CreatedAt = now
	}
	cow.UpdatedAt = now
	const query = `INSERT INTO cows (id, tag_number, breed, birth_date, health_status, farm_id, farmer_id,
        is_active, created_at, updated_at)
        VALUES (:id, :tag_number, :breed, :birth_date, :health_status, :farm_id, :farmer_id,
        :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cow); err != nil {
		return fmt.Errorf("create cow: %w", err)
	}
	return nil
}

// Update persists the mutable fields of a cow row.
func (r *CowRepository) Update(ctx context.Context, cow *models.Cow) error {
	cow.UpdatedAt = time.Now().UTC()
	const query = `UPDATE cows SET tag_number = :tag_number, breed = :breed, birth_date = :birth_date,
        health_status = :health_status, farm_id = :farm_id, farmer_id = :farmer_id, is_active = :is_active,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, cow); err != nil {
		return fmt.Errorf("update cow: %w", err)
	}
	return nil
}

// Delete removes a cow row.
func (r *CowRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM cows WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete cow: %w", err)
	}
	return nil
}
