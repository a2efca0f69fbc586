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

// MilkRepository handles persistence of milk production records.
type MilkRepository struct {
	db *sqlx.DB
}

// NewMilkRepository constructs the repository.
func NewMilkRepository(db *sqlx.DB) *MilkRepository {
	return &MilkRepository{db: db}
}

// List returns milk records matching the filter with a total count.
func (r *MilkRepository) List(ctx context.Context, filter models.MilkFilter) ([]models.MilkProductionDetail, int, error) {
	base := `FROM milk_productions m
LEFT JOIN cows c ON c.id = m.cow_id
LEFT JOIN farms f ON f.id = c.farm_id
LEFT JOIN users u ON u.id = m.recorded_by`
	var conditions []string
	var args []interface{}

	if filter.AgentID != "" {
		conditions = append(conditions, fmt.Sprintf("f.agent_id = $%d", len(args)+1))
		args = append(args, filter.AgentID)
	}
	if filter.RecorderID != "" {
		conditions = append(conditions, fmt.Sprintf("m.recorded_by = $%d", len(args)+1))
		args = append(args, filter.RecorderID)
	}
	if filter.CowID != "" {
		conditions = append(conditions, fmt.Sprintf("m.cow_id = $%d", len(args)+1))
		args = append(args, filter.CowID)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT m.id, m.date, m.quantity, m.cow_id, m.recorded_by, m.created_at, m.updated_at,
        c.tag_number AS cow_tag_number, f.name AS farm_name, u.username AS recorded_by_username
        %s ORDER BY m.date DESC, m.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var records []models.MilkProductionDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list milk records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count milk records: %w", err)
	}
	return records, total, nil
}

// FindByID returns a milk record by its ID.
func (r *MilkRepository) FindByID(ctx context.Context, id string) (*models.MilkProduction, error) {
	const query = `SELECT id, date, quantity, cow_id, recorded_by, created_at, updated_at
FROM milk_productions WHERE id = $1`
	var record models.MilkProduction
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindDetailByID returns a milk record with cow and farm context.
func (r *MilkRepository) FindDetailByID(ctx context.Context, id string) (*models.MilkProductionDetail, error) {
	const query = `SELECT m.id, m.date, m.quantity, m.cow_id, m.recorded_by, m.created_at, m.updated_at,
        c.tag_number AS cow_tag_number, f.name AS farm_name, u.username AS recorded_by_username
        FROM milk_productions m
        LEFT JOIN cows c ON c.id = m.cow_id
        LEFT JOIN farms f ON f.id = c.farm_id
        LEFT JOIN users u ON u.id = m.recorded_by
        WHERE m.id = $1`
	var detail models.MilkProductionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsForCowDate checks whether a record already exists for the cow on
// the given day. The store constraint remains authoritative under races.
func (r *MilkRepository) ExistsForCowDate(ctx context.Context, cowID string, date time.Time, excludeID string) (bool, error) {
	query := "SELECT 1 FROM milk_productions WHERE cow_id = $1 AND date = $2"
	args := []interface{}{cowID, date}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check milk record: %w", err)
	}
	return true, nil
}

// Create persists a new milk record.
func (r *MilkRepository) Create(ctx context.Context, record *models.MilkProduction) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO milk_productions (id, date, quantity, cow_id, recorded_by, created_at, updated_at)
        VALUES (:id, :date, :quantity, :cow_id, :recorded_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create milk record: %w", err)
	}
	return nil
}

// Update persists the mutable fields of a milk record.
func (r *MilkRepository) Update(ctx context.Context, record *models.MilkProduction) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE milk_productions SET date = :date, quantity = :quantity, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("update milk record: %w", err)
	}
	return nil
}

// Delete removes a milk record.
func (r *MilkRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM milk_productions WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete milk record: %w", err)
	}
	return nil
}
