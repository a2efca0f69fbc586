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

// ActivityRepository handles persistence of cow activities.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// List returns activities matching the filter with a total count.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityDetail, int, error) {
	base := `FROM activities a
LEFT JOIN cows c ON c.id = a.cow_id
LEFT JOIN farms f ON f.id = c.farm_id
LEFT JOIN users u ON u.id = a.recorded_by`
	var conditions []string
	var args []interface{}

	if filter.AgentID != "" {
		conditions = append(conditions, fmt.Sprintf("f.agent_id = $%d", len(args)+1))
		args = append(args, filter.AgentID)
	}
	if filter.RecorderID != "" {
		conditions = append(conditions, fmt.Sprintf("a.recorded_by = $%d", len(args)+1))
		args = append(args, filter.RecorderID)
	}
	if filter.CowID != "" {
		conditions = append(conditions, fmt.Sprintf("a.cow_id = $%d", len(args)+1))
		args = append(args, filter.CowID)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT a.id, a.activity_type, a.description, a.date, a.category, a.cow_id,
        a.recorded_by, a.created_at, a.updated_at,
        c.tag_number AS cow_tag_number, f.name AS farm_name, u.username AS recorded_by_username
        %s ORDER BY a.date DESC, a.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var activities []models.ActivityDetail
	if err := r.db.SelectContext(ctx, &activities, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list activities: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count activities: %w", err)
	}
	return activities, total, nil
}

// FindByID returns an activity by its ID.
func (r *ActivityRepository) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	const query = `SELECT id, activity_type, description, date, category, cow_id, recorded_by, created_at, updated_at
FROM activities WHERE id = $1`
	var activity models.Activity
	if err := r.db.GetContext(ctx, &activity, query, id); err != nil {
		return nil, err
	}
	return &activity, nil
}

// FindDetailByID returns an activity with cow and farm context.
func (r *ActivityRepository) FindDetailByID(ctx context.Context, id string) (*models.ActivityDetail, error) {
	const query = `SELECT a.id, a.activity_type, a.description, a.date, a.category, a.cow_id,
        a.recorded_by, a.created_at, a.updated_at,
        c.tag_number AS cow_tag_number, f.name AS farm_name, u.username AS recorded_by_username
        FROM activities a
        LEFT JOIN cows c ON c.id = a.cow_id
        LEFT JOIN farms f ON f.id = c.farm_id
        LEFT JOIN users u ON u.id = a.recorded_by
        WHERE a.id = $1`
	var detail models.ActivityDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create persists a new activity row.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = now
	}
	activity.UpdatedAt = now
	const query = `INSERT INTO activities (id, activity_type, description, date, category, cow_id, recorded_by,
        created_at, updated_at)
        VALUES (:id, :activity_type, :description, :date, :category, :cow_id, :recorded_by,
        :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, activity); err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// Update persists the mutable fields of an activity row.
func (r *ActivityRepository) Update(ctx context.Context, activity *models.Activity) error {
	activity.UpdatedAt = time.Now().UTC()
	const query = `UPDATE activities SET activity_type = :activity_type, description = :description,
        date = :date, category = :category, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, activity); err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	return nil
}

// Delete removes an activity row.
func (r *ActivityRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM activities WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return nil
}
