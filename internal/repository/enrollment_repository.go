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

// EnrollmentRepository handles persistence of farmer-farm enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments matching the filter with a total count.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN users u ON u.id = e.user_id
LEFT JOIN farms f ON f.id = e.farm_id`
	var conditions []string
	var args []interface{}

	if filter.AgentID != "" {
		conditions = append(conditions, fmt.Sprintf("f.agent_id = $%d", len(args)+1))
		args = append(args, filter.AgentID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("e.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.FarmID != "" {
		conditions = append(conditions, fmt.Sprintf("e.farm_id = $%d", len(args)+1))
		args = append(args, filter.FarmID)
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("e.is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT e.id, e.user_id, e.farm_id, e.is_active, e.progress, e.is_completed,
        e.total_yield, e.is_certificate_ready, e.enrolled_at, e.created_at, e.updated_at,
        u.username AS username, f.name AS farm_name
        %s ORDER BY e.enrolled_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, user_id, farm_id, is_active, progress, is_completed, total_yield,
        is_certificate_ready, enrolled_at, created_at, updated_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with farmer and farm context.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.user_id, e.farm_id, e.is_active, e.progress, e.is_completed,
        e.total_yield, e.is_certificate_ready, e.enrolled_at, e.created_at, e.updated_at,
        u.username AS username, f.name AS farm_name
        FROM enrollments e
        LEFT JOIN users u ON u.id = e.user_id
        LEFT JOIN farms f ON f.id = e.farm_id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindLatestActiveByUser returns the farmer's most recent active
// enrollment, ordered by enrolled_at so ties resolve to the latest row.
// Returns sql.ErrNoRows when every enrollment is inactive or absent.
func (r *EnrollmentRepository) FindLatestActiveByUser(ctx context.Context, userID string) (*models.Enrollment, error) {
	const query = `SELECT id, user_id, farm_id, is_active, progress, is_completed, total_yield,
        is_certificate_ready, enrolled_at, created_at, updated_at
        FROM enrollments WHERE user_id = $1 AND is_active = true
        ORDER BY enrolled_at DESC LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, userID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsForUserFarm checks whether the (user, farm) pair is already
// enrolled. The store constraint remains authoritative under races.
func (r *EnrollmentRepository) ExistsForUserFarm(ctx context.Context, userID, farmID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE user_id = $1 AND farm_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, farmID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// ExistsActiveForUserInAgentFarms checks whether the user holds an active
// enrollment in any farm managed by the agent.
func (r *EnrollmentRepository) ExistsActiveForUserInAgentFarms(ctx context.Context, userID, agentID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments e
        JOIN farms f ON f.id = e.farm_id
        WHERE e.user_id = $1 AND e.is_active = true AND f.agent_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, agentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check agent enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment row.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = now
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	const query = `INSERT INTO enrollments (id, user_id, farm_id, is_active, progress, is_completed,
        total_yield, is_certificate_ready, enrolled_at, created_at, updated_at)
        VALUES (:id, :user_id, :farm_id, :is_active, :progress, :is_completed,
        :total_yield, :is_certificate_ready, :enrolled_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Update persists the mutable fields of an enrollment row.
func (r *EnrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE enrollments SET user_id = :user_id, farm_id = :farm_id, is_active = :is_active,
        progress = :progress, is_completed = :is_completed, total_yield = :total_yield,
        is_certificate_ready = :is_certificate_ready, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	return nil
}

// Deactivate flips is_active off, preserving the row for history.
func (r *EnrollmentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE enrollments SET is_active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate enrollment: %w", err)
	}
	return nil
}

// Delete removes the enrollment row entirely.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM enrollments WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}
