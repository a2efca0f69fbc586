package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/farmhub/farmhub-api/internal/models"
)

// ReportRepository runs the read-only aggregation queries behind the
// reporting service. It never writes.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new instance of ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// FarmSummary returns platform-wide counters for the dashboard header.
func (r *ReportRepository) FarmSummary(ctx context.Context) (*models.FarmSummary, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM farms) AS farms,
        (SELECT COUNT(*) FROM users WHERE role = 'farmer') AS farmers,
        (SELECT COUNT(*) FROM cows) AS cows,
        (SELECT COALESCE(SUM(quantity), 0) FROM milk_productions) AS total_milk_liters`
	var summary models.FarmSummary
	if err := r.db.GetContext(ctx, &summary, query); err != nil {
		return nil, fmt.Errorf("farm summary: %w", err)
	}
	return &summary, nil
}

// milkReportConditions builds the shared WHERE clause for milk queries.
// FarmerID matches records the farmer recorded as well as records taken
// against the farmer's cows.
func milkReportConditions(filter models.ReportFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.FarmID != "" {
		conditions = append(conditions, fmt.Sprintf("c.farm_id = $%d", len(args)+1))
		args = append(args, filter.FarmID)
	}
	if filter.FarmerID != "" {
		conditions = append(conditions, fmt.Sprintf("(m.recorded_by = $%d OR c.farmer_id = $%d)", len(args)+1, len(args)+2))
		args = append(args, filter.FarmerID, filter.FarmerID)
	}
	if filter.CowID != "" {
		conditions = append(conditions, fmt.Sprintf("m.cow_id = $%d", len(args)+1))
		args = append(args, filter.CowID)
	}
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("m.date >= $%d", len(args)+1))
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("m.date <= $%d", len(args)+1))
		args = append(args, *filter.EndDate)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}
	return clause, args
}

// MilkProduction returns the filtered milk records together with their
// count and total volume in liters.
func (r *ReportRepository) MilkProduction(ctx context.Context, filter models.ReportFilter) (*models.MilkProductionReport, error) {
	clause, args := milkReportConditions(filter)

	query := fmt.Sprintf(`SELECT m.id, m.date, m.quantity, m.cow_id, c.tag_number AS cow_tag_number,
        c.farm_id, f.name AS farm_name, c.farmer_id, u.username AS farmer_username
        FROM milk_productions m
        JOIN cows c ON c.id = m.cow_id
        JOIN farms f ON f.id = c.farm_id
        JOIN users u ON u.id = c.farmer_id
        %s ORDER BY m.date DESC, m.created_at DESC`, clause)

	items := []models.MilkReportItem{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("milk production report: %w", err)
	}

	report := &models.MilkProductionReport{Count: len(items), Items: items}
	for _, item := range items {
		report.TotalLiters += item.Quantity
	}
	return report, nil
}

// RecentActivities returns the most recent activity records matching the
// filter, newest first, capped at limit.
func (r *ReportRepository) RecentActivities(ctx context.Context, filter models.ReportFilter, limit int) ([]models.ActivityReportItem, error) {
	var conditions []string
	var args []interface{}

	if filter.FarmID != "" {
		conditions = append(conditions, fmt.Sprintf("c.farm_id = $%d", len(args)+1))
		args = append(args, filter.FarmID)
	}
	if filter.FarmerID != "" {
		conditions = append(conditions, fmt.Sprintf("(a.recorded_by = $%d OR c.farmer_id = $%d)", len(args)+1, len(args)+2))
		args = append(args, filter.FarmerID, filter.FarmerID)
	}
	if filter.CowID != "" {
		conditions = append(conditions, fmt.Sprintf("a.cow_id = $%d", len(args)+1))
		args = append(args, filter.CowID)
	}
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, *filter.EndDate)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT a.id, a.date, a.activity_type, a.description, a.category,
        a.cow_id, c.tag_number AS cow_tag_number, c.farm_id, f.name AS farm_name,
        a.recorded_by AS recorded_by_id, u.username AS recorded_by_username
        FROM activities a
        JOIN cows c ON c.id = a.cow_id
        JOIN farms f ON f.id = c.farm_id
        JOIN users u ON u.id = a.recorded_by
        %s ORDER BY a.date DESC, a.created_at DESC LIMIT %d`, clause, limit)

	items := []models.ActivityReportItem{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("recent activities report: %w", err)
	}
	return items, nil
}
