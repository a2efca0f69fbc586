package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/farmhub/farmhub-api/internal/models"
	appErrors "github.com/farmhub/farmhub-api/pkg/errors"
	"github.com/farmhub/farmhub-api/pkg/export"
)

// DefaultRecentActivityLimit bounds the recent-activity report when the
// caller omits or mangles the limit parameter.
const DefaultRecentActivityLimit = 10

type reportRepository interface {
	FarmSummary(ctx context.Context) (*models.FarmSummary, error)
	MilkProduction(ctx context.Context, filter models.ReportFilter) (*models.MilkProductionReport, error)
	RecentActivities(ctx context.Context, filter models.ReportFilter, limit int) ([]models.ActivityReportItem, error)
}

// ReportService serves the read-only dashboard aggregations, optionally
// fronted by a Redis cache.
type ReportService struct {
	repo   reportRepository
	cache  *CacheService
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(repo reportRepository, cache *CacheService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:   repo,
		cache:  cache,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// FarmSummary returns platform-wide counters.
func (s *ReportService) FarmSummary(ctx context.Context) (*models.FarmSummary, error) {
	const key = "report:farm-summary"
	var cached models.FarmSummary
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	summary, err := s.repo.FarmSummary(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build farm summary")
	}
	_ = s.cache.Set(ctx, key, summary, 0)
	return summary, nil
}

// MilkProduction returns the filtered milk report.
func (s *ReportService) MilkProduction(ctx context.Context, filter models.ReportFilter) (*models.MilkProductionReport, error) {
	key := milkReportKey(filter)
	var cached models.MilkProductionReport
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	report, err := s.repo.MilkProduction(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build milk report")
	}
	_ = s.cache.Set(ctx, key, report, 0)
	return report, nil
}

// RecentActivities returns the latest activity rows. A non-positive limit
// falls back to the default.
func (s *ReportService) RecentActivities(ctx context.Context, filter models.ReportFilter, limit int) ([]models.ActivityReportItem, error) {
	if limit <= 0 {
		limit = DefaultRecentActivityLimit
	}
	items, err := s.repo.RecentActivities(ctx, filter, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build activity report")
	}
	return items, nil
}

// MilkProductionCSV renders the milk report as CSV bytes.
func (s *ReportService) MilkProductionCSV(ctx context.Context, filter models.ReportFilter) ([]byte, error) {
	report, err := s.MilkProduction(ctx, filter)
	if err != nil {
		return nil, err
	}
	payload, err := s.csv.Render(milkReportDataset(report))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, nil
}

// MilkProductionPDF renders the milk report as PDF bytes.
func (s *ReportService) MilkProductionPDF(ctx context.Context, filter models.ReportFilter) ([]byte, error) {
	report, err := s.MilkProduction(ctx, filter)
	if err != nil {
		return nil, err
	}
	payload, err := s.pdf.Render(milkReportDataset(report), "Milk Production Report")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return payload, nil
}

// Invalidate drops all cached report payloads.
func (s *ReportService) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx, "report:*")
}

func milkReportDataset(report *models.MilkProductionReport) export.Dataset {
	headers := []string{"Date", "Cow Tag", "Farm", "Farmer", "Liters"}
	rows := make([]map[string]string, 0, len(report.Items))
	for _, item := range report.Items {
		rows = append(rows, map[string]string{
			"Date":    item.Date.Format("2006-01-02"),
			"Cow Tag": item.CowTagNumber,
			"Farm":    item.FarmName,
			"Farmer":  item.FarmerUsername,
			"Liters":  strconv.FormatFloat(item.Quantity, 'f', 2, 64),
		})
	}
	return export.Dataset{
		Headers: headers,
		Rows:    rows,
		Footer: map[string]string{
			"Date":   "Total",
			"Liters": strconv.FormatFloat(report.TotalLiters, 'f', 2, 64),
		},
	}
}

func milkReportKey(filter models.ReportFilter) string {
	format := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format("2006-01-02")
	}
	return fmt.Sprintf("report:milk:%s:%s:%s:%s:%s",
		filter.FarmID, filter.FarmerID, filter.CowID, format(filter.StartDate), format(filter.EndDate))
}
