package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/farmhub/farmhub-api/internal/models"
	"github.com/farmhub/farmhub-api/internal/service"
)

type fakeReportRepo struct {
	summary    *models.FarmSummary
	milk       *models.MilkProductionReport
	activities []models.ActivityReportItem
	lastFilter models.ReportFilter
	lastLimit  int
}

func (f *fakeReportRepo) FarmSummary(ctx context.Context) (*models.FarmSummary, error) {
	return f.summary, nil
}

func (f *fakeReportRepo) MilkProduction(ctx context.Context, filter models.ReportFilter) (*models.MilkProductionReport, error) {
	f.lastFilter = filter
	return f.milk, nil
}

func (f *fakeReportRepo) RecentActivities(ctx context.Context, filter models.ReportFilter, limit int) ([]models.ActivityReportItem, error) {
	f.lastFilter = filter
	f.lastLimit = limit
	return f.activities, nil
}

func newReportHandler() (*ReportHandler, *fakeReportRepo) {
	repo := &fakeReportRepo{
		summary: &models.FarmSummary{Farms: 2, Farmers: 5, Cows: 20, TotalMilkLiters: 310.5},
		milk: &models.MilkProductionReport{Count: 1, TotalLiters: 12.5, Items: []models.MilkReportItem{
			{ID: "milk-1", Date: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), Quantity: 12.5, CowTagNumber: "N-001"},
		}},
		activities: []models.ActivityReportItem{{ID: "act-1", ActivityType: "vaccination"}},
	}
	svc := service.NewReportService(repo, nil, zap.NewNop())
	return NewReportHandler(svc), repo
}

func TestReportHandlerFarmSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newReportHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/reports/farm-summary", nil)

	handler.FarmSummary(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.FarmSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 2, envelope.Data.Farms)
	assert.Equal(t, 310.5, envelope.Data.TotalMilkLiters)
}

func TestReportHandlerMilkProductionFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newReportHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/reports/milk-production?farm_id=farm-1&start_date=2026-08-01&end_date=2026-08-31", nil)

	handler.MilkProduction(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "farm-1", repo.lastFilter.FarmID)
	require.NotNil(t, repo.lastFilter.StartDate)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), *repo.lastFilter.StartDate)
	require.NotNil(t, repo.lastFilter.EndDate)
}

func TestReportHandlerRejectsBadDates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newReportHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/reports/milk-production?start_date=20-08-2026", nil)

	handler.MilkProduction(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "dates must be YYYY-MM-DD")
}

func TestReportHandlerRecentActivitiesLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newReportHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/reports/recent-activities?limit=abc", nil)

	handler.RecentActivities(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.DefaultRecentActivityLimit, repo.lastLimit)
}

func TestReportHandlerCSVExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newReportHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/reports/milk-production/export.csv", nil)

	handler.MilkProductionCSV(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "milk-production.csv")
	assert.Contains(t, rec.Body.String(), "Date,Cow Tag,Farm,Farmer,Liters")
}
