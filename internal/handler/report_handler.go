package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/farmhub/farmhub-api/internal/models"
	"github.com/farmhub/farmhub-api/internal/service"
	appErrors "github.com/farmhub/farmhub-api/pkg/errors"
	"github.com/farmhub/farmhub-api/pkg/response"
)

// ReportHandler exposes the read-only dashboard report endpoints. Access is
// token-gated only; reports aggregate across the whole platform.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// FarmSummary godoc
// @Summary Platform-wide farm summary counters
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /reports/farm-summary [get]
func (h *ReportHandler) FarmSummary(c *gin.Context) {
	summary, err := h.reports.FarmSummary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// MilkProduction godoc
// @Summary Filtered milk production report
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param farm_id query string false "Filter by farm"
// @Param farmer_id query string false "Filter by farmer (recorder or cow owner)"
// @Param cow_id query string false "Filter by cow"
// @Param start_date query string false "Inclusive start date (YYYY-MM-DD)"
// @Param end_date query string false "Inclusive end date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/milk-production [get]
func (h *ReportHandler) MilkProduction(c *gin.Context) {
	filter, err := reportFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.reports.MilkProduction(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// MilkProductionCSV godoc
// @Summary Milk production report as CSV
// @Tags Reports
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {string} string
// @Router /reports/milk-production/export.csv [get]
func (h *ReportHandler) MilkProductionCSV(c *gin.Context) {
	filter, err := reportFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, err := h.reports.MilkProductionCSV(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="milk-production.csv"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

// MilkProductionPDF godoc
// @Summary Milk production report as PDF
// @Tags Reports
// @Produce application/pdf
// @Security BearerAuth
// @Success 200 {string} string
// @Router /reports/milk-production/export.pdf [get]
func (h *ReportHandler) MilkProductionPDF(c *gin.Context) {
	filter, err := reportFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, err := h.reports.MilkProductionPDF(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="milk-production.pdf"`)
	c.Data(http.StatusOK, "application/pdf", payload)
}

// RecentActivities godoc
// @Summary Most recent activity records
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param farm_id query string false "Filter by farm"
// @Param farmer_id query string false "Filter by farmer (recorder or cow owner)"
// @Param cow_id query string false "Filter by cow"
// @Param start_date query string false "Inclusive start date (YYYY-MM-DD)"
// @Param end_date query string false "Inclusive end date (YYYY-MM-DD)"
// @Param limit query int false "Row cap (default 10)"
// @Success 200 {object} response.Envelope
// @Router /reports/recent-activities [get]
func (h *ReportHandler) RecentActivities(c *gin.Context) {
	filter, err := reportFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultRecentActivityLimit)))
	if err != nil {
		limit = service.DefaultRecentActivityLimit
	}
	items, err := h.reports.RecentActivities(c.Request.Context(), filter, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

func reportFilterFromQuery(c *gin.Context) (models.ReportFilter, error) {
	filter := models.ReportFilter{
		FarmID:   c.Query("farm_id"),
		FarmerID: c.Query("farmer_id"),
		CowID:    c.Query("cow_id"),
	}
	parse := func(raw string) (*time.Time, error) {
		if raw == "" {
			return nil, nil
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "dates must be YYYY-MM-DD")
		}
		return &t, nil
	}
	start, err := parse(c.Query("start_date"))
	if err != nil {
		return filter, err
	}
	end, err := parse(c.Query("end_date"))
	if err != nil {
		return filter, err
	}
	filter.StartDate, filter.EndDate = start, end
	return filter, nil
}
