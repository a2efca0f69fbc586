package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farmhub/farmhub-api/internal/models"
	"github.com/farmhub/farmhub-api/internal/service"
	appErrors "github.com/farmhub/farmhub-api/pkg/errors"
	"github.com/farmhub/farmhub-api/pkg/response"
)

// MilkHandler exposes milk production endpoints.
type MilkHandler struct {
	milk *service.MilkService
}

// NewMilkHandler constructs MilkHandler.
func NewMilkHandler(milk *service.MilkService) *MilkHandler {
	return &MilkHandler{milk: milk}
}

// List godoc
// @Summary List visible milk records
// @Tags Milk
// @Produce json
// @Security BearerAuth
// @Param cow_id query string false "Filter by cow"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /milk-production [get]
func (h *MilkHandler) List(c *gin.Context) {
	var filter models.MilkFilter
	filter.CowID = c.Query("cow_id")
	filter.Page, filter.PageSize = pageParams(c)

	records, pagination, err := h.milk.List(c.Request.Context(), principalFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get milk record detail
// @Tags Milk
// @Produce json
// @Security BearerAuth
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /milk-production/{id} [get]
func (h *MilkHandler) Get(c *gin.Context) {
	record, err := h.milk.Get(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Create godoc
// @Summary Log a milk yield
// @Tags Milk
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateMilkRequest true "Milk payload"
// @Success 201 {object} response.Envelope
// @Router /milk-production [post]
func (h *MilkHandler) Create(c *gin.Context) {
	var req service.CreateMilkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.milk.Create(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Update godoc
// @Summary Correct a milk record
// @Tags Milk
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Record ID"
// @Param payload body service.UpdateMilkRequest true "Milk payload"
// @Success 200 {object} response.Envelope
// @Router /milk-production/{id} [put]
func (h *MilkHandler) Update(c *gin.Context) {
	var req service.UpdateMilkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.milk.Update(c.Request.Context(), principalFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Delete a milk record
// @Tags Milk
// @Security BearerAuth
// @Param id path string true "Record ID"
// @Success 204
// @Router /milk-production/{id} [delete]
func (h *MilkHandler) Delete(c *gin.Context) {
	if err := h.milk.Delete(c.Request.Context(), principalFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
