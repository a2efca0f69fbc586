package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farmhub/farmhub-api/internal/models"
	"github.com/farmhub/farmhub-api/internal/service"
	appErrors "github.com/farmhub/farmhub-api/pkg/errors"
	"github.com/farmhub/farmhub-api/pkg/response"
)

// FarmHandler exposes farm endpoints.
type FarmHandler struct {
	farms *service.FarmService
}

// NewFarmHandler constructs FarmHandler.
func NewFarmHandler(farms *service.FarmService) *FarmHandler {
	return &FarmHandler{farms: farms}
}

// List godoc
// @Summary List visible farms
// @Tags Farms
// @Produce json
// @Security BearerAuth
// @Param active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /farms [get]
func (h *FarmHandler) List(c *gin.Context) {
	var filter models.FarmFilter
	if active := c.Query("active"); active != "" {
		v := active == "true"
		filter.IsActive = &v
	}
	filter.Page, filter.PageSize = pageParams(c)

	farms, pagination, err := h.farms.List(c.Request.Context(), principalFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, farms, pagination)
}

// Get godoc
// @Summary Get farm detail
// @Tags Farms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Farm ID"
// @Success 200 {object} response.Envelope
// @Router /farms/{id} [get]
func (h *FarmHandler) Get(c *gin.Context) {
	farm, err := h.farms.Get(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, farm, nil)
}

// Create godoc
// @Summary Create a farm
// @Tags Farms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateFarmRequest true "Farm payload"
// @Success 201 {object} response.Envelope
// @Router /farms [post]
func (h *FarmHandler) Create(c *gin.Context) {
	var req service.CreateFarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	farm, err := h.farms.Create(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, farm)
}

// Update godoc
// @Summary Update a farm
// @Tags Farms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Farm ID"
// @Param payload body service.UpdateFarmRequest true "Farm payload"
// @Success 200 {object} response.Envelope
// @Router /farms/{id} [put]
func (h *FarmHandler) Update(c *gin.Context) {
	var req service.UpdateFarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	farm, err := h.farms.Update(c.Request.Context(), principalFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, farm, nil)
}

// Delete godoc
// @Summary Delete a farm
// @Tags Farms
// @Security BearerAuth
// @Param id path string true "Farm ID"
// @Success 204
// @Router /farms/{id} [delete]
func (h *FarmHandler) Delete(c *gin.Context) {
	if err := h.farms.Delete(c.Request.Context(), principalFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
