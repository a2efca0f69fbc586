package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farmhub/farmhub-api/internal/models"
	"github.com/farmhub/farmhub-api/internal/service"
	appErrors "github.com/farmhub/farmhub-api/pkg/errors"
	"github.com/farmhub/farmhub-api/pkg/response"
)

// CowHandler exposes cow endpoints.
type CowHandler struct {
	cows *service.CowService
}

// NewCowHandler constructs CowHandler.
func NewCowHandler(cows *service.CowService) *CowHandler {
	return &CowHandler{cows: cows}
}

// List godoc
// @Summary List visible cows
// @Tags Cows
// @Produce json
// @Security BearerAuth
// @Param farm_id query string false "Filter by farm"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /cows [get]
func (h *CowHandler) List(c *gin.Context) {
	var filter models.CowFilter
	filter.FarmID = c.Query("farm_id")
	filter.Page, filter.PageSize = pageParams(c)

	cows, pagination, err := h.cows.List(c.Request.Context(), principalFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cows, pagination)
}

// Get godoc
// @Summary Get cow detail
// @Tags Cows
// @Produce json
// @Security BearerAuth
// @Param id path string true "Cow ID"
// @Success 200 {object} response.Envelope
// @Router /cows/{id} [get]
func (h *CowHandler) Get(c *gin.Context) {
	cow, err := h.cows.Get(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cow, nil)
}

// Create godoc
// @Summary Register a cow
// @Tags Cows
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateCowRequest true "Cow payload"
// @Success 201 {object} response.Envelope
// @Router /cows [post]
func (h *CowHandler) Create(c *gin.Context) {
	var req service.CreateCowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cow, err := h.cows.Create(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cow)
}

// Update godoc
// @Summary Update a cow
// @Tags Cows
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Cow ID"
// @Param payload body service.UpdateCowRequest true "Cow payload"
// @Success 200 {object} response.Envelope
// @Router /cows/{id} [put]
func (h *CowHandler) Update(c *gin.Context) {
	var req service.UpdateCowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cow, err := h.cows.Update(c.Request.Context(), principalFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cow, nil)
}

// Delete godoc
// @Summary Delete a cow
// @Tags Cows
// @Security BearerAuth
// @Param id path string true "Cow ID"
// @Success 204
// @Router /cows/{id} [delete]
func (h *CowHandler) Delete(c *gin.Context) {
	if err := h.cows.Delete(c.Request.Context(), principalFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
