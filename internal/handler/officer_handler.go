package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coop-training-api/internal/models"
	"github.com/noah-isme/coop-training-api/internal/service"
	"github.com/noah-isme/coop-training-api/pkg/response"
)

// OfficerHandler exposes the officer directory.
type OfficerHandler struct {
	officers *service.OfficerService
}

// NewOfficerHandler constructs OfficerHandler.
func NewOfficerHandler(officers *service.OfficerService) *OfficerHandler {
	return &OfficerHandler{officers: officers}
}

// List godoc
// @Summary List officers
// @Tags Officers
// @Produce json
// @Param role query string false "Filter by role"
// @Param search query string false "Search by name or cooperative"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /officers [get]
func (h *OfficerHandler) List(c *gin.Context) {
	var filter models.OfficerFilter
	if role := c.Query("role"); role != "" {
		officerRole := models.OfficerRole(role)
		filter.Role = &officerRole
	}
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	officers, pagination, err := h.officers.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, officers, pagination)
}

// Get godoc
// @Summary Get officer by ID
// @Tags Officers
// @Produce json
// @Param id path string true "Officer ID"
// @Success 200 {object} response.Envelope
// @Router /officers/{id} [get]
func (h *OfficerHandler) Get(c *gin.Context) {
	officer, err := h.officers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, officer, nil)
}
