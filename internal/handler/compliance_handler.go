package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coop-training-api/internal/service"
	appErrors "github.com/noah-isme/coop-training-api/pkg/errors"
	"github.com/noah-isme/coop-training-api/pkg/response"
)

// ComplianceHandler exposes compliance evaluation endpoints.
type ComplianceHandler struct {
	compliance *service.ComplianceService
}

// NewComplianceHandler constructs ComplianceHandler.
func NewComplianceHandler(compliance *service.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{compliance: compliance}
}

// AssessRequest evaluates an officer against a caller-supplied required set.
type AssessRequest struct {
	RequiredTrainingIDs []string `json:"required_training_ids"`
}

// Assess godoc
// @Summary Evaluate an officer against an explicit required training set
// @Tags Compliance
// @Accept json
// @Produce json
// @Param id path string true "Officer ID"
// @Param payload body AssessRequest true "Required training set"
// @Success 200 {object} response.Envelope
// @Router /officers/{id}/compliance/assess [post]
func (h *ComplianceHandler) Assess(c *gin.Context) {
	var req AssessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assessment, err := h.compliance.Assess(c.Request.Context(), c.Param("id"), req.RequiredTrainingIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assessment, nil)
}

// AssessAssigned godoc
// @Summary Evaluate an officer against their assigned requirements
// @Tags Compliance
// @Produce json
// @Param id path string true "Officer ID"
// @Success 200 {object} response.Envelope
// @Router /officers/{id}/compliance [get]
func (h *ComplianceHandler) AssessAssigned(c *gin.Context) {
	assessment, err := h.compliance.AssessAssigned(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assessment, nil)
}

// AssignRequirements godoc
// @Summary Replace an officer's required training set
// @Tags Compliance
// @Accept json
// @Produce json
// @Param id path string true "Officer ID"
// @Param payload body service.AssignRequirementsRequest true "Training IDs"
// @Success 200 {object} response.Envelope
// @Router /officers/{id}/requirements [put]
func (h *ComplianceHandler) AssignRequirements(c *gin.Context) {
	var req service.AssignRequirementsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	requirements, err := h.compliance.AssignRequirements(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requirements, nil)
}

// ListRequirements godoc
// @Summary List an officer's assigned requirements
// @Tags Compliance
// @Produce json
// @Param id path string true "Officer ID"
// @Success 200 {object} response.Envelope
// @Router /officers/{id}/requirements [get]
func (h *ComplianceHandler) ListRequirements(c *gin.Context) {
	requirements, err := h.compliance.ListRequirements(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requirements, nil)
}

// Overview godoc
// @Summary Compliance overview across all officers
// @Tags Compliance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /compliance/overview [get]
func (h *ComplianceHandler) Overview(c *gin.Context) {
	overview, err := h.compliance.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}
