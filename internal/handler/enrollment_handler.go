package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coop-training-api/internal/models"
	"github.com/noah-isme/coop-training-api/internal/service"
	appErrors "github.com/noah-isme/coop-training-api/pkg/errors"
	"github.com/noah-isme/coop-training-api/pkg/response"
)

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
	metrics     *service.MetricsService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, metrics *service.MetricsService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, metrics: metrics}
}

// Create godoc
// @Summary Enroll an officer in a training
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.enrollments.Enroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordEnrollmentOutcome(result.Outcome)

	// Only a fresh registration is a 201; the other outcomes report state
	// that already held.
	status := http.StatusOK
	if result.Outcome == models.EnrollmentOutcomeEnrolled {
		status = http.StatusCreated
	}
	response.JSON(c, status, result, nil)
}

// Delete godoc
// @Summary Remove an enrollment
// @Tags Enrollments
// @Param id path string true "Enrollment ID"
// @Success 204
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	if err := h.enrollments.Unenroll(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListByOfficer godoc
// @Summary List an officer's enrollments
// @Tags Enrollments
// @Produce json
// @Param id path string true "Officer ID"
// @Success 200 {object} response.Envelope
// @Router /officers/{id}/enrollments [get]
func (h *EnrollmentHandler) ListByOfficer(c *gin.Context) {
	enrollments, err := h.enrollments.ListByOfficer(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}
