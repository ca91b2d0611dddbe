package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coop-training-api/internal/service"
	appErrors "github.com/noah-isme/coop-training-api/pkg/errors"
	"github.com/noah-isme/coop-training-api/pkg/response"
)

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Mark godoc
// @Summary Record presence for an officer at a training
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkPresentRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req service.MarkPresentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.RecordedBy == nil {
		if claims := claimsFromContext(c); claims != nil {
			req.RecordedBy = &claims.OfficerID
		}
	}
	record, err := h.attendance.MarkPresent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Unmark godoc
// @Summary Remove a presence record
// @Tags Attendance
// @Param officer_id query string true "Officer ID"
// @Param training_id query string true "Training ID"
// @Success 204
// @Router /attendance [delete]
func (h *AttendanceHandler) Unmark(c *gin.Context) {
	officerID := c.Query("officer_id")
	trainingID := c.Query("training_id")
	if officerID == "" || trainingID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "officer_id and training_id are required"))
		return
	}
	if err := h.attendance.MarkAbsent(c.Request.Context(), officerID, trainingID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Get godoc
// @Summary Get a presence record
// @Tags Attendance
// @Produce json
// @Param officer_id query string true "Officer ID"
// @Param training_id query string true "Training ID"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	officerID := c.Query("officer_id")
	trainingID := c.Query("training_id")
	if officerID == "" || trainingID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "officer_id and training_id are required"))
		return
	}
	record, err := h.attendance.Get(c.Request.Context(), officerID, trainingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
