package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rtms-schedule-api/internal/dto"
	"github.com/noah-isme/rtms-schedule-api/internal/models"
	appErrors "github.com/noah-isme/rtms-schedule-api/pkg/errors"
	"github.com/noah-isme/rtms-schedule-api/pkg/response"
)

type rescheduleService interface {
	Skip(ctx context.Context, sessionID string, req dto.SkipRequest, userID string) (*dto.SkipResult, error)
	Undo(ctx context.Context, skipID, userID string) (*dto.UndoResult, error)
	ShiftFutureSessions(ctx context.Context, patientID string, req dto.ShiftRequest) (*dto.ShiftResult, error)
	MarkDone(ctx context.Context, sessionID string, req dto.MarkDoneRequest) (*models.TreatmentSession, error)
	ListSkips(ctx context.Context, patientID string) ([]models.TreatmentSkip, error)
}

// SessionHandler exposes session state changes: skip, undo, reschedule and completion.
type SessionHandler struct {
	service rescheduleService
}

// NewSessionHandler builds a new handler.
func NewSessionHandler(service rescheduleService) *SessionHandler {
	return &SessionHandler{service: service}
}

// Skip godoc
// @Summary Skip a planned session
// @Description Marks the session skipped and re-plans every later planned session onto consecutive business days starting the business day after the skip date. Sessions already on their re-planned day keep their date, and the discharge date moves by the same number of days as the last session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.SkipRequest false "Skip reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /sessions/{id}/skip [post]
func (h *SessionHandler) Skip(c *gin.Context) {
	var req dto.SkipRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid skip payload"))
			return
		}
	}
	result, err := h.service.Skip(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Done godoc
// @Summary Complete a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.MarkDoneRequest false "Completion details"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/done [post]
func (h *SessionHandler) Done(c *gin.Context) {
	var req dto.MarkDoneRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid completion payload"))
			return
		}
	}
	session, err := h.service.MarkDone(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// Reschedule godoc
// @Summary Shift future sessions
// @Description Re-plans planned sessions after fromDate onto consecutive business days
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Patient ID"
// @Param payload body dto.ShiftRequest true "Shift payload"
// @Success 200 {object} response.Envelope
// @Router /patients/{id}/reschedule [post]
func (h *SessionHandler) Reschedule(c *gin.Context) {
	var req dto.ShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid shift payload"))
		return
	}
	result, err := h.service.ShiftFutureSessions(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Skips godoc
// @Summary List skips of a patient
// @Tags Sessions
// @Produce json
// @Param id path string true "Patient ID"
// @Success 200 {object} response.Envelope
// @Router /patients/{id}/skips [get]
func (h *SessionHandler) Skips(c *gin.Context) {
	skips, err := h.service.ListSkips(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, skips)
}

// Undo godoc
// @Summary Undo a skip
// @Description Restores the snapshotted dates and discharge date of a skip. Fails with CONFLICT while a later skip still holds any of them, so stacked skips are undone newest first
// @Tags Sessions
// @Produce json
// @Param id path string true "Skip ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /skips/{id}/undo [post]
func (h *SessionHandler) Undo(c *gin.Context) {
	result, err := h.service.Undo(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
