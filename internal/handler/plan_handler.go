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

type planService interface {
	Preview(ctx context.Context, patientID string, req dto.PlanRequest) (*dto.PlanPreview, error)
	Generate(ctx context.Context, patientID string, req dto.PlanRequest) ([]models.TreatmentSession, error)
	SessionInfo(ctx context.Context, patientID, rawDate string) (*dto.SessionLookup, error)
	ListSessions(ctx context.Context, patientID string) ([]models.TreatmentSession, error)
}

// PlanHandler exposes treatment plan generation and session lookup.
type PlanHandler struct {
	service planService
}

// NewPlanHandler builds a new handler.
func NewPlanHandler(service planService) *PlanHandler {
	return &PlanHandler{service: service}
}

// Preview godoc
// @Summary Preview a treatment plan
// @Description Computes planned session dates without storing them. A shortfall is flagged in the result.
// @Tags Treatment plan
// @Produce json
// @Param id path string true "Patient ID"
// @Param startDate query string true "First candidate date (YYYY-MM-DD)"
// @Param totalSessions query int false "Number of sessions (protocol default)"
// @Param sessionsPerWeek query int false "Sessions per treatment week"
// @Success 200 {object} response.Envelope
// @Router /patients/{id}/plan/preview [get]
func (h *PlanHandler) Preview(c *gin.Context) {
	var req dto.PlanRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid plan query"))
		return
	}
	preview, err := h.service.Preview(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, preview)
}

// Generate godoc
// @Summary Store a treatment plan
// @Description Persists the planned sessions of the patient's current course
// @Tags Treatment plan
// @Accept json
// @Produce json
// @Param id path string true "Patient ID"
// @Param payload body dto.PlanRequest true "Plan payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /patients/{id}/plan [post]
func (h *PlanHandler) Generate(c *gin.Context) {
	var req dto.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid plan payload"))
		return
	}
	sessions, err := h.service.Generate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sessions)
}

// Sessions godoc
// @Summary List course sessions
// @Tags Treatment plan
// @Produce json
// @Param id path string true "Patient ID"
// @Success 200 {object} response.Envelope
// @Router /patients/{id}/sessions [get]
func (h *PlanHandler) Sessions(c *gin.Context) {
	sessions, err := h.service.ListSessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sessions)
}

// Lookup godoc
// @Summary Locate a date in the course
// @Description Returns session and week number of a date. Skipped sessions are not counted.
// @Tags Treatment plan
// @Produce json
// @Param id path string true "Patient ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /patients/{id}/sessions/lookup [get]
func (h *PlanHandler) Lookup(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date is required"))
		return
	}
	lookup, err := h.service.SessionInfo(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, lookup)
}
