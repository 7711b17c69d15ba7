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

type adverseEventService interface {
	Report(ctx context.Context, sessionID string, req dto.AdverseEventRequest, userID string) (*models.SeriousAdverseEvent, error)
	List(ctx context.Context, patientID string, course int) ([]models.SeriousAdverseEvent, error)
}

// AdverseEventHandler records serious adverse events.
type AdverseEventHandler struct {
	service adverseEventService
}

// NewAdverseEventHandler builds a new handler.
func NewAdverseEventHandler(service adverseEventService) *AdverseEventHandler {
	return &AdverseEventHandler{service: service}
}

// Report godoc
// @Summary Report a serious adverse event
// @Description Records the event against the session with a snapshot of its stimulation parameters. One report per session.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.AdverseEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/adverse-events [post]
func (h *AdverseEventHandler) Report(c *gin.Context) {
	var req dto.AdverseEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid adverse event payload"))
		return
	}
	event, err := h.service.Report(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// List godoc
// @Summary List serious adverse events of a patient
// @Tags Sessions
// @Produce json
// @Param id path string true "Patient ID"
// @Param course query int false "Course number"
// @Success 200 {object} response.Envelope
// @Router /patients/{id}/adverse-events [get]
func (h *AdverseEventHandler) List(c *gin.Context) {
	var query dto.AdverseEventQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	events, err := h.service.List(c.Request.Context(), c.Param("id"), query.Course)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, events)
}
