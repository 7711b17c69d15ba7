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

type assessmentService interface {
	Record(ctx context.Context, patientID string, req dto.CreateAssessmentRequest) (*models.Assessment, error)
	RecordMapping(ctx context.Context, patientID string, req dto.CreateMappingRequest) (*models.MappingSession, error)
	Summary(ctx context.Context, patientID string) (*dto.AssessmentSummary, error)
}

// AssessmentHandler records HAM-D ratings and mapping sessions.
type AssessmentHandler struct {
	service assessmentService
}

// NewAssessmentHandler builds a new handler.
func NewAssessmentHandler(service assessmentService) *AssessmentHandler {
	return &AssessmentHandler{service: service}
}

// Create godoc
// @Summary Record a HAM-D assessment
// @Tags Assessments
// @Accept json
// @Produce json
// @Param id path string true "Patient ID"
// @Param payload body dto.CreateAssessmentRequest true "Assessment payload"
// @Success 201 {object} response.Envelope
// @Router /patients/{id}/assessments [post]
func (h *AssessmentHandler) Create(c *gin.Context) {
	var req dto.CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assessment payload"))
		return
	}
	assessment, err := h.service.Record(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assessment)
}

// Summary godoc
// @Summary HAM-D trend and recommendation
// @Tags Assessments
// @Produce json
// @Param id path string true "Patient ID"
// @Success 200 {object} response.Envelope
// @Router /patients/{id}/assessments/summary [get]
func (h *AssessmentHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// CreateMapping godoc
// @Summary Record a mapping session
// @Tags Assessments
// @Accept json
// @Produce json
// @Param id path string true "Patient ID"
// @Param payload body dto.CreateMappingRequest true "Mapping payload"
// @Success 201 {object} response.Envelope
// @Router /patients/{id}/mappings [post]
func (h *AssessmentHandler) CreateMapping(c *gin.Context) {
	var req dto.CreateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mapping payload"))
		return
	}
	mapping, err := h.service.RecordMapping(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mapping)
}
