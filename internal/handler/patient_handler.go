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

type patientService interface {
	Create(ctx context.Context, req dto.CreatePatientRequest) (*models.Patient, error)
	Get(ctx context.Context, id string) (*models.Patient, error)
	List(ctx context.Context, query dto.PatientQuery) ([]models.Patient, *models.Pagination, error)
	UpdateSchedule(ctx context.Context, id string, req dto.UpdateScheduleRequest) (*models.Patient, error)
}

// PatientHandler exposes patient registration and schedule anchors.
type PatientHandler struct {
	service patientService
}

// NewPatientHandler builds a new handler.
func NewPatientHandler(service patientService) *PatientHandler {
	return &PatientHandler{service: service}
}

// List godoc
// @Summary List patients
// @Tags Patients
// @Produce json
// @Param search query string false "Card id or name"
// @Param active query bool false "Active filter"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /patients [get]
func (h *PatientHandler) List(c *gin.Context) {
	var query dto.PatientQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	patients, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patients, pagination)
}

// Create godoc
// @Summary Register a patient
// @Tags Patients
// @Accept json
// @Produce json
// @Param payload body dto.CreatePatientRequest true "Patient payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /patients [post]
func (h *PatientHandler) Create(c *gin.Context) {
	var req dto.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid patient payload"))
		return
	}
	patient, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, patient)
}

// Get godoc
// @Summary Get a patient
// @Tags Patients
// @Produce json
// @Param id path string true "Patient ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /patients/{id} [get]
func (h *PatientHandler) Get(c *gin.Context) {
	patient, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, patient)
}

// UpdateSchedule godoc
// @Summary Update schedule anchors
// @Description Change first treatment date, discharge date, protocol, course or survey flag
// @Tags Patients
// @Accept json
// @Produce json
// @Param id path string true "Patient ID"
// @Param payload body dto.UpdateScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Router /patients/{id}/schedule [patch]
func (h *PatientHandler) UpdateSchedule(c *gin.Context) {
	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	patient, err := h.service.UpdateSchedule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, patient)
}
