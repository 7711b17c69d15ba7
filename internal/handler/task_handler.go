package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rtms-schedule-api/internal/dto"
	"github.com/noah-isme/rtms-schedule-api/pkg/response"
)

type taskService interface {
	PatientTasks(ctx context.Context, patientID, rawDate string) (*dto.PatientTasks, error)
	PatientDashboard(ctx context.Context, patientID, rawDate string) (*dto.PatientTasks, error)
	Dashboard(ctx context.Context, rawDate string) (*dto.DashboardTasks, error)
}

// TaskHandler serves the daily task lists.
type TaskHandler struct {
	service taskService
}

// NewTaskHandler builds a new handler.
func NewTaskHandler(service taskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// PatientTasks godoc
// @Summary Tasks of a patient on a day
// @Tags Tasks
// @Produce json
// @Param id path string true "Patient ID"
// @Param date query string false "Date (YYYY-MM-DD), defaults to clinic today"
// @Success 200 {object} response.Envelope
// @Router /patients/{id}/tasks [get]
func (h *TaskHandler) PatientTasks(c *gin.Context) {
	tasks, err := h.service.PatientTasks(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tasks)
}

// PatientDashboard godoc
// @Summary Dashboard tasks of a patient
// @Tags Tasks
// @Produce json
// @Param id path string true "Patient ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /patients/{id}/tasks/dashboard [get]
func (h *TaskHandler) PatientDashboard(c *gin.Context) {
	tasks, err := h.service.PatientDashboard(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tasks)
}

// Dashboard godoc
// @Summary Clinic dashboard
// @Description Actionable tasks of every active patient for a day
// @Tags Tasks
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/tasks [get]
func (h *TaskHandler) Dashboard(c *gin.Context) {
	tasks, err := h.service.Dashboard(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tasks, map[string]interface{}{"total": tasks.Total})
}
