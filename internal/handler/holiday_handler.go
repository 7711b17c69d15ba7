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

type holidayService interface {
	List(ctx context.Context, query dto.HolidayQuery) ([]models.ClinicHoliday, error)
	Save(ctx context.Context, req dto.HolidayRequest) (*models.ClinicHoliday, error)
	Delete(ctx context.Context, rawDate string) error
}

// HolidayHandler manages the clinic closure calendar.
type HolidayHandler struct {
	service holidayService
}

// NewHolidayHandler builds a new handler.
func NewHolidayHandler(service holidayService) *HolidayHandler {
	return &HolidayHandler{service: service}
}

// List godoc
// @Summary List clinic holidays
// @Tags Holidays
// @Produce json
// @Param from query string false "From date"
// @Param to query string false "To date"
// @Success 200 {object} response.Envelope
// @Router /holidays [get]
func (h *HolidayHandler) List(c *gin.Context) {
	var query dto.HolidayQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	holidays, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holidays, nil)
}

// Save godoc
// @Summary Create or rename a holiday
// @Tags Holidays
// @Accept json
// @Produce json
// @Param payload body dto.HolidayRequest true "Holiday payload"
// @Success 200 {object} response.Envelope
// @Router /holidays [post]
func (h *HolidayHandler) Save(c *gin.Context) {
	var req dto.HolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid holiday payload"))
		return
	}
	holiday, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, holiday)
}

// Delete godoc
// @Summary Remove a holiday
// @Tags Holidays
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 204
// @Router /holidays/{date} [delete]
func (h *HolidayHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("date")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
