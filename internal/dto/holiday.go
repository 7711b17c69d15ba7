package dto

import "github.com/noah-isme/rtms-schedule-api/internal/models"

// HolidayRequest creates or renames a clinic holiday.
type HolidayRequest struct {
	Date string             `json:"date" validate:"required,datetime=2006-01-02"`
	Name string             `json:"name" validate:"required,max=128"`
	Kind models.HolidayKind `json:"kind" validate:"omitempty,oneof=PUBLIC CLOSURE"`
}

// HolidayQuery binds list filters.
type HolidayQuery struct {
	From string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" validate:"omitempty,datetime=2006-01-02"`
}
