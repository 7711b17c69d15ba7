package dto

import "github.com/noah-isme/rtms-schedule-api/internal/models"

// AdverseEventRequest reports a serious adverse event for a session. EventDate defaults to
// the session date; OtherText is required when the types include "other".
type AdverseEventRequest struct {
	EventTypes []models.AdverseEventType `json:"eventTypes" validate:"required,min=1,dive,oneof=seizure finger_muscle syncope mania suicide_attempt other"`
	OtherText  string                    `json:"otherText" validate:"max=2000"`
	EventDate  string                    `json:"eventDate" validate:"omitempty,datetime=2006-01-02"`
}

// AdverseEventQuery binds list filters. Course 0 lists every course.
type AdverseEventQuery struct {
	Course int `form:"course" binding:"omitempty,min=0"`
}
