package dto

import "github.com/noah-isme/rtms-schedule-api/internal/models"

// CreatePatientRequest registers a patient.
type CreatePatientRequest struct {
	CardID             string              `json:"cardId" validate:"required,max=32"`
	Name               string              `json:"name" validate:"required,max=128"`
	BirthDate          *string             `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	ProtocolType       models.ProtocolType `json:"protocolType" validate:"omitempty,oneof=INSURANCE PMS"`
	CourseNumber       int                 `json:"courseNumber" validate:"omitempty,min=1"`
	FirstTreatmentDate *string             `json:"firstTreatmentDate" validate:"omitempty,datetime=2006-01-02"`
	IsAllCaseSurvey    bool                `json:"isAllCaseSurvey"`
}

// UpdateScheduleRequest changes the schedule anchors of a patient. Nil fields are kept.
type UpdateScheduleRequest struct {
	ProtocolType       *models.ProtocolType `json:"protocolType" validate:"omitempty,oneof=INSURANCE PMS"`
	CourseNumber       *int                 `json:"courseNumber" validate:"omitempty,min=1"`
	FirstTreatmentDate *string              `json:"firstTreatmentDate" validate:"omitempty,datetime=2006-01-02"`
	DischargeDate      *string              `json:"dischargeDate" validate:"omitempty,datetime=2006-01-02"`
	ClearDischargeDate bool                 `json:"clearDischargeDate"`
	IsAllCaseSurvey    *bool                `json:"isAllCaseSurvey"`
	Active             *bool                `json:"active"`
}

// PatientQuery binds list query parameters.
type PatientQuery struct {
	Search   string `form:"search"`
	Active   *bool  `form:"active"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}
