package models

import "time"

// ProtocolType identifies the treatment protocol of a patient's course.
type ProtocolType string

const (
	ProtocolInsurance ProtocolType = "INSURANCE"
	ProtocolPMS       ProtocolType = "PMS"
)

// Patient holds the schedule anchors of a treated patient.
type Patient struct {
	ID                 string       `db:"id" json:"id"`
	CardID             string       `db:"card_id" json:"card_id"`
	Name               string       `db:"name" json:"name"`
	BirthDate          *time.Time   `db:"birth_date" json:"birth_date,omitempty"`
	ProtocolType       ProtocolType `db:"protocol_type" json:"protocol_type"`
	CourseNumber       int          `db:"course_number" json:"course_number"`
	FirstTreatmentDate *time.Time   `db:"first_treatment_date" json:"first_treatment_date,omitempty"`
	DischargeDate      *time.Time   `db:"discharge_date" json:"discharge_date,omitempty"`
	IsAllCaseSurvey    bool         `db:"is_all_case_survey" json:"is_all_case_survey"`
	Active             bool         `db:"active" json:"active"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time    `db:"updated_at" json:"updated_at"`
}

// PatientFilter narrows patient listings.
type PatientFilter struct {
	Active   *bool
	Search   string
	Page     int
	PageSize int
}
