package dto

import (
	"time"

	"github.com/noah-isme/rtms-schedule-api/internal/models"
)

// PlanRequest asks for a course of planned sessions.
type PlanRequest struct {
	StartDate       string `json:"startDate" form:"startDate" validate:"required,datetime=2006-01-02"`
	TotalSessions   int    `json:"totalSessions" form:"totalSessions" validate:"omitempty,min=1,max=60"`
	SessionsPerWeek int    `json:"sessionsPerWeek" form:"sessionsPerWeek" validate:"omitempty,min=1,max=7"`
	Slot            string `json:"slot" form:"slot" validate:"omitempty,max=16"`
}

// PlannedDate is one generated date with its position in the course.
type PlannedDate struct {
	Date      time.Time `json:"date"`
	SessionNo int       `json:"sessionNo"`
	WeekNo    int       `json:"weekNo"`
	Label     string    `json:"label"`
}

// MappingDate is one week of the mapping series.
type MappingDate struct {
	WeekNo  int       `json:"weekNo"`
	Nominal time.Time `json:"nominal"`
	Actual  time.Time `json:"actual"`
}

// PlanPreview is the computed plan of a course.
type PlanPreview struct {
	PatientID     string        `json:"patientId"`
	Protocol      string        `json:"protocol"`
	Requested     int           `json:"requested"`
	Dates         []PlannedDate `json:"dates"`
	MappingDates  []time.Time   `json:"mappingDates"`
	WeeklyMapping []MappingDate `json:"weeklyMapping"`
	Shortfall     bool          `json:"shortfall"`
}

// SessionLookup locates a date inside a patient's course.
type SessionLookup struct {
	Date      time.Time                `json:"date"`
	Found     bool                     `json:"found"`
	SessionNo int                      `json:"sessionNo,omitempty"`
	WeekNo    int                      `json:"weekNo,omitempty"`
	Label     string                   `json:"label,omitempty"`
	Session   *models.TreatmentSession `json:"session,omitempty"`
}

// SkipRequest is the HTTP body of a skip.
type SkipRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ShiftRequest asks to shift every planned session after FromDate.
type ShiftRequest struct {
	FromDate string `json:"fromDate" validate:"required,datetime=2006-01-02"`
}

// MarkDoneRequest records a completed session and the stimulation delivered. Side effects
// are scored 0 to 3 per symptom; zero scores are dropped.
type MarkDoneRequest struct {
	PerformedAt       *time.Time     `json:"performedAt"`
	MTPercent         *int           `json:"mtPercent" validate:"omitempty,min=1,max=200"`
	IntensityPercent  *int           `json:"intensityPercent" validate:"omitempty,min=1,max=200"`
	FrequencyHz       *float64       `json:"frequencyHz" validate:"omitempty,gt=0,lte=50"`
	TrainSeconds      *float64       `json:"trainSeconds" validate:"omitempty,gt=0,lte=10"`
	IntertrainSeconds *float64       `json:"intertrainSeconds" validate:"omitempty,gt=0,lte=120"`
	TrainCount        *int           `json:"trainCount" validate:"omitempty,min=1,max=200"`
	TotalPulses       *int           `json:"totalPulses" validate:"omitempty,min=1,max=20000"`
	SideEffects       map[string]int `json:"sideEffects" validate:"omitempty,dive,keys,oneof=headache scalp discomfort tooth twitch dizzy nausea tinnitus hearing anxiety other,endkeys,min=0,max=3"`
	SideEffectNote    string         `json:"sideEffectNote" validate:"max=500"`
}

// ShiftedSession reports one moved session.
type ShiftedSession struct {
	SessionID string    `json:"sessionId"`
	OldDate   time.Time `json:"oldDate"`
	NewDate   time.Time `json:"newDate"`
}

// ShiftResult is the outcome of a shift of future sessions.
type ShiftResult struct {
	PatientID          string           `json:"patientId"`
	FromDate           time.Time        `json:"fromDate"`
	Shifted            []ShiftedSession `json:"shifted"`
	DeltaDays          int              `json:"deltaDays"`
	OldDischargeDate   *time.Time       `json:"oldDischargeDate,omitempty"`
	DischargeDate      *time.Time       `json:"dischargeDate,omitempty"`
	DischargeDateMoved bool             `json:"dischargeDateMoved"`
}

// SkipResult is the outcome of a skip.
type SkipResult struct {
	Skip          models.TreatmentSkip `json:"skip"`
	Shifted       []ShiftedSession     `json:"shifted"`
	DischargeDate *time.Time           `json:"dischargeDate,omitempty"`
}

// UndoResult is the outcome of an undo.
type UndoResult struct {
	Skip          models.TreatmentSkip `json:"skip"`
	Restored      []ShiftedSession     `json:"restored"`
	DischargeDate *time.Time           `json:"dischargeDate,omitempty"`
}

// PatientTasks lists the clinical tasks of one patient.
type PatientTasks struct {
	PatientID string        `json:"patientId"`
	CardID    string        `json:"cardId"`
	Name      string        `json:"name"`
	Tasks     []models.Task `json:"tasks"`
}

// DashboardTasks is the clinic-wide list of actionable tasks for a day.
type DashboardTasks struct {
	Date     time.Time      `json:"date"`
	Patients []PatientTasks `json:"patients"`
	Total    int            `json:"total"`
}
