package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// AdverseEventType classifies a serious adverse event.
type AdverseEventType string

const (
	AdverseEventSeizure        AdverseEventType = "seizure"
	AdverseEventFingerMuscle   AdverseEventType = "finger_muscle"
	AdverseEventSyncope        AdverseEventType = "syncope"
	AdverseEventMania          AdverseEventType = "mania"
	AdverseEventSuicideAttempt AdverseEventType = "suicide_attempt"
	AdverseEventOther          AdverseEventType = "other"
)

// SeriousAdverseEvent is a serious adverse event reported against a treatment session.
// At most one report exists per (patient, course, session).
type SeriousAdverseEvent struct {
	ID           string         `db:"id" json:"id"`
	PatientID    string         `db:"patient_id" json:"patient_id"`
	CourseNumber int            `db:"course_number" json:"course_number"`
	SessionID    string         `db:"session_id" json:"session_id"`
	EventDate    time.Time      `db:"event_date" json:"event_date"`
	EventTypes   pq.StringArray `db:"event_types" json:"event_types"`
	OtherText    string         `db:"other_text" json:"other_text,omitempty"`
	Snapshot     types.JSONText `db:"snapshot" json:"snapshot"`
	ReportedBy   *string        `db:"reported_by" json:"reported_by,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// AdverseEventSnapshot freezes the session parameters at the time of the report.
type AdverseEventSnapshot struct {
	SessionDate       string         `json:"date"`
	SessionStatus     SessionStatus  `json:"session_status"`
	ProtocolType      ProtocolType   `json:"protocol_type"`
	MTPercent         *int           `json:"mt_percent,omitempty"`
	IntensityPercent  *int           `json:"intensity_percent,omitempty"`
	FrequencyHz       *float64       `json:"frequency_hz,omitempty"`
	TrainSeconds      *float64       `json:"train_seconds,omitempty"`
	IntertrainSeconds *float64       `json:"intertrain_seconds,omitempty"`
	TrainCount        *int           `json:"train_count,omitempty"`
	TotalPulses       *int           `json:"total_pulses,omitempty"`
	SideEffects       types.JSONText `json:"side_effects,omitempty"`
}
