package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// SessionStatus is the lifecycle state of a treatment session.
type SessionStatus string

const (
	SessionStatusPlanned SessionStatus = "planned"
	SessionStatusDone    SessionStatus = "done"
	SessionStatusSkipped SessionStatus = "skipped"
)

// TreatmentSession is one rTMS treatment day. (patient_id, course_number, session_date, slot)
// is unique.
type TreatmentSession struct {
	ID                string         `db:"id" json:"id"`
	PatientID         string         `db:"patient_id" json:"patient_id"`
	CourseNumber      int            `db:"course_number" json:"course_number"`
	SessionDate       time.Time      `db:"session_date" json:"session_date"`
	PerformedAt       time.Time      `db:"performed_at" json:"performed_at"`
	Status            SessionStatus  `db:"status" json:"status"`
	Slot              string         `db:"slot" json:"slot"`
	MTPercent         *int           `db:"mt_percent" json:"mt_percent,omitempty"`
	IntensityPercent  *int           `db:"intensity_percent" json:"intensity_percent,omitempty"`
	FrequencyHz       *float64       `db:"frequency_hz" json:"frequency_hz,omitempty"`
	TrainSeconds      *float64       `db:"train_seconds" json:"train_seconds,omitempty"`
	IntertrainSeconds *float64       `db:"intertrain_seconds" json:"intertrain_seconds,omitempty"`
	TrainCount        *int           `db:"train_count" json:"train_count,omitempty"`
	TotalPulses       *int           `db:"total_pulses" json:"total_pulses,omitempty"`
	SideEffects       types.JSONText `db:"side_effects" json:"side_effects,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// Stimulation is what a clinician records when completing a session. Nil fields keep
// the stored value.
type Stimulation struct {
	MTPercent         *int
	IntensityPercent  *int
	FrequencyHz       *float64
	TrainSeconds      *float64
	IntertrainSeconds *float64
	TrainCount        *int
	TotalPulses       *int
	SideEffects       types.JSONText
}

// Apply copies the recorded values onto the session.
func (st Stimulation) Apply(s *TreatmentSession) {
	if st.MTPercent != nil {
		s.MTPercent = st.MTPercent
	}
	if st.IntensityPercent != nil {
		s.IntensityPercent = st.IntensityPercent
	}
	if st.FrequencyHz != nil {
		s.FrequencyHz = st.FrequencyHz
	}
	if st.TrainSeconds != nil {
		s.TrainSeconds = st.TrainSeconds
	}
	if st.IntertrainSeconds != nil {
		s.IntertrainSeconds = st.IntertrainSeconds
	}
	if st.TrainCount != nil {
		s.TrainCount = st.TrainCount
	}
	if st.TotalPulses != nil {
		s.TotalPulses = st.TotalPulses
	}
	if len(st.SideEffects) > 0 {
		s.SideEffects = st.SideEffects
	}
}
