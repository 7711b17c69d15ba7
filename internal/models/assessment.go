package models

import "time"

// AssessmentTiming tags an assessment with its protocol time point.
type AssessmentTiming string

const (
	TimingBaseline AssessmentTiming = "baseline"
	TimingWeek3    AssessmentTiming = "week3"
	TimingWeek4    AssessmentTiming = "week4"
	TimingWeek6    AssessmentTiming = "week6"
	TimingOther    AssessmentTiming = "other"
)

// AssessmentTimings lists the protocol time points in display order.
var AssessmentTimings = []AssessmentTiming{TimingBaseline, TimingWeek3, TimingWeek4, TimingWeek6}

// Assessment is a HAM-D rating.
type Assessment struct {
	ID            string           `db:"id" json:"id"`
	PatientID     string           `db:"patient_id" json:"patient_id"`
	CourseNumber  int              `db:"course_number" json:"course_number"`
	Timing        AssessmentTiming `db:"timing" json:"timing"`
	Date          time.Time        `db:"date" json:"date"`
	PerformedDate *time.Time       `db:"performed_date" json:"performed_date,omitempty"`
	TotalScore17  *int             `db:"total_score_17" json:"total_score_17,omitempty"`
	TotalScore21  *int             `db:"total_score_21" json:"total_score_21,omitempty"`
	Note          string           `db:"note" json:"note"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// EffectiveDate returns the performed date when recorded, otherwise the record date.
func (a Assessment) EffectiveDate() time.Time {
	if a.PerformedDate != nil {
		return *a.PerformedDate
	}
	return a.Date
}

// MappingSession records a positional mapping / motor threshold measurement.
type MappingSession struct {
	ID           string    `db:"id" json:"id"`
	PatientID    string    `db:"patient_id" json:"patient_id"`
	CourseNumber int       `db:"course_number" json:"course_number"`
	Date         time.Time `db:"date" json:"date"`
	RestingMT    *int      `db:"resting_mt" json:"resting_mt,omitempty"`
	Note         string    `db:"note" json:"note"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
