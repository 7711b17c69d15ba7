package dto

import (
	"time"

	"github.com/noah-isme/rtms-schedule-api/internal/hamd"
	"github.com/noah-isme/rtms-schedule-api/internal/models"
)

// CreateAssessmentRequest records a HAM-D rating.
type CreateAssessmentRequest struct {
	Timing        models.AssessmentTiming `json:"timing" validate:"required,oneof=baseline week3 week4 week6 other"`
	Date          string                  `json:"date" validate:"required,datetime=2006-01-02"`
	PerformedDate *string                 `json:"performedDate" validate:"omitempty,datetime=2006-01-02"`
	TotalScore17  *int                    `json:"totalScore17" validate:"omitempty,min=0,max=52"`
	TotalScore21  *int                    `json:"totalScore21" validate:"omitempty,min=0,max=64"`
	Note          string                  `json:"note" validate:"max=2000"`
}

// CreateMappingRequest records a mapping session.
type CreateMappingRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	RestingMT *int   `json:"restingMt" validate:"omitempty,min=1,max=100"`
	Note      string `json:"note" validate:"max=2000"`
}

// AssessmentTrendEntry is one assessment evaluated against baseline.
type AssessmentTrendEntry struct {
	AssessmentID    string                  `json:"assessmentId"`
	Timing          models.AssessmentTiming `json:"timing"`
	Date            time.Time               `json:"date"`
	TotalScore17    *int                    `json:"totalScore17,omitempty"`
	TotalScore21    *int                    `json:"totalScore21,omitempty"`
	Severity        hamd.Severity           `json:"severity,omitempty"`
	ImprovementRate *float64                `json:"improvementRate,omitempty"`
	Status          hamd.ResponseStatus     `json:"status"`
}

// AssessmentSummary aggregates the HAM-D course of a patient.
type AssessmentSummary struct {
	PatientID       string                 `json:"patientId"`
	CourseNumber    int                    `json:"courseNumber"`
	Trend           []AssessmentTrendEntry `json:"trend"`
	Recommendation  hamd.Recommendation    `json:"recommendation"`
	LatestRestingMT *int                   `json:"latestRestingMt,omitempty"`
}
