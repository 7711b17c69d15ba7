package models

import "time"

// TaskKey identifies a clinical task on the patient timeline.
type TaskKey string

const (
	TaskMapping            TaskKey = "mapping"
	TaskAssessmentBaseline TaskKey = "assessment_baseline"
	TaskAssessmentWeek3    TaskKey = "assessment_week3"
	TaskAssessmentWeek4    TaskKey = "assessment_week4"
	TaskAssessmentWeek6    TaskKey = "assessment_week6"
)

var taskLabels = map[TaskKey]string{
	TaskMapping:            "Positional mapping",
	TaskAssessmentBaseline: "Baseline assessment",
	TaskAssessmentWeek3:    "Week 3 assessment",
	TaskAssessmentWeek4:    "Week 4 assessment",
	TaskAssessmentWeek6:    "Week 6 assessment",
}

// Label returns the human readable task name.
func (k TaskKey) Label() string {
	if label, ok := taskLabels[k]; ok {
		return label
	}
	return string(k)
}

// Task is computed on every read and never stored.
type Task struct {
	Key           TaskKey    `json:"key"`
	Label         string     `json:"label"`
	PlannedDate   time.Time  `json:"planned_date"`
	WindowStart   time.Time  `json:"window_start"`
	WindowEnd     time.Time  `json:"window_end"`
	PerformedDate *time.Time `json:"performed_date,omitempty"`
}
