package schedule

import (
	"time"

	"github.com/noah-isme/rtms-schedule-api/internal/models"
)

// PatientSchedule is the patient state the task calculator reads. Optional values are
// resolved once by the caller; nil means the value is not recorded yet.
type PatientSchedule struct {
	Day1            *time.Time
	CreatedAt       *time.Time
	IsAllCaseSurvey bool
	// AssessmentDates holds the earliest performed date per timing.
	AssessmentDates map[models.AssessmentTiming]time.Time
	// MappingDates lists the dates of recorded mapping sessions.
	MappingDates []time.Time
}

func (p PatientSchedule) assessmentPerformed(timing models.AssessmentTiming) *time.Time {
	d, ok := p.AssessmentDates[timing]
	if !ok {
		return nil
	}
	return &d
}

func (p PatientSchedule) mappingPerformed(on time.Time) *time.Time {
	for _, d := range p.MappingDates {
		if d.Equal(on) {
			performed := d
			return &performed
		}
	}
	return nil
}

// ComputeTaskDefinitions returns the clinical tasks for a patient in display order.
// Tasks anchored on day1 are omitted while the first treatment date is unknown.
func ComputeTaskDefinitions(p PatientSchedule, today time.Time, cal *Calendar, extra HolidaySet) []models.Task {
	tasks := make([]models.Task, 0, 5)
	var day1 time.Time
	if p.Day1 != nil {
		day1 = Date(p.Day1.Year(), p.Day1.Month(), p.Day1.Day())
		mapping := cal.WeeklyMappingDates(day1, DefaultMappingWeeks, extra)
		if len(mapping) > 1 {
			planned := mapping[1].Actual
			tasks = append(tasks, singleDayTask(models.TaskMapping, planned, p.mappingPerformed(planned)))
		}
	}

	baseline := Date(today.Year(), today.Month(), today.Day())
	if p.CreatedAt != nil {
		baseline = Date(p.CreatedAt.Year(), p.CreatedAt.Month(), p.CreatedAt.Day())
	}
	tasks = append(tasks, singleDayTask(models.TaskAssessmentBaseline, baseline, p.assessmentPerformed(models.TimingBaseline)))

	if p.Day1 == nil {
		return tasks
	}

	tasks = append(tasks, forwardWindowTask(cal, extra, models.TaskAssessmentWeek3, day1, 14, 20, p.assessmentPerformed(models.TimingWeek3)))

	if p.IsAllCaseSurvey {
		planned := cal.PreviousBusinessDayWithin(AddDays(day1, 27), day1, extra)
		end := cal.PreviousBusinessDayWithin(AddDays(planned, 7), planned, extra)
		tasks = append(tasks, models.Task{
			Key:           models.TaskAssessmentWeek4,
			Label:         models.TaskAssessmentWeek4.Label(),
			PlannedDate:   planned,
			WindowStart:   planned,
			WindowEnd:     end,
			PerformedDate: p.assessmentPerformed(models.TimingWeek4),
		})
	}

	tasks = append(tasks, forwardWindowTask(cal, extra, models.TaskAssessmentWeek6, day1, 35, 41, p.assessmentPerformed(models.TimingWeek6)))
	return tasks
}

// ComputeDashboardTasks returns the tasks that are due by today and not yet performed.
func ComputeDashboardTasks(p PatientSchedule, today time.Time, cal *Calendar, extra HolidaySet) []models.Task {
	day := Date(today.Year(), today.Month(), today.Day())
	todo := make([]models.Task, 0)
	for _, task := range ComputeTaskDefinitions(p, day, cal, extra) {
		if task.PerformedDate == nil && !task.PlannedDate.After(day) {
			todo = append(todo, task)
		}
	}
	return todo
}

func singleDayTask(key models.TaskKey, planned time.Time, performed *time.Time) models.Task {
	return models.Task{
		Key:           key,
		Label:         key.Label(),
		PlannedDate:   planned,
		WindowStart:   planned,
		WindowEnd:     planned,
		PerformedDate: performed,
	}
}

// forwardWindowTask plans on day1+startOffset rolled forward; the window closes on the
// last business day not after day1+endOffset, never earlier than day1+startOffset.
func forwardWindowTask(cal *Calendar, extra HolidaySet, key models.TaskKey, day1 time.Time, startOffset, endOffset int, performed *time.Time) models.Task {
	nominalStart := AddDays(day1, startOffset)
	planned := cal.RollForward(nominalStart, extra)
	end := cal.PreviousBusinessDayWithin(AddDays(day1, endOffset), nominalStart, extra)
	return models.Task{
		Key:           key,
		Label:         key.Label(),
		PlannedDate:   planned,
		WindowStart:   planned,
		WindowEnd:     end,
		PerformedDate: performed,
	}
}
