package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rtms-schedule-api/internal/models"
)

func taskByKey(tasks []models.Task, key models.TaskKey) (models.Task, bool) {
	for _, task := range tasks {
		if task.Key == key {
			return task, true
		}
	}
	return models.Task{}, false
}

func TestComputeTaskDefinitionsWindows(t *testing.T) {
	day1 := Date(2026, time.January, 5)
	created := time.Date(2026, time.January, 2, 10, 0, 0, 0, time.UTC)
	p := PatientSchedule{Day1: &day1, CreatedAt: &created, IsAllCaseSurvey: true}

	tasks := ComputeTaskDefinitions(p, Date(2026, time.January, 20), NewCalendar(nil), nil)

	keys := make([]models.TaskKey, 0, len(tasks))
	for _, task := range tasks {
		keys = append(keys, task.Key)
	}
	assert.Equal(t, []models.TaskKey{
		models.TaskMapping,
		models.TaskAssessmentBaseline,
		models.TaskAssessmentWeek3,
		models.TaskAssessmentWeek4,
		models.TaskAssessmentWeek6,
	}, keys)

	mapping, _ := taskByKey(tasks, models.TaskMapping)
	assert.Equal(t, Date(2026, time.January, 12), mapping.PlannedDate)
	assert.Equal(t, mapping.PlannedDate, mapping.WindowEnd)

	baseline, _ := taskByKey(tasks, models.TaskAssessmentBaseline)
	assert.Equal(t, Date(2026, time.January, 2), baseline.PlannedDate)

	week3, _ := taskByKey(tasks, models.TaskAssessmentWeek3)
	assert.Equal(t, Date(2026, time.January, 19), week3.PlannedDate)
	assert.Equal(t, Date(2026, time.January, 23), week3.WindowEnd)

	week4, _ := taskByKey(tasks, models.TaskAssessmentWeek4)
	assert.Equal(t, Date(2026, time.January, 30), week4.PlannedDate)
	assert.Equal(t, Date(2026, time.February, 6), week4.WindowEnd)

	week6, _ := taskByKey(tasks, models.TaskAssessmentWeek6)
	assert.Equal(t, Date(2026, time.February, 9), week6.PlannedDate)
	assert.Equal(t, Date(2026, time.February, 13), week6.WindowEnd)
}

func TestComputeTaskDefinitionsWithoutDay1(t *testing.T) {
	today := Date(2026, time.March, 2)

	tasks := ComputeTaskDefinitions(PatientSchedule{IsAllCaseSurvey: true}, today, NewCalendar(nil), nil)

	require.Len(t, tasks, 1)
	assert.Equal(t, models.TaskAssessmentBaseline, tasks[0].Key)
	assert.Equal(t, today, tasks[0].PlannedDate)
}

func TestComputeTaskDefinitionsSkipsWeek4OutsideSurvey(t *testing.T) {
	day1 := Date(2026, time.January, 5)

	tasks := ComputeTaskDefinitions(PatientSchedule{Day1: &day1}, day1, NewCalendar(nil), nil)

	_, ok := taskByKey(tasks, models.TaskAssessmentWeek4)
	assert.False(t, ok)
}

func TestComputeTaskDefinitionsPerformedDates(t *testing.T) {
	day1 := Date(2026, time.January, 5)
	p := PatientSchedule{
		Day1:            &day1,
		AssessmentDates: map[models.AssessmentTiming]time.Time{models.TimingWeek3: Date(2026, time.January, 21)},
		MappingDates:    []time.Time{Date(2026, time.January, 5), Date(2026, time.January, 12)},
	}

	tasks := ComputeTaskDefinitions(p, day1, NewCalendar(nil), nil)

	mapping, _ := taskByKey(tasks, models.TaskMapping)
	require.NotNil(t, mapping.PerformedDate)
	assert.Equal(t, Date(2026, time.January, 12), *mapping.PerformedDate)

	week3, _ := taskByKey(tasks, models.TaskAssessmentWeek3)
	require.NotNil(t, week3.PerformedDate)

	week6, _ := taskByKey(tasks, models.TaskAssessmentWeek6)
	assert.Nil(t, week6.PerformedDate)
}

func TestComputeTaskDefinitionsHolidayWindows(t *testing.T) {
	day1 := Date(2026, time.January, 5)
	cal := NewCalendar(NewHolidaySet(Date(2026, time.January, 12), Date(2026, time.January, 19)))

	tasks := ComputeTaskDefinitions(PatientSchedule{Day1: &day1}, day1, cal, nil)

	mapping, _ := taskByKey(tasks, models.TaskMapping)
	assert.Equal(t, Date(2026, time.January, 13), mapping.PlannedDate)
	week3, _ := taskByKey(tasks, models.TaskAssessmentWeek3)
	assert.Equal(t, Date(2026, time.January, 20), week3.PlannedDate)
}

func TestDashboardIncludesMappingOnPlannedDate(t *testing.T) {
	day1 := Date(2026, time.January, 5)
	created := day1
	p := PatientSchedule{Day1: &day1, CreatedAt: &created}
	cal := NewCalendar(nil)

	todo := ComputeDashboardTasks(p, Date(2026, time.January, 12), cal, nil)

	_, ok := taskByKey(todo, models.TaskMapping)
	assert.True(t, ok)
	_, ok = taskByKey(todo, models.TaskAssessmentWeek3)
	assert.False(t, ok)

	p.MappingDates = []time.Time{Date(2026, time.January, 12)}
	todo = ComputeDashboardTasks(p, Date(2026, time.January, 12), cal, nil)
	_, ok = taskByKey(todo, models.TaskMapping)
	assert.False(t, ok)
}
