package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rtms-schedule-api/internal/models"
	"github.com/noah-isme/rtms-schedule-api/internal/schedule"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPlanCommandSkipsHolidays(t *testing.T) {
	out, err := run(t, "plan", "--start", "2025-01-06", "--sessions", "5", "--holiday", "2025-01-08")

	require.NoError(t, err)
	assert.Contains(t, out, "2025-01-09")
	assert.Contains(t, out, "2025-01-13")
	assert.NotContains(t, out, "2025-01-08")
	assert.Equal(t, 6, strings.Count(strings.TrimSpace(out), "\n")+1)
}

func TestPlanCommandYearEndClosure(t *testing.T) {
	out, err := run(t, "plan", "--start", "2025-12-29", "--sessions", "1")

	require.NoError(t, err)
	assert.Contains(t, out, "2026-01-05")

	out, err = run(t, "plan", "--start", "2025-12-29", "--sessions", "1", "--year-end-closure=false")
	require.NoError(t, err)
	assert.Contains(t, out, "2025-12-29")
}

func TestPlanCommandRequiresStart(t *testing.T) {
	_, err := run(t, "plan")

	assert.Error(t, err)
}

func TestTasksCommand(t *testing.T) {
	out, err := run(t, "tasks", "--day1", "2025-01-06", "--date", "2025-01-06")

	require.NoError(t, err)
	assert.Contains(t, out, "TASK")
	assert.Contains(t, out, "2025-01-06")
}

func TestReadHolidays(t *testing.T) {
	input := "date,name,kind\n2025-01-01,New Year\n2025-08-13, Summer closure ,closure\n"

	holidays, err := readHolidays(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, holidays, 2)
	assert.True(t, holidays[0].Date.Equal(schedule.Date(2025, 1, 1)))
	assert.Equal(t, models.HolidayKindPublic, holidays[0].Kind)
	assert.Equal(t, models.HolidayKindClosure, holidays[1].Kind)
}

func TestReadHolidaysRejectsUnknownKind(t *testing.T) {
	_, err := readHolidays(strings.NewReader("2025-01-01,New Year,festival\n"))

	assert.Error(t, err)
}
