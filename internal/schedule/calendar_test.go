package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBusinessDayNeverOnWeekend(t *testing.T) {
	cal := NewCalendar(nil, WithYearEndClosure())
	start := Date(2026, time.January, 1)
	for i := 0; i < 730; i++ {
		d := AddDays(start, i)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			assert.False(t, cal.IsBusinessDay(d, nil), d.Format(DateLayout))
		}
	}
}

func TestIsBusinessDaySources(t *testing.T) {
	holiday := Date(2026, time.January, 12)
	cal := NewCalendar(NewHolidaySet(holiday), WithYearEndClosure())

	assert.False(t, cal.IsBusinessDay(holiday, nil))
	assert.True(t, cal.IsBusinessDay(Date(2026, time.January, 13), nil))
	assert.False(t, cal.IsBusinessDay(Date(2026, time.January, 13), NewHolidaySet(Date(2026, time.January, 13))))
	assert.False(t, cal.IsBusinessDay(Date(2025, time.December, 30), nil))
	assert.False(t, cal.IsBusinessDay(Date(2026, time.January, 2), nil))

	open := NewCalendar(nil)
	assert.True(t, open.IsBusinessDay(Date(2025, time.December, 30), nil))
}

func TestNilCalendarDegradesToWeekdays(t *testing.T) {
	var cal *Calendar
	assert.True(t, cal.IsBusinessDay(Date(2026, time.January, 12), nil))
	assert.False(t, cal.IsBusinessDay(Date(2026, time.January, 10), nil))
	assert.False(t, cal.IsBusinessDay(Date(2026, time.January, 12), NewHolidaySet(Date(2026, time.January, 12))))
}

func TestNextBusinessDay(t *testing.T) {
	cal := NewCalendar(nil, WithYearEndClosure())

	got, err := cal.NextBusinessDay(Date(2026, time.January, 9), nil)
	require.NoError(t, err)
	assert.Equal(t, Date(2026, time.January, 9), got)

	got, err = cal.NextBusinessDay(Date(2026, time.January, 10), nil)
	require.NoError(t, err)
	assert.Equal(t, Date(2026, time.January, 12), got)

	got, err = cal.NextBusinessDay(Date(2025, time.December, 27), nil)
	require.NoError(t, err)
	assert.Equal(t, Date(2026, time.January, 5), got)
}

func TestNextBusinessDayScanLimit(t *testing.T) {
	start := Date(2026, time.January, 1)
	closed := make([]time.Time, 0, MaxBusinessDayScan)
	for i := 0; i < MaxBusinessDayScan; i++ {
		closed = append(closed, AddDays(start, i))
	}

	_, err := NewCalendar(nil).NextBusinessDay(start, NewHolidaySet(closed...))
	assert.ErrorIs(t, err, ErrNoBusinessDay)
}

func TestPreviousBusinessDayWithin(t *testing.T) {
	cal := NewCalendar(nil)
	sunday := Date(2026, time.January, 25)

	assert.Equal(t, Date(2026, time.January, 23), cal.PreviousBusinessDayWithin(sunday, Date(2026, time.January, 19), nil))
	assert.Equal(t, Date(2026, time.January, 24), cal.PreviousBusinessDayWithin(sunday, Date(2026, time.January, 24), nil))
}

func TestHolidaySetHelpers(t *testing.T) {
	a := NewHolidaySet(Date(2026, time.May, 5), time.Date(2026, time.May, 3, 15, 30, 0, 0, time.UTC))
	b := NewHolidaySet(Date(2026, time.May, 4))

	u := a.Union(b)
	assert.Equal(t, []time.Time{Date(2026, time.May, 3), Date(2026, time.May, 4), Date(2026, time.May, 5)}, u.Sorted())
	assert.False(t, HolidaySet(nil).Contains(Date(2026, time.May, 3)))
}

func TestDateHelpers(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	late := time.Date(2026, time.January, 5, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, Date(2026, time.January, 6), DateOf(late, tokyo))

	d, err := ParseDate("2026-01-31")
	require.NoError(t, err)
	assert.Equal(t, 3, DaysBetween(d, Date(2026, time.February, 3)))
	assert.Equal(t, -1, DaysBetween(d, Date(2026, time.January, 30)))
}
