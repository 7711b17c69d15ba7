// Package schedule holds the clinic calendar, planned-date generation, task windows
// and the reschedule planner. Everything here is a pure function of its inputs;
// persistence lives in the service layer.
package schedule

import (
	"errors"
	"sort"
	"time"
)

// MaxBusinessDayScan bounds NextBusinessDay so corrupt holiday data cannot hang a request.
const MaxBusinessDayScan = 400

// DateLayout is the wire format for civil dates.
const DateLayout = "2006-01-02"

// ErrNoBusinessDay is returned when no business day exists within MaxBusinessDayScan days.
var ErrNoBusinessDay = errors.New("no business day found within scan limit")

// Date builds a civil date at midnight UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf truncates t to its civil date as observed in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	return Date(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string into a civil date.
func ParseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, raw, time.UTC)
}

// AddDays shifts a civil date by n calendar days.
func AddDays(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

// DaysBetween returns the whole-day difference b - a.
func DaysBetween(a, b time.Time) int {
	return int(Date(b.Year(), b.Month(), b.Day()).Sub(Date(a.Year(), a.Month(), a.Day())).Hours() / 24)
}

// HolidaySet is a set of civil dates on which the clinic is closed.
type HolidaySet map[time.Time]struct{}

// NewHolidaySet builds a set from the given dates.
func NewHolidaySet(dates ...time.Time) HolidaySet {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		set[Date(d.Year(), d.Month(), d.Day())] = struct{}{}
	}
	return set
}

// Contains reports whether d is in the set. A nil set contains nothing.
func (s HolidaySet) Contains(d time.Time) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[Date(d.Year(), d.Month(), d.Day())]
	return ok
}

// Union returns a new set holding the dates of both sets.
func (s HolidaySet) Union(other HolidaySet) HolidaySet {
	out := make(HolidaySet, len(s)+len(other))
	for d := range s {
		out[d] = struct{}{}
	}
	for d := range other {
		out[d] = struct{}{}
	}
	return out
}

// Sorted returns the dates in ascending order.
func (s HolidaySet) Sorted() []time.Time {
	out := make([]time.Time, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Option customises a Calendar.
type Option func(*Calendar)

// WithYearEndClosure closes the clinic from December 29 through January 3.
func WithYearEndClosure() Option {
	return func(c *Calendar) { c.yearEndClosure = true }
}

// Calendar answers business-day questions for the clinic.
// A nil *Calendar is usable and only knows about weekends and the per-call overrides.
type Calendar struct {
	holidays       HolidaySet
	yearEndClosure bool
}

// NewCalendar builds a calendar from the public holiday set.
func NewCalendar(holidays HolidaySet, opts ...Option) *Calendar {
	c := &Calendar{holidays: holidays}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsYearEndClosed reports whether d falls in the Dec 29 - Jan 3 closure.
func IsYearEndClosed(d time.Time) bool {
	return (d.Month() == time.December && d.Day() >= 29) || (d.Month() == time.January && d.Day() <= 3)
}

// IsBusinessDay reports whether the clinic treats patients on d.
func (c *Calendar) IsBusinessDay(d time.Time, extra HolidaySet) bool {
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	if extra.Contains(d) {
		return false
	}
	if c == nil {
		return true
	}
	if c.yearEndClosure && IsYearEndClosed(d) {
		return false
	}
	return !c.holidays.Contains(d)
}

// NextBusinessDay returns the first business day on or after d.
func (c *Calendar) NextBusinessDay(d time.Time, extra HolidaySet) (time.Time, error) {
	cur := Date(d.Year(), d.Month(), d.Day())
	for i := 0; i < MaxBusinessDayScan; i++ {
		if c.IsBusinessDay(cur, extra) {
			return cur, nil
		}
		cur = AddDays(cur, 1)
	}
	return time.Time{}, ErrNoBusinessDay
}

// RollForward returns d when it is a business day, otherwise the next one.
// When the scan limit is exhausted d is returned unchanged.
func (c *Calendar) RollForward(d time.Time, extra HolidaySet) time.Time {
	next, err := c.NextBusinessDay(d, extra)
	if err != nil {
		return d
	}
	return next
}

// PreviousBusinessDayWithin walks backward from d while the day is closed and still
// strictly after floor. The result may be a closed day equal to floor.
func (c *Calendar) PreviousBusinessDayWithin(d, floor time.Time, extra HolidaySet) time.Time {
	cur := Date(d.Year(), d.Month(), d.Day())
	for !c.IsBusinessDay(cur, extra) && cur.After(floor) {
		cur = AddDays(cur, -1)
	}
	return cur
}
