package schedule

import (
	"fmt"
	"time"
)

const (
	// DefaultTotalSessions is the standard course length.
	DefaultTotalSessions = 30
	// DefaultPerWeek is the number of sessions per treatment week.
	DefaultPerWeek = 5
	// DefaultMappingWeeks is the length of the weekly mapping series.
	DefaultMappingWeeks = 8
)

// GeneratePlannedDates walks forward from start and collects business days until total
// dates are gathered. The scan stops after total*7+365 days; callers must compare the
// length of the result with total.
func (c *Calendar) GeneratePlannedDates(start time.Time, total int, extra HolidaySet) []time.Time {
	if total <= 0 {
		return nil
	}
	dates := make([]time.Time, 0, total)
	maxDays := total*7 + 365
	cur := Date(start.Year(), start.Month(), start.Day())
	for tried := 0; len(dates) < total && tried < maxDays; tried++ {
		if c.IsBusinessDay(cur, extra) {
			dates = append(dates, cur)
		}
		cur = AddDays(cur, 1)
	}
	return dates
}

// MappingDatesFromPlanned returns the first planned date of every perWeek block.
func MappingDatesFromPlanned(planned []time.Time, perWeek int) []time.Time {
	if perWeek <= 0 {
		perWeek = DefaultPerWeek
	}
	out := make([]time.Time, 0, (len(planned)+perWeek-1)/perWeek)
	for i := 0; i < len(planned); i += perWeek {
		out = append(out, planned[i])
	}
	return out
}

// MappingDate is one entry of the weekly mapping series.
type MappingDate struct {
	Nominal time.Time `json:"nominal"`
	Actual  time.Time `json:"actual"`
	WeekNo  int       `json:"week_no"`
}

// WeeklyMappingDates anchors each week on day1+7k and rolls closed days forward,
// so one holiday never drifts the rest of the series.
func (c *Calendar) WeeklyMappingDates(day1 time.Time, weeks int, extra HolidaySet) []MappingDate {
	out := make([]MappingDate, 0, weeks)
	for k := 0; k < weeks; k++ {
		nominal := AddDays(Date(day1.Year(), day1.Month(), day1.Day()), 7*k)
		out = append(out, MappingDate{
			Nominal: nominal,
			Actual:  c.RollForward(nominal, extra),
			WeekNo:  k + 1,
		})
	}
	return out
}

// SessionInfo locates a date inside a planned sequence.
type SessionInfo struct {
	SessionNo int `json:"session_no"`
	WeekNo    int `json:"week_no"`
}

// SessionInfoForDate returns the 1-based session and week numbers of target.
// ok is false when target is not part of the plan.
func SessionInfoForDate(planned []time.Time, target time.Time, perWeek int) (SessionInfo, bool) {
	if perWeek <= 0 {
		perWeek = DefaultPerWeek
	}
	day := Date(target.Year(), target.Month(), target.Day())
	for idx, d := range planned {
		if d.Equal(day) {
			return SessionInfo{SessionNo: idx + 1, WeekNo: idx/perWeek + 1}, true
		}
	}
	return SessionInfo{}, false
}

// FormatSessionLabel renders the label shown next to a treatment day.
func FormatSessionLabel(info SessionInfo) string {
	return fmt.Sprintf("rTMS session %d (week %d)", info.SessionNo, info.WeekNo)
}
