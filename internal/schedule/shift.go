package schedule

import (
	"fmt"
	"sort"
	"time"
)

// ShiftCandidate is a planned session eligible for rescheduling.
type ShiftCandidate struct {
	ID          string
	SessionDate time.Time
	Slot        string
}

// SessionMove records one session's old and new nominal date.
type SessionMove struct {
	SessionID string    `json:"session_id"`
	OldDate   time.Time `json:"old_date"`
	NewDate   time.Time `json:"new_date"`
}

// Days returns the signed shift in calendar days.
func (m SessionMove) Days() int {
	return DaysBetween(m.OldDate, m.NewDate)
}

// ShiftPlan is the outcome of PlanShift. Moves are in chronological order.
type ShiftPlan struct {
	FromDate time.Time
	Moves    []SessionMove
}

// Empty reports whether no session is rescheduled.
func (p ShiftPlan) Empty() bool {
	return len(p.Moves) == 0
}

// OriginalLast is the pre-shift date of the chronologically last session.
func (p ShiftPlan) OriginalLast() (time.Time, bool) {
	if p.Empty() {
		return time.Time{}, false
	}
	return p.Moves[len(p.Moves)-1].OldDate, true
}

// Delta is the number of days the last session moved.
func (p ShiftPlan) Delta() int {
	if p.Empty() {
		return 0
	}
	return p.Moves[len(p.Moves)-1].Days()
}

// WriteOrder returns the moves last session first, so that a per-statement unique
// constraint on the session date is never hit by a later session still holding the slot.
func (p ShiftPlan) WriteOrder() []SessionMove {
	out := make([]SessionMove, len(p.Moves))
	for i, m := range p.Moves {
		out[len(p.Moves)-1-i] = m
	}
	return out
}

// SortCandidates orders sessions by date, then slot label, then identifier.
func SortCandidates(sessions []ShiftCandidate) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if !a.SessionDate.Equal(b.SessionDate) {
			return a.SessionDate.Before(b.SessionDate)
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.ID < b.ID
	})
}

// PlanShift assigns each session after fromDate to the business day following the
// previous session's new date, starting from fromDate. Sessions on or before fromDate
// are ignored. The result stays strictly increasing.
func (c *Calendar) PlanShift(sessions []ShiftCandidate, fromDate time.Time, extra HolidaySet) (ShiftPlan, error) {
	from := Date(fromDate.Year(), fromDate.Month(), fromDate.Day())
	plan := ShiftPlan{FromDate: from}

	candidates := make([]ShiftCandidate, 0, len(sessions))
	for _, s := range sessions {
		if s.SessionDate.After(from) {
			candidates = append(candidates, s)
		}
	}
	SortCandidates(candidates)

	anchor := from
	for _, s := range candidates {
		target, err := c.NextBusinessDay(AddDays(anchor, 1), extra)
		if err != nil {
			return ShiftPlan{}, fmt.Errorf("reschedule session %s from %s: %w", s.ID, s.SessionDate.Format(DateLayout), err)
		}
		plan.Moves = append(plan.Moves, SessionMove{SessionID: s.ID, OldDate: s.SessionDate, NewDate: target})
		anchor = target
	}
	return plan, nil
}

// ShiftDischarge moves the discharge date by the plan's delta when it is on or after
// the plan's from date and at least one session moved. A nil discharge stays nil.
func ShiftDischarge(discharge *time.Time, plan ShiftPlan) *time.Time {
	if discharge == nil || plan.Empty() {
		return discharge
	}
	if discharge.Before(plan.FromDate) {
		return discharge
	}
	shifted := AddDays(*discharge, plan.Delta())
	return &shifted
}
