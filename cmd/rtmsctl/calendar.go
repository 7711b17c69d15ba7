package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/rtms-schedule-api/internal/repository"
	"github.com/noah-isme/rtms-schedule-api/internal/schedule"
	"github.com/noah-isme/rtms-schedule-api/internal/service"
)

// calendarFlags selects where holidays come from for the offline previews.
type calendarFlags struct {
	holidays       []string
	yearEndClosure bool
	fromDB         bool
}

func (f *calendarFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.holidays, "holiday", nil, "extra closed date (YYYY-MM-DD), repeatable")
	cmd.Flags().BoolVar(&f.yearEndClosure, "year-end-closure", true, "close Dec 29 through Jan 3")
	cmd.Flags().BoolVar(&f.fromDB, "from-db", false, "load clinic holidays from the database")
}

// calendar builds the clinic calendar plus the per-call closed dates given on the command line.
func (f *calendarFlags) calendar(cmd *cobra.Command) (*schedule.Calendar, schedule.HolidaySet, error) {
	extra := make([]time.Time, 0, len(f.holidays))
	for _, raw := range f.holidays {
		d, err := schedule.ParseDate(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --holiday %q: %w", raw, err)
		}
		extra = append(extra, d)
	}
	extraSet := schedule.NewHolidaySet(extra...)

	if !f.fromDB {
		var opts []schedule.Option
		if f.yearEndClosure {
			opts = append(opts, schedule.WithYearEndClosure())
		}
		return schedule.NewCalendar(nil, opts...), extraSet, nil
	}

	_, db, err := openDB(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()
	holidays := service.NewHolidayService(repository.NewHolidayRepository(db), nil, nil, service.HolidayServiceConfig{
		YearEndClosure: f.yearEndClosure,
	}, nil, nil)
	return holidays.Calendar(cmd.Context()), extraSet, nil
}
