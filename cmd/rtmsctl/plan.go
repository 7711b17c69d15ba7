package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noah-isme/rtms-schedule-api/internal/schedule"
)

func newPlanCmd() *cobra.Command {
	var (
		start    string
		total    int
		perWeek  int
		calFlags calendarFlags
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Preview the planned dates of a course",
		Example: `  rtmsctl plan --start 2025-01-06
  rtmsctl plan --start 2025-12-22 --sessions 30 --holiday 2026-01-12`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			startDate, err := schedule.ParseDate(start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			if total <= 0 {
				return errors.New("--sessions must be positive")
			}
			cal, extra, err := calFlags.calendar(cmd)
			if err != nil {
				return err
			}

			dates := cal.GeneratePlannedDates(startDate, total, extra)
			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SESSION\tDATE\tDAY\tWEEK\tMAPPING")
			mapping := schedule.NewHolidaySet(schedule.MappingDatesFromPlanned(dates, perWeek)...)
			for idx, d := range dates {
				info, _ := schedule.SessionInfoForDate(dates, d, perWeek)
				marker := ""
				if mapping.Contains(d) {
					marker = "*"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", idx+1, d.Format(schedule.DateLayout), d.Weekday().String()[:3], info.WeekNo, marker)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if len(dates) < total {
				return fmt.Errorf("only %d of %d sessions fit before the scheduling horizon", len(dates), total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first candidate date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&total, "sessions", schedule.DefaultTotalSessions, "number of sessions")
	cmd.Flags().IntVar(&perWeek, "per-week", schedule.DefaultPerWeek, "sessions per treatment week")
	_ = cmd.MarkFlagRequired("start")
	calFlags.register(cmd)
	return cmd
}
