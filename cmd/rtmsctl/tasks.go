package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/rtms-schedule-api/internal/models"
	"github.com/noah-isme/rtms-schedule-api/internal/schedule"
	"github.com/noah-isme/rtms-schedule-api/pkg/config"
)

func newTasksCmd() *cobra.Command {
	var (
		day1      string
		date      string
		survey    bool
		dashboard bool
		calFlags  calendarFlags
	)
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Preview assessment and mapping windows of a course",
		Example: `  rtmsctl tasks --day1 2025-01-06
  rtmsctl tasks --day1 2025-01-06 --date 2025-01-27 --dashboard`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			first, err := schedule.ParseDate(day1)
			if err != nil {
				return fmt.Errorf("invalid --day1: %w", err)
			}
			var today time.Time
			if date == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				today = schedule.DateOf(time.Now(), cfg.Clinic.Location())
			} else if today, err = schedule.ParseDate(date); err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
			cal, extra, err := calFlags.calendar(cmd)
			if err != nil {
				return err
			}

			patient := schedule.PatientSchedule{Day1: &first, IsAllCaseSurvey: survey}
			var tasks []models.Task
			if dashboard {
				tasks = schedule.ComputeDashboardTasks(patient, today, cal, extra)
			} else {
				tasks = schedule.ComputeTaskDefinitions(patient, today, cal, extra)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TASK\tPLANNED\tWINDOW")
			for _, t := range tasks {
				fmt.Fprintf(w, "%s\t%s\t%s..%s\n", t.Label, t.PlannedDate.Format(schedule.DateLayout),
					t.WindowStart.Format(schedule.DateLayout), t.WindowEnd.Format(schedule.DateLayout))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&day1, "day1", "", "first treatment date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&date, "date", "", "evaluation date, defaults to today")
	cmd.Flags().BoolVar(&survey, "all-case-survey", false, "include the all-case survey tasks")
	cmd.Flags().BoolVar(&dashboard, "dashboard", false, "only tasks actionable on --date")
	_ = cmd.MarkFlagRequired("day1")
	calFlags.register(cmd)
	return cmd
}
