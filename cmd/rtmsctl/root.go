package main

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/noah-isme/rtms-schedule-api/pkg/config"
	"github.com/noah-isme/rtms-schedule-api/pkg/database"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rtmsctl",
		Short: "Operate the rTMS schedule engine",
		Long: `rtmsctl manages the schedule database and previews treatment plans
and task windows from the terminal.`,
		SilenceUsage: true,
	}
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newTasksCmd())
	root.AddCommand(newHolidaysCmd())
	root.AddCommand(newUserCmd())
	return root
}

// openDB loads configuration from the environment and connects to postgres.
func openDB(ctx context.Context) (*config.Config, *sqlx.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
