package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/rtms-schedule-api/internal/models"
	"github.com/noah-isme/rtms-schedule-api/internal/repository"
	"github.com/noah-isme/rtms-schedule-api/internal/schedule"
	"github.com/noah-isme/rtms-schedule-api/internal/service"
)

func newHolidaysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "Maintain the clinic holiday calendar",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import FILE",
		Short: "Import holidays from a CSV file of date,name[,kind] rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			holidays, err := readHolidays(f)
			if err != nil {
				return err
			}

			cfg, db, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			svc := service.NewHolidayService(repository.NewHolidayRepository(db), nil, nil, service.HolidayServiceConfig{
				YearEndClosure: cfg.Clinic.YearEndClosure,
			}, nil, nil)
			if err := svc.Import(cmd.Context(), holidays); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d holiday(s)\n", len(holidays))
			return nil
		},
	})
	return cmd
}

// readHolidays parses date,name[,kind] rows. A header row starting with "date" is skipped.
func readHolidays(r io.Reader) ([]models.ClinicHoliday, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var holidays []models.ClinicHoliday
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && strings.EqualFold(record[0], "date") {
			continue
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("line %d: expected date,name[,kind]", line)
		}
		date, err := schedule.ParseDate(record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		kind := models.HolidayKindPublic
		if len(record) > 2 && record[2] != "" {
			kind = models.HolidayKind(strings.ToUpper(record[2]))
			if kind != models.HolidayKindPublic && kind != models.HolidayKindClosure {
				return nil, fmt.Errorf("line %d: unknown kind %q", line, record[2])
			}
		}
		holidays = append(holidays, models.ClinicHoliday{Date: date, Name: record[1], Kind: kind})
	}
	return holidays, nil
}
