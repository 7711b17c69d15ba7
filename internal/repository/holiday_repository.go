package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/rtms-schedule-api/internal/models"
)

// HolidayRepository persists the clinic holiday calendar.
type HolidayRepository struct {
	db *sqlx.DB
}

// NewHolidayRepository constructs the repository.
func NewHolidayRepository(db *sqlx.DB) *HolidayRepository {
	return &HolidayRepository{db: db}
}

// List returns holidays between from and to inclusive; nil bounds are open.
func (r *HolidayRepository) List(ctx context.Context, from, to *time.Time) ([]models.ClinicHoliday, error) {
	query := `SELECT date, name, kind, created_at FROM clinic_holidays WHERE 1=1`
	args := make([]interface{}, 0, 2)
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	query += " ORDER BY date ASC"

	var holidays []models.ClinicHoliday
	if err := r.db.SelectContext(ctx, &holidays, query, args...); err != nil {
		return nil, fmt.Errorf("list clinic holidays: %w", err)
	}
	return holidays, nil
}

// Upsert stores holidays, replacing the name and kind of existing dates.
func (r *HolidayRepository) Upsert(ctx context.Context, holidays []models.ClinicHoliday) error {
	if len(holidays) == 0 {
		return nil
	}
	dates := make([]string, len(holidays))
	names := make([]string, len(holidays))
	kinds := make([]string, len(holidays))
	for i, h := range holidays {
		dates[i] = h.Date.Format("2006-01-02")
		names[i] = h.Name
		kinds[i] = string(h.Kind)
	}

	const query = `INSERT INTO clinic_holidays (date, name, kind, created_at)
SELECT d, n, k, $4 FROM unnest($1::date[], $2::text[], $3::text[]) AS t(d, n, k)
ON CONFLICT (date) DO UPDATE SET name = EXCLUDED.name, kind = EXCLUDED.kind`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(dates), pq.Array(names), pq.Array(kinds), time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert clinic holidays: %w", err)
	}
	return nil
}

// Delete removes the holiday on date.
func (r *HolidayRepository) Delete(ctx context.Context, date time.Time) error {
	const query = `DELETE FROM clinic_holidays WHERE date = $1`
	res, err := r.db.ExecContext(ctx, query, date)
	if err != nil {
		return fmt.Errorf("delete clinic holiday: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
