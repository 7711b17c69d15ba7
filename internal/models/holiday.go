package models

import "time"

// HolidayKind distinguishes public holidays from clinic-specific closures.
type HolidayKind string

const (
	HolidayKindPublic  HolidayKind = "PUBLIC"
	HolidayKindClosure HolidayKind = "CLOSURE"
)

// ClinicHoliday is a date on which no treatment is scheduled.
type ClinicHoliday struct {
	Date      time.Time   `db:"date" json:"date"`
	Name      string      `db:"name" json:"name"`
	Kind      HolidayKind `db:"kind" json:"kind"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}
