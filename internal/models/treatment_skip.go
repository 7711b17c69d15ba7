package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TreatmentSkip is the durable record of a skipped session. It is never deleted;
// undo only fills UndoneBy/UndoneAt.
type TreatmentSkip struct {
	ID        string         `db:"id" json:"id"`
	SessionID string         `db:"session_id" json:"session_id"`
	PatientID string         `db:"patient_id" json:"patient_id"`
	Reason    string         `db:"reason" json:"reason"`
	Snapshot  types.JSONText `db:"snapshot" json:"snapshot"`
	CreatedBy *string        `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UndoneBy  *string        `db:"undone_by" json:"undone_by,omitempty"`
	UndoneAt  *time.Time     `db:"undone_at" json:"undone_at,omitempty"`
}

// Undone reports whether the skip has already been reverted.
func (s *TreatmentSkip) Undone() bool {
	return s != nil && s.UndoneAt != nil
}

// SkipSnapshot captures the dates touched by a skip, as stored in TreatmentSkip.Snapshot.
// DischargeDate is the value before the skip, ShiftedDischargeDate the value the skip left.
type SkipSnapshot struct {
	FromDate             string                `json:"from_date"`
	DischargeDate        *string               `json:"discharge_date"`
	ShiftedDischargeDate *string               `json:"shifted_discharge_date,omitempty"`
	Sessions             []SkipSnapshotSession `json:"sessions"`
}

// SkipSnapshotSession is the pre-skip state of one session. NewDate is where the skip
// left it; snapshots written before it was recorded leave it empty.
type SkipSnapshotSession struct {
	SessionID   string        `json:"session_id"`
	SessionDate string        `json:"session_date"`
	NewDate     string        `json:"new_date,omitempty"`
	PerformedAt time.Time     `json:"performed_at"`
	Status      SessionStatus `json:"status"`
}
