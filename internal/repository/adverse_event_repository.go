package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/rtms-schedule-api/internal/models"
)

const adverseEventColumns = `id, patient_id, course_number, session_id, event_date, event_types, other_text, snapshot, reported_by, created_at`

// AdverseEventRepository persists serious adverse event reports.
type AdverseEventRepository struct {
	db *sqlx.DB
}

// NewAdverseEventRepository constructs the repository.
func NewAdverseEventRepository(db *sqlx.DB) *AdverseEventRepository {
	return &AdverseEventRepository{db: db}
}

// Create inserts a report. A second report for the same session returns ErrDuplicate.
func (r *AdverseEventRepository) Create(ctx context.Context, event *models.SeriousAdverseEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if len(event.Snapshot) == 0 {
		event.Snapshot = types.JSONText("{}")
	}
	const query = `INSERT INTO serious_adverse_events (` + adverseEventColumns + `)
VALUES (:id, :patient_id, :course_number, :session_id, :event_date, :event_types, :other_text, :snapshot, :reported_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("adverse event for session %s: %w", event.SessionID, ErrDuplicate)
		}
		return fmt.Errorf("create adverse event: %w", err)
	}
	return nil
}

// ListByPatient returns a patient's reports, newest first. course 0 lists all courses.
func (r *AdverseEventRepository) ListByPatient(ctx context.Context, patientID string, course int) ([]models.SeriousAdverseEvent, error) {
	query := `SELECT ` + adverseEventColumns + ` FROM serious_adverse_events WHERE patient_id = $1`
	args := []interface{}{patientID}
	if course > 0 {
		query += ` AND course_number = $2`
		args = append(args, course)
	}
	query += ` ORDER BY created_at DESC`

	events := make([]models.SeriousAdverseEvent, 0)
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list adverse events: %w", err)
	}
	return events, nil
}
