package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/noah-isme/rtms-schedule-api/internal/models"
)

const sessionColumns = `id, patient_id, course_number, session_date, performed_at, status, slot, mt_percent,
intensity_percent, frequency_hz, train_seconds, intertrain_seconds, train_count, total_pulses, side_effects,
created_at, updated_at`

// TreatmentSessionRepository persists treatment sessions.
type TreatmentSessionRepository struct {
	db *sqlx.DB
}

// NewTreatmentSessionRepository constructs the repository.
func NewTreatmentSessionRepository(db *sqlx.DB) *TreatmentSessionRepository {
	return &TreatmentSessionRepository{db: db}
}

func (r *TreatmentSessionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// BulkCreate inserts planned sessions. A clash on (patient, course, date, slot) returns ErrDuplicate.
func (r *TreatmentSessionRepository) BulkCreate(ctx context.Context, exec sqlx.ExtContext, sessions []models.TreatmentSession) error {
	if len(sessions) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `INSERT INTO treatment_sessions (` + sessionColumns + `)
VALUES (:id, :patient_id, :course_number, :session_date, :performed_at, :status, :slot, :mt_percent,
:intensity_percent, :frequency_hz, :train_seconds, :intertrain_seconds, :train_count, :total_pulses, :side_effects,
:created_at, :updated_at)`
	for i := range sessions {
		s := &sessions[i]
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if s.Status == "" {
			s.Status = models.SessionStatusPlanned
		}
		if len(s.SideEffects) == 0 {
			s.SideEffects = types.JSONText("{}")
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		s.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, query, s); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("session on %s: %w", s.SessionDate.Format("2006-01-02"), ErrDuplicate)
			}
			return fmt.Errorf("create treatment session: %w", err)
		}
	}
	return nil
}

// FindByID returns a session by identifier.
func (r *TreatmentSessionRepository) FindByID(ctx context.Context, id string) (*models.TreatmentSession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM treatment_sessions WHERE id = $1`
	var session models.TreatmentSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find treatment session: %w", err)
	}
	return &session, nil
}

// FindByIDForUpdate locks a session row inside the caller's transaction.
func (r *TreatmentSessionRepository) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TreatmentSession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM treatment_sessions WHERE id = $1 FOR UPDATE`
	var session models.TreatmentSession
	if err := sqlx.GetContext(ctx, r.exec(exec), &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock treatment session: %w", err)
	}
	return &session, nil
}

// ListByPatient returns a patient's sessions in chronological order. course 0 lists all courses.
func (r *TreatmentSessionRepository) ListByPatient(ctx context.Context, patientID string, course int) ([]models.TreatmentSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM treatment_sessions WHERE patient_id = $1`
	args := []interface{}{patientID}
	if course > 0 {
		query += ` AND course_number = $2`
		args = append(args, course)
	}
	query += ` ORDER BY session_date ASC, slot ASC, id ASC`

	var sessions []models.TreatmentSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list treatment sessions: %w", err)
	}
	return sessions, nil
}

// ListFuturePlanned locks and returns the planned sessions of a patient strictly after from,
// ordered by date, slot and id.
func (r *TreatmentSessionRepository) ListFuturePlanned(ctx context.Context, exec sqlx.ExtContext, patientID string, from time.Time) ([]models.TreatmentSession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM treatment_sessions
WHERE patient_id = $1 AND status = $2 AND session_date > $3
ORDER BY session_date ASC, slot ASC, id ASC FOR UPDATE`
	var sessions []models.TreatmentSession
	if err := sqlx.SelectContext(ctx, r.exec(exec), &sessions, query, patientID, models.SessionStatusPlanned, from); err != nil {
		return nil, fmt.Errorf("list future planned sessions: %w", err)
	}
	return sessions, nil
}

// ListOccupied returns the non-planned sessions of a patient that sit on any of dates.
func (r *TreatmentSessionRepository) ListOccupied(ctx context.Context, exec sqlx.ExtContext, patientID string, dates []time.Time) ([]models.TreatmentSession, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	raw := make([]string, len(dates))
	for i, d := range dates {
		raw[i] = d.Format("2006-01-02")
	}
	const query = `SELECT ` + sessionColumns + ` FROM treatment_sessions
WHERE patient_id = $1 AND status <> $2 AND session_date = ANY($3::date[])
ORDER BY session_date ASC, slot ASC`
	var sessions []models.TreatmentSession
	if err := sqlx.SelectContext(ctx, r.exec(exec), &sessions, query, patientID, models.SessionStatusPlanned, pq.Array(raw)); err != nil {
		return nil, fmt.Errorf("list occupied sessions: %w", err)
	}
	return sessions, nil
}

// ListByIDsForUpdate locks the given sessions.
func (r *TreatmentSessionRepository) ListByIDsForUpdate(ctx context.Context, exec sqlx.ExtContext, ids []string) ([]models.TreatmentSession, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT ` + sessionColumns + ` FROM treatment_sessions WHERE id = ANY($1) ORDER BY session_date ASC, slot ASC, id ASC FOR UPDATE`
	var sessions []models.TreatmentSession
	if err := sqlx.SelectContext(ctx, r.exec(exec), &sessions, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("lock treatment sessions: %w", err)
	}
	return sessions, nil
}

// UpdateSchedule rewrites the date, timestamp and status of a session.
func (r *TreatmentSessionRepository) UpdateSchedule(ctx context.Context, exec sqlx.ExtContext, id string, date, performedAt time.Time, status models.SessionStatus) error {
	const query = `UPDATE treatment_sessions SET session_date = $2, performed_at = $3, status = $4, updated_at = $5 WHERE id = $1`
	res, err := r.exec(exec).ExecContext(ctx, query, id, date, performedAt, status, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("reschedule session %s: %w", id, ErrDuplicate)
		}
		return fmt.Errorf("update session schedule: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetStatus changes the status of a session.
func (r *TreatmentSessionRepository) SetStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.SessionStatus) error {
	const query = `UPDATE treatment_sessions SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.exec(exec).ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set session status: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkDone completes a planned session and stores the recorded stimulation. Nil values
// keep what is stored. sql.ErrNoRows means the session is missing or no longer planned.
func (r *TreatmentSessionRepository) MarkDone(ctx context.Context, exec sqlx.ExtContext, id string, performedAt time.Time, st models.Stimulation) error {
	const query = `UPDATE treatment_sessions SET status = $2, performed_at = $3,
mt_percent = COALESCE($4, mt_percent), intensity_percent = COALESCE($5, intensity_percent),
frequency_hz = COALESCE($6, frequency_hz), train_seconds = COALESCE($7, train_seconds),
intertrain_seconds = COALESCE($8, intertrain_seconds), train_count = COALESCE($9, train_count),
total_pulses = COALESCE($10, total_pulses), side_effects = COALESCE($11::jsonb, side_effects), updated_at = $12
WHERE id = $1 AND status = $13`
	var sideEffects interface{}
	if len(st.SideEffects) > 0 {
		sideEffects = string(st.SideEffects)
	}
	res, err := r.exec(exec).ExecContext(ctx, query, id, models.SessionStatusDone, performedAt,
		st.MTPercent, st.IntensityPercent, st.FrequencyHz, st.TrainSeconds, st.IntertrainSeconds,
		st.TrainCount, st.TotalPulses, sideEffects, time.Now().UTC(), models.SessionStatusPlanned)
	if err != nil {
		return fmt.Errorf("mark session done: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
