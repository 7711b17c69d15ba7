package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/rtms-schedule-api/internal/models"
)

const skipColumns = `id, session_id, patient_id, reason, snapshot, created_by, created_at, undone_by, undone_at`

// TreatmentSkipRepository persists skip records and their snapshots.
type TreatmentSkipRepository struct {
	db *sqlx.DB
}

// NewTreatmentSkipRepository constructs the repository.
func NewTreatmentSkipRepository(db *sqlx.DB) *TreatmentSkipRepository {
	return &TreatmentSkipRepository{db: db}
}

func (r *TreatmentSkipRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a skip record.
func (r *TreatmentSkipRepository) Create(ctx context.Context, exec sqlx.ExtContext, skip *models.TreatmentSkip) error {
	if skip.ID == "" {
		skip.ID = uuid.NewString()
	}
	if skip.CreatedAt.IsZero() {
		skip.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO treatment_skips (id, session_id, patient_id, reason, snapshot, created_by, created_at)
VALUES (:id, :session_id, :patient_id, :reason, :snapshot, :created_by, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, skip); err != nil {
		return fmt.Errorf("create treatment skip: %w", err)
	}
	return nil
}

// FindByIDForUpdate locks a skip record inside the caller's transaction.
func (r *TreatmentSkipRepository) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TreatmentSkip, error) {
	const query = `SELECT ` + skipColumns + ` FROM treatment_skips WHERE id = $1 FOR UPDATE`
	var skip models.TreatmentSkip
	if err := sqlx.GetContext(ctx, r.exec(exec), &skip, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock treatment skip: %w", err)
	}
	return &skip, nil
}

// MarkUndone stamps the skip as reverted. sql.ErrNoRows means it was already undone.
func (r *TreatmentSkipRepository) MarkUndone(ctx context.Context, exec sqlx.ExtContext, id string, userID *string, at time.Time) error {
	const query = `UPDATE treatment_skips SET undone_by = $2, undone_at = $3 WHERE id = $1 AND undone_at IS NULL`
	res, err := r.exec(exec).ExecContext(ctx, query, id, userID, at)
	if err != nil {
		return fmt.Errorf("mark skip undone: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByPatient returns a patient's skips, newest first.
func (r *TreatmentSkipRepository) ListByPatient(ctx context.Context, patientID string) ([]models.TreatmentSkip, error) {
	const query = `SELECT ` + skipColumns + ` FROM treatment_skips WHERE patient_id = $1 ORDER BY created_at DESC`
	var skips []models.TreatmentSkip
	if err := r.db.SelectContext(ctx, &skips, query, patientID); err != nil {
		return nil, fmt.Errorf("list treatment skips: %w", err)
	}
	return skips, nil
}
