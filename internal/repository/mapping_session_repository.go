package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/rtms-schedule-api/internal/models"
)

const mappingColumns = `id, patient_id, course_number, date, resting_mt, note, created_at`

// MappingSessionRepository persists positional mapping sessions.
type MappingSessionRepository struct {
	db *sqlx.DB
}

// NewMappingSessionRepository constructs the repository.
func NewMappingSessionRepository(db *sqlx.DB) *MappingSessionRepository {
	return &MappingSessionRepository{db: db}
}

// Create inserts a mapping session.
func (r *MappingSessionRepository) Create(ctx context.Context, m *models.MappingSession) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO mapping_sessions (` + mappingColumns + `)
VALUES (:id, :patient_id, :course_number, :date, :resting_mt, :note, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("create mapping session: %w", err)
	}
	return nil
}

// PatientDate pairs a patient with a mapping date.
type PatientDate struct {
	PatientID string    `db:"patient_id"`
	Date      time.Time `db:"date"`
}

// DatesByPatients returns the mapping dates of each patient's current course.
func (r *MappingSessionRepository) DatesByPatients(ctx context.Context, patientIDs []string) ([]PatientDate, error) {
	if len(patientIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT DISTINCT m.patient_id, m.date FROM mapping_sessions m
JOIN patients p ON p.id = m.patient_id AND p.course_number = m.course_number
WHERE m.patient_id = ANY($1) ORDER BY m.patient_id, m.date`
	var rows []PatientDate
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(patientIDs)); err != nil {
		return nil, fmt.Errorf("mapping dates by patients: %w", err)
	}
	return rows, nil
}

// LatestRestingMT returns the most recent resting motor threshold of a course.
// sql.ErrNoRows means none has been measured.
func (r *MappingSessionRepository) LatestRestingMT(ctx context.Context, patientID string, course int) (int, error) {
	const query = `SELECT resting_mt FROM mapping_sessions
WHERE patient_id = $1 AND course_number = $2 AND resting_mt IS NOT NULL ORDER BY date DESC, created_at DESC LIMIT 1`
	var mt int
	if err := r.db.GetContext(ctx, &mt, query, patientID, course); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("latest resting mt: %w", err)
	}
	return mt, nil
}
