package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/rtms-schedule-api/internal/models"
)

const assessmentColumns = `id, patient_id, course_number, timing, date, performed_date, total_score_17, total_score_21, note, created_at`

// AssessmentRepository persists HAM-D assessments.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository constructs the repository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// Create inserts an assessment.
func (r *AssessmentRepository) Create(ctx context.Context, a *models.Assessment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assessments (` + assessmentColumns + `)
VALUES (:id, :patient_id, :course_number, :timing, :date, :performed_date, :total_score_17, :total_score_21, :note, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	return nil
}

// ListByPatient returns the assessments of a course ordered by effective date.
func (r *AssessmentRepository) ListByPatient(ctx context.Context, patientID string, course int) ([]models.Assessment, error) {
	const query = `SELECT ` + assessmentColumns + ` FROM assessments
WHERE patient_id = $1 AND course_number = $2 ORDER BY COALESCE(performed_date, date) ASC, created_at ASC`
	var items []models.Assessment
	if err := r.db.SelectContext(ctx, &items, query, patientID, course); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return items, nil
}

// TimingDate is the effective date of the earliest assessment of a timing for one patient.
type TimingDate struct {
	PatientID string                  `db:"patient_id"`
	Timing    models.AssessmentTiming `db:"timing"`
	FirstDate time.Time               `db:"first_date"`
}

// EarliestDates returns, per patient and timing, the assessment of the current course
// with the earliest scheduled date, reported by its performed date when one is set.
func (r *AssessmentRepository) EarliestDates(ctx context.Context, patientIDs []string) ([]TimingDate, error) {
	if len(patientIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT DISTINCT ON (a.patient_id, a.timing) a.patient_id, a.timing, COALESCE(a.performed_date, a.date) AS first_date
FROM assessments a JOIN patients p ON p.id = a.patient_id AND p.course_number = a.course_number
WHERE a.patient_id = ANY($1)
ORDER BY a.patient_id, a.timing, a.date, a.created_at`
	var rows []TimingDate
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(patientIDs)); err != nil {
		return nil, fmt.Errorf("earliest assessment dates: %w", err)
	}
	return rows, nil
}
