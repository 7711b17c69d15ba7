package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/rtms-schedule-api/internal/models"
)

const patientColumns = `id, card_id, name, birth_date, protocol_type, course_number, first_treatment_date, discharge_date, is_all_case_survey, active, created_at, updated_at`

// PatientRepository persists patients and their schedule anchors.
type PatientRepository struct {
	db *sqlx.DB
}

// NewPatientRepository constructs the repository.
func NewPatientRepository(db *sqlx.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

func (r *PatientRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a patient.
func (r *PatientRepository) Create(ctx context.Context, patient *models.Patient) error {
	if patient.ID == "" {
		patient.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = now
	}
	patient.UpdatedAt = now
	if patient.CourseNumber <= 0 {
		patient.CourseNumber = 1
	}

	const query = `INSERT INTO patients (` + patientColumns + `)
VALUES (:id, :card_id, :name, :birth_date, :protocol_type, :course_number, :first_treatment_date, :discharge_date, :is_all_case_survey, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, patient); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

// FindByID returns a patient by identifier.
func (r *PatientRepository) FindByID(ctx context.Context, id string) (*models.Patient, error) {
	const query = `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	var patient models.Patient
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find patient: %w", err)
	}
	return &patient, nil
}

// FindByIDForUpdate locks the patient row for the surrounding transaction.
func (r *PatientRepository) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Patient, error) {
	const query = `SELECT ` + patientColumns + ` FROM patients WHERE id = $1 FOR UPDATE`
	var patient models.Patient
	if err := sqlx.GetContext(ctx, r.exec(exec), &patient, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock patient: %w", err)
	}
	return &patient, nil
}

// List returns patients matching the filter with the total count.
func (r *PatientRepository) List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, int, error) {
	base := `FROM patients WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR card_id LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY card_id ASC LIMIT %d OFFSET %d", patientColumns, base, size, offset)
	var patients []models.Patient
	if err := r.db.SelectContext(ctx, &patients, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}
	return patients, total, nil
}

// ListActive returns every active patient, used by the clinic-wide dashboard.
func (r *PatientRepository) ListActive(ctx context.Context) ([]models.Patient, error) {
	const query = `SELECT ` + patientColumns + ` FROM patients WHERE active = TRUE ORDER BY card_id ASC`
	var patients []models.Patient
	if err := r.db.SelectContext(ctx, &patients, query); err != nil {
		return nil, fmt.Errorf("list active patients: %w", err)
	}
	return patients, nil
}

// UpdateSchedule stores the schedule anchors of a patient.
func (r *PatientRepository) UpdateSchedule(ctx context.Context, exec sqlx.ExtContext, patient *models.Patient) error {
	patient.UpdatedAt = time.Now().UTC()
	const query = `UPDATE patients SET protocol_type = :protocol_type, course_number = :course_number, first_treatment_date = :first_treatment_date,
discharge_date = :discharge_date, is_all_case_survey = :is_all_case_survey, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, patient)
	if err != nil {
		return fmt.Errorf("update patient schedule: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateDischargeDate sets or clears the planned discharge date.
func (r *PatientRepository) UpdateDischargeDate(ctx context.Context, exec sqlx.ExtContext, id string, discharge *time.Time) error {
	const query = `UPDATE patients SET discharge_date = $2, updated_at = $3 WHERE id = $1`
	res, err := r.exec(exec).ExecContext(ctx, query, id, discharge, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update discharge date: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetFirstTreatmentDate records day1 of the course.
func (r *PatientRepository) SetFirstTreatmentDate(ctx context.Context, exec sqlx.ExtContext, id string, day1 time.Time) error {
	const query = `UPDATE patients SET first_treatment_date = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, id, day1, time.Now().UTC()); err != nil {
		return fmt.Errorf("set first treatment date: %w", err)
	}
	return nil
}
