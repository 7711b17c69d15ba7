package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/rtms-schedule-api/internal/models"
	"github.com/noah-isme/rtms-schedule-api/internal/repository"
)

type taskPatientStub struct {
	patients []models.Patient
}

func (s *taskPatientStub) FindByID(ctx context.Context, id string) (*models.Patient, error) {
	for _, p := range s.patients {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *taskPatientStub) ListActive(ctx context.Context) ([]models.Patient, error) {
	return s.patients, nil
}

type taskAssessmentStub struct {
	rows []repository.TimingDate
	ids  []string
}

func (s *taskAssessmentStub) EarliestDates(ctx context.Context, patientIDs []string) ([]repository.TimingDate, error) {
	s.ids = patientIDs
	return s.rows, nil
}

type taskMappingStub struct {
	rows []repository.PatientDate
}

func (s *taskMappingStub) DatesByPatients(ctx context.Context, patientIDs []string) ([]repository.PatientDate, error) {
	return s.rows, nil
}

func newTaskFixture(patients []models.Patient, assessments []repository.TimingDate, mappings []repository.PatientDate) (*TaskService, *taskAssessmentStub) {
	a := &taskAssessmentStub{rows: assessments}
	svc := NewTaskService(&taskPatientStub{patients: patients}, a, &taskMappingStub{rows: mappings}, staticCalendar{}, time.UTC, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 1, 13, 8, 0, 0, 0, time.UTC) }
	return svc, a
}

func TestTaskServicePatientTasks(t *testing.T) {
	patients := []models.Patient{{
		ID:                 "p1",
		CardID:             "C-001",
		Name:               "Patient One",
		FirstTreatmentDate: dayPtr(2026, 1, 5),
		CreatedAt:          time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC),
	}}
	assessments := []repository.TimingDate{{PatientID: "p1", Timing: models.TimingBaseline, FirstDate: day(2026, 1, 2)}}
	svc, _ := newTaskFixture(patients, assessments, nil)

	res, err := svc.PatientTasks(context.Background(), "p1", "")
	require.NoError(t, err)
	assert.Equal(t, "C-001", res.CardID)
	require.Len(t, res.Tasks, 4)
	assert.Equal(t, models.TaskMapping, res.Tasks[0].Key)
	assert.Equal(t, day(2026, 1, 12), res.Tasks[0].PlannedDate)
	assert.Equal(t, models.TaskAssessmentBaseline, res.Tasks[1].Key)
	require.NotNil(t, res.Tasks[1].PerformedDate)
	assert.Equal(t, models.TaskAssessmentWeek3, res.Tasks[2].Key)
	assert.Equal(t, day(2026, 1, 19), res.Tasks[2].PlannedDate)
	assert.Equal(t, day(2026, 1, 23), res.Tasks[2].WindowEnd)
	assert.Equal(t, models.TaskAssessmentWeek6, res.Tasks[3].Key)
}

func TestTaskServicePatientDashboardUsesDate(t *testing.T) {
	patients := []models.Patient{{ID: "p1", FirstTreatmentDate: dayPtr(2026, 1, 5), CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}}
	mappings := []repository.PatientDate{{PatientID: "p1", Date: day(2026, 1, 12)}}
	svc, _ := newTaskFixture(patients, nil, mappings)

	res, err := svc.PatientDashboard(context.Background(), "p1", "2026-01-12")
	require.NoError(t, err)
	require.Len(t, res.Tasks, 1, "mapping is performed, baseline is overdue")
	assert.Equal(t, models.TaskAssessmentBaseline, res.Tasks[0].Key)

	_, err = svc.PatientDashboard(context.Background(), "p1", "12.01.2026")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", errCode(err))

	_, err = svc.PatientDashboard(context.Background(), "missing", "")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", errCode(err))
}

func TestTaskServiceDashboardIncludesMappingOnPlannedDate(t *testing.T) {
	patients := []models.Patient{
		{ID: "p1", CardID: "C-001", FirstTreatmentDate: dayPtr(2026, 1, 5), CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
		{ID: "p2", CardID: "C-002", CreatedAt: time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)},
	}
	assessments := []repository.TimingDate{
		{PatientID: "p1", Timing: models.TimingBaseline, FirstDate: day(2026, 1, 2)},
		{PatientID: "p2", Timing: models.TimingBaseline, FirstDate: day(2026, 1, 12)},
	}
	svc, stub := newTaskFixture(patients, assessments, nil)

	res, err := svc.Dashboard(context.Background(), "2026-01-12")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, stub.ids)
	require.Len(t, res.Patients, 1)
	assert.Equal(t, "p1", res.Patients[0].PatientID)
	require.Len(t, res.Patients[0].Tasks, 1)
	assert.Equal(t, models.TaskMapping, res.Patients[0].Tasks[0].Key)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, day(2026, 1, 12), res.Date)
}

func TestTaskServiceDashboardDefaultsToClinicToday(t *testing.T) {
	svc, _ := newTaskFixture(nil, nil, nil)
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	svc.location = tokyo
	svc.now = func() time.Time { return time.Date(2026, 1, 12, 20, 0, 0, 0, time.UTC) }

	res, err := svc.Dashboard(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, day(2026, 1, 13), res.Date)
	assert.Empty(t, res.Patients)
}
