package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/rtms-schedule-api/internal/dto"
	"github.com/noah-isme/rtms-schedule-api/internal/models"
	"github.com/noah-isme/rtms-schedule-api/internal/repository"
	"github.com/noah-isme/rtms-schedule-api/internal/schedule"
	appErrors "github.com/noah-isme/rtms-schedule-api/pkg/errors"
)

type taskPatientStore interface {
	FindByID(ctx context.Context, id string) (*models.Patient, error)
	ListActive(ctx context.Context) ([]models.Patient, error)
}

type taskAssessmentStore interface {
	EarliestDates(ctx context.Context, patientIDs []string) ([]repository.TimingDate, error)
}

type taskMappingStore interface {
	DatesByPatients(ctx context.Context, patientIDs []string) ([]repository.PatientDate, error)
}

// TaskService computes clinical task windows. Tasks are derived on every call.
type TaskService struct {
	patients    taskPatientStore
	assessments taskAssessmentStore
	mappings    taskMappingStore
	calendar    calendarSource
	location    *time.Location
	logger      *zap.Logger
	now         func() time.Time
}

// NewTaskService constructs the service. loc is the clinic time zone used for "today".
func NewTaskService(patients taskPatientStore, assessments taskAssessmentStore, mappings taskMappingStore, calendar calendarSource, loc *time.Location, logger *zap.Logger) *TaskService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{
		patients:    patients,
		assessments: assessments,
		mappings:    mappings,
		calendar:    calendar,
		location:    loc,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *TaskService) today(raw string) (time.Time, error) {
	if raw == "" {
		return schedule.DateOf(s.now(), s.location), nil
	}
	d, err := schedule.ParseDate(raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}
	return d, nil
}

// PatientTasks returns every task of the patient with its planned date and window.
func (s *TaskService) PatientTasks(ctx context.Context, patientID, rawDate string) (*dto.PatientTasks, error) {
	return s.patientTasks(ctx, patientID, rawDate, schedule.ComputeTaskDefinitions)
}

// PatientDashboard returns the patient's tasks that are due and not yet performed.
func (s *TaskService) PatientDashboard(ctx context.Context, patientID, rawDate string) (*dto.PatientTasks, error) {
	return s.patientTasks(ctx, patientID, rawDate, schedule.ComputeDashboardTasks)
}

type taskFunc func(schedule.PatientSchedule, time.Time, *schedule.Calendar, schedule.HolidaySet) []models.Task

func (s *TaskService) patientTasks(ctx context.Context, patientID, rawDate string, compute taskFunc) (*dto.PatientTasks, error) {
	today, err := s.today(rawDate)
	if err != nil {
		return nil, err
	}
	patient, err := s.patients.FindByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	schedules, err := s.loadSchedules(ctx, []models.Patient{*patient})
	if err != nil {
		return nil, err
	}
	cal := s.calendar.Calendar(ctx)
	return &dto.PatientTasks{
		PatientID: patient.ID,
		CardID:    patient.CardID,
		Name:      patient.Name,
		Tasks:     compute(schedules[patient.ID], today, cal, nil),
	}, nil
}

// Dashboard lists the actionable tasks of every active patient for a day.
func (s *TaskService) Dashboard(ctx context.Context, rawDate string) (*dto.DashboardTasks, error) {
	today, err := s.today(rawDate)
	if err != nil {
		return nil, err
	}
	patients, err := s.patients.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list patients")
	}
	schedules, err := s.loadSchedules(ctx, patients)
	if err != nil {
		return nil, err
	}

	cal := s.calendar.Calendar(ctx)
	result := &dto.DashboardTasks{Date: today, Patients: []dto.PatientTasks{}}
	for _, patient := range patients {
		tasks := schedule.ComputeDashboardTasks(schedules[patient.ID], today, cal, nil)
		if len(tasks) == 0 {
			continue
		}
		result.Patients = append(result.Patients, dto.PatientTasks{
			PatientID: patient.ID,
			CardID:    patient.CardID,
			Name:      patient.Name,
			Tasks:     tasks,
		})
		result.Total += len(tasks)
	}
	s.logger.Debug("dashboard tasks computed", zap.Time("date", today), zap.Int("patients", len(patients)), zap.Int("tasks", result.Total))
	return result, nil
}

// loadSchedules resolves the task inputs of many patients with two queries.
func (s *TaskService) loadSchedules(ctx context.Context, patients []models.Patient) (map[string]schedule.PatientSchedule, error) {
	ids := make([]string, 0, len(patients))
	out := make(map[string]schedule.PatientSchedule, len(patients))
	for _, patient := range patients {
		ids = append(ids, patient.ID)
		ps := schedule.PatientSchedule{
			IsAllCaseSurvey: patient.IsAllCaseSurvey,
			AssessmentDates: map[models.AssessmentTiming]time.Time{},
		}
		if patient.FirstTreatmentDate != nil {
			day1 := schedule.DateOf(*patient.FirstTreatmentDate, nil)
			ps.Day1 = &day1
		}
		if !patient.CreatedAt.IsZero() {
			created := schedule.DateOf(patient.CreatedAt, s.location)
			ps.CreatedAt = &created
		}
		out[patient.ID] = ps
	}
	if len(ids) == 0 {
		return out, nil
	}

	timings, err := s.assessments.EarliestDates(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment dates")
	}
	for _, row := range timings {
		if ps, ok := out[row.PatientID]; ok {
			ps.AssessmentDates[row.Timing] = schedule.DateOf(row.FirstDate, nil)
		}
	}

	mappings, err := s.mappings.DatesByPatients(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mapping dates")
	}
	for _, row := range mappings {
		ps, ok := out[row.PatientID]
		if !ok {
			continue
		}
		ps.MappingDates = append(ps.MappingDates, schedule.DateOf(row.Date, nil))
		out[row.PatientID] = ps
	}
	return out, nil
}
