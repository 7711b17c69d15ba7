package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/rtms-schedule-api/internal/dto"
	"github.com/noah-isme/rtms-schedule-api/internal/models"
	"github.com/noah-isme/rtms-schedule-api/internal/repository"
	"github.com/noah-isme/rtms-schedule-api/internal/schedule"
	appErrors "github.com/noah-isme/rtms-schedule-api/pkg/errors"
)

// DefaultSessionHour is the clinic-local hour stamped on newly planned sessions.
const DefaultSessionHour = 9

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type planPatientStore interface {
	FindByID(ctx context.Context, id string) (*models.Patient, error)
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Patient, error)
	SetFirstTreatmentDate(ctx context.Context, exec sqlx.ExtContext, id string, day1 time.Time) error
}

type planSessionStore interface {
	BulkCreate(ctx context.Context, exec sqlx.ExtContext, sessions []models.TreatmentSession) error
	ListByPatient(ctx context.Context, patientID string, course int) ([]models.TreatmentSession, error)
}

// PlanServiceConfig carries clinic scheduling defaults.
type PlanServiceConfig struct {
	TotalSessions   int
	SessionsPerWeek int
	Location        *time.Location
}

// TreatmentPlanService generates and inspects the planned sessions of a course.
type TreatmentPlanService struct {
	patients  planPatientStore
	sessions  planSessionStore
	calendar  calendarSource
	tx        txProvider
	metrics   *MetricsService
	cfg       PlanServiceConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTreatmentPlanService constructs the service.
func NewTreatmentPlanService(patients planPatientStore, sessions planSessionStore, calendar calendarSource, tx txProvider, metrics *MetricsService, cfg PlanServiceConfig, validate *validator.Validate, logger *zap.Logger) *TreatmentPlanService {
	if cfg.TotalSessions <= 0 {
		cfg.TotalSessions = schedule.DefaultTotalSessions
	}
	if cfg.SessionsPerWeek <= 0 {
		cfg.SessionsPerWeek = schedule.DefaultPerWeek
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TreatmentPlanService{
		patients:  patients,
		sessions:  sessions,
		calendar:  calendar,
		tx:        tx,
		metrics:   metrics,
		cfg:       cfg,
		validator: validate,
		logger:    logger,
	}
}

func (s *TreatmentPlanService) loadPatient(ctx context.Context, id string) (*models.Patient, error) {
	patient, err := s.patients.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	return patient, nil
}

// Preview computes the plan without storing it. A shortfall is reported in the result.
func (s *TreatmentPlanService) Preview(ctx context.Context, patientID string, req dto.PlanRequest) (*dto.PlanPreview, error) {
	ctx, span := scheduleTracer.Start(ctx, "plan.preview")
	var err error
	defer func() { finishSpan(span, err) }()
	span.SetAttributes(attribute.String("rtms.patient_id", patientID))

	if err = s.validator.Struct(req); err != nil {
		err = appErrors.Clone(appErrors.ErrValidation, err.Error())
		return nil, err
	}
	patient, err := s.loadPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	start, err := schedule.ParseDate(req.StartDate)
	if err != nil {
		err = appErrors.Clone(appErrors.ErrValidation, "invalid start date")
		return nil, err
	}

	protocol := models.ProtocolFor(patient.ProtocolType)
	total := req.TotalSessions
	if total <= 0 {
		total = protocol.TotalSessions
	}
	if total <= 0 {
		total = s.cfg.TotalSessions
	}
	perWeek := req.SessionsPerWeek
	if perWeek <= 0 {
		perWeek = s.cfg.SessionsPerWeek
	}

	cal := s.calendar.Calendar(ctx)
	planned := cal.GeneratePlannedDates(start, total, nil)

	preview := &dto.PlanPreview{
		PatientID:    patient.ID,
		Protocol:     string(protocol.Code),
		Requested:    total,
		Dates:        make([]dto.PlannedDate, 0, len(planned)),
		MappingDates: schedule.MappingDatesFromPlanned(planned, perWeek),
		Shortfall:    len(planned) < total,
	}
	for i, d := range planned {
		info := schedule.SessionInfo{SessionNo: i + 1, WeekNo: i/perWeek + 1}
		preview.Dates = append(preview.Dates, dto.PlannedDate{Date: d, SessionNo: info.SessionNo, WeekNo: info.WeekNo, Label: schedule.FormatSessionLabel(info)})
	}
	if len(planned) > 0 {
		for _, m := range cal.WeeklyMappingDates(planned[0], schedule.DefaultMappingWeeks, nil) {
			preview.WeeklyMapping = append(preview.WeeklyMapping, dto.MappingDate{WeekNo: m.WeekNo, Nominal: m.Nominal, Actual: m.Actual})
		}
	}
	if preview.Shortfall {
		s.logger.Error("treatment plan ran out of business days",
			zap.String("patient_id", patient.ID),
			zap.Int("requested", total),
			zap.Int("planned", len(planned)),
			zap.String("start", req.StartDate),
		)
		s.metrics.RecordPlanShortfall()
	}
	span.SetAttributes(attribute.Int("rtms.planned", len(planned)), attribute.Bool("rtms.shortfall", preview.Shortfall))
	return preview, nil
}

// Generate stores the planned sessions of the patient's current course. The course must
// not have sessions yet and every requested session must fit.
func (s *TreatmentPlanService) Generate(ctx context.Context, patientID string, req dto.PlanRequest) (sessions []models.TreatmentSession, err error) {
	preview, err := s.Preview(ctx, patientID, req)
	if err != nil {
		return nil, err
	}
	ctx, span := scheduleTracer.Start(ctx, "plan.generate")
	defer func() {
		s.metrics.RecordScheduleOperation("plan", err)
		finishSpan(span, err)
	}()
	span.SetAttributes(attribute.String("rtms.patient_id", patientID))

	if preview.Shortfall {
		err = appErrors.Clone(appErrors.ErrScheduleExhausted, "only part of the requested sessions fit the scheduling horizon")
		return nil, err
	}
	if s.tx == nil {
		err = appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	patient, err := s.patients.FindByIDForUpdate(ctx, tx, patientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "patient not found")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock patient")
		return nil, err
	}
	existing, err := s.sessions.ListByPatient(ctx, patientID, patient.CourseNumber)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
		return nil, err
	}
	if len(existing) > 0 {
		err = appErrors.Clone(appErrors.ErrConflict, "course already has planned sessions")
		return nil, err
	}

	sessions = make([]models.TreatmentSession, 0, len(preview.Dates))
	for _, d := range preview.Dates {
		sessions = append(sessions, models.TreatmentSession{
			PatientID:    patientID,
			CourseNumber: patient.CourseNumber,
			SessionDate:  d.Date,
			PerformedAt:  s.defaultPerformedAt(d.Date),
			Status:       models.SessionStatusPlanned,
			Slot:         req.Slot,
		})
	}
	if err = s.sessions.BulkCreate(ctx, tx, sessions); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			err = appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "a session already exists on a planned date")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store planned sessions")
		return nil, err
	}
	if patient.FirstTreatmentDate == nil && len(sessions) > 0 {
		if err = s.patients.SetFirstTreatmentDate(ctx, tx, patientID, sessions[0].SessionDate); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set first treatment date")
			return nil, err
		}
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit plan")
		return nil, err
	}

	s.logger.Info("treatment plan stored",
		zap.String("patient_id", patientID),
		zap.Int("sessions", len(sessions)),
		zap.Time("first", sessions[0].SessionDate),
		zap.Time("last", sessions[len(sessions)-1].SessionDate),
	)
	return sessions, nil
}

// defaultPerformedAt stamps a civil date with the clinic's opening hour, in UTC.
func (s *TreatmentPlanService) defaultPerformedAt(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), DefaultSessionHour, 0, 0, 0, s.cfg.Location).UTC()
}

// SessionInfo locates a date inside the patient's course. Skipped sessions are not counted.
func (s *TreatmentPlanService) SessionInfo(ctx context.Context, patientID, rawDate string) (*dto.SessionLookup, error) {
	target, err := schedule.ParseDate(rawDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}
	patient, err := s.loadPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	all, err := s.sessions.ListByPatient(ctx, patientID, patient.CourseNumber)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}

	dates := make([]time.Time, 0, len(all))
	counted := make([]models.TreatmentSession, 0, len(all))
	for _, session := range all {
		if session.Status == models.SessionStatusSkipped {
			continue
		}
		dates = append(dates, schedule.DateOf(session.SessionDate, nil))
		counted = append(counted, session)
	}

	lookup := &dto.SessionLookup{Date: target}
	info, ok := schedule.SessionInfoForDate(dates, target, s.cfg.SessionsPerWeek)
	if !ok {
		return lookup, nil
	}
	session := counted[info.SessionNo-1]
	lookup.Found = true
	lookup.SessionNo = info.SessionNo
	lookup.WeekNo = info.WeekNo
	lookup.Label = schedule.FormatSessionLabel(info)
	lookup.Session = &session
	return lookup, nil
}

// ListSessions returns the sessions of the patient's current course.
func (s *TreatmentPlanService) ListSessions(ctx context.Context, patientID string) ([]models.TreatmentSession, error) {
	patient, err := s.loadPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListByPatient(ctx, patientID, patient.CourseNumber)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	return sessions, nil
}
