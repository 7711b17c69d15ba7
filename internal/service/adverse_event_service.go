package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/rtms-schedule-api/internal/dto"
	"github.com/noah-isme/rtms-schedule-api/internal/models"
	"github.com/noah-isme/rtms-schedule-api/internal/repository"
	"github.com/noah-isme/rtms-schedule-api/internal/schedule"
	appErrors "github.com/noah-isme/rtms-schedule-api/pkg/errors"
)

type adverseEventStore interface {
	Create(ctx context.Context, event *models.SeriousAdverseEvent) error
	ListByPatient(ctx context.Context, patientID string, course int) ([]models.SeriousAdverseEvent, error)
}

type adverseSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.TreatmentSession, error)
}

type adversePatientReader interface {
	FindByID(ctx context.Context, id string) (*models.Patient, error)
}

// AdverseEventService records serious adverse events against treatment sessions.
type AdverseEventService struct {
	events    adverseEventStore
	sessions  adverseSessionReader
	patients  adversePatientReader
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAdverseEventService constructs the service.
func NewAdverseEventService(events adverseEventStore, sessions adverseSessionReader, patients adversePatientReader, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AdverseEventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdverseEventService{events: events, sessions: sessions, patients: patients, metrics: metrics, validator: validate, logger: logger}
}

// Report stores a serious adverse event for a session together with a snapshot of the
// session's stimulation. A session carries at most one report.
func (s *AdverseEventService) Report(ctx context.Context, sessionID string, req dto.AdverseEventRequest, userID string) (*models.SeriousAdverseEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	eventTypes := make(pq.StringArray, 0, len(req.EventTypes))
	seen := make(map[models.AdverseEventType]bool, len(req.EventTypes))
	for _, t := range req.EventTypes {
		if !seen[t] {
			seen[t] = true
			eventTypes = append(eventTypes, string(t))
		}
	}
	if seen[models.AdverseEventOther] && req.OtherText == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "otherText is required when the event types include other")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.Status == models.SessionStatusSkipped {
		return nil, appErrors.Clone(appErrors.ErrConflict, "session was skipped; no stimulation was delivered")
	}
	patient, err := s.patients.FindByID(ctx, session.PatientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}

	eventDate := schedule.DateOf(session.SessionDate, nil)
	if req.EventDate != "" {
		if eventDate, err = schedule.ParseDate(req.EventDate); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid eventDate")
		}
	}
	raw, err := json.Marshal(snapshotOf(session, patient))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode adverse event snapshot")
	}

	event := &models.SeriousAdverseEvent{
		PatientID:    patient.ID,
		CourseNumber: session.CourseNumber,
		SessionID:    session.ID,
		EventDate:    eventDate,
		EventTypes:   eventTypes,
		OtherText:    req.OtherText,
		Snapshot:     types.JSONText(raw),
		ReportedBy:   optionalUser(userID),
	}
	if err := s.events.Create(ctx, event); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("an adverse event is already reported for session %s", session.ID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record adverse event")
	}

	s.metrics.RecordAdverseEvent(eventTypes)
	s.logger.Warn("serious adverse event reported",
		zap.String("event_id", event.ID),
		zap.String("patient_id", patient.ID),
		zap.String("session_id", session.ID),
		zap.Strings("event_types", eventTypes),
	)
	return event, nil
}

// List returns a patient's reports, newest first. course 0 lists every course.
func (s *AdverseEventService) List(ctx context.Context, patientID string, course int) ([]models.SeriousAdverseEvent, error) {
	if _, err := s.patients.FindByID(ctx, patientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	events, err := s.events.ListByPatient(ctx, patientID, course)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list adverse events")
	}
	return events, nil
}

func snapshotOf(session *models.TreatmentSession, patient *models.Patient) models.AdverseEventSnapshot {
	return models.AdverseEventSnapshot{
		SessionDate:       schedule.DateOf(session.SessionDate, nil).Format(schedule.DateLayout),
		SessionStatus:     session.Status,
		ProtocolType:      patient.ProtocolType,
		MTPercent:         session.MTPercent,
		IntensityPercent:  session.IntensityPercent,
		FrequencyHz:       session.FrequencyHz,
		TrainSeconds:      session.TrainSeconds,
		IntertrainSeconds: session.IntertrainSeconds,
		TrainCount:        session.TrainCount,
		TotalPulses:       session.TotalPulses,
		SideEffects:       session.SideEffects,
	}
}
