package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/rtms-schedule-api/internal/dto"
	"github.com/noah-isme/rtms-schedule-api/internal/models"
	"github.com/noah-isme/rtms-schedule-api/internal/repository"
	"github.com/noah-isme/rtms-schedule-api/internal/schedule"
	appErrors "github.com/noah-isme/rtms-schedule-api/pkg/errors"
)

type reschedulePatientStore interface {
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Patient, error)
	UpdateDischargeDate(ctx context.Context, exec sqlx.ExtContext, id string, discharge *time.Time) error
}

type rescheduleSessionStore interface {
	FindByID(ctx context.Context, id string) (*models.TreatmentSession, error)
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TreatmentSession, error)
	ListFuturePlanned(ctx context.Context, exec sqlx.ExtContext, patientID string, from time.Time) ([]models.TreatmentSession, error)
	ListOccupied(ctx context.Context, exec sqlx.ExtContext, patientID string, dates []time.Time) ([]models.TreatmentSession, error)
	ListByIDsForUpdate(ctx context.Context, exec sqlx.ExtContext, ids []string) ([]models.TreatmentSession, error)
	UpdateSchedule(ctx context.Context, exec sqlx.ExtContext, id string, date, performedAt time.Time, status models.SessionStatus) error
	SetStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.SessionStatus) error
	MarkDone(ctx context.Context, exec sqlx.ExtContext, id string, performedAt time.Time, st models.Stimulation) error
}

type skipStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, skip *models.TreatmentSkip) error
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TreatmentSkip, error)
	MarkUndone(ctx context.Context, exec sqlx.ExtContext, id string, userID *string, at time.Time) error
	ListByPatient(ctx context.Context, patientID string) ([]models.TreatmentSkip, error)
}

// RescheduleService skips sessions, shifts the remaining plan and reverts skips.
// Every operation runs in one transaction with the patient row locked.
type RescheduleService struct {
	patients  reschedulePatientStore
	sessions  rescheduleSessionStore
	skips     skipStore
	calendar  calendarSource
	tx        txProvider
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewRescheduleService constructs the service.
func NewRescheduleService(patients reschedulePatientStore, sessions rescheduleSessionStore, skips skipStore, calendar calendarSource, tx txProvider, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RescheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RescheduleService{
		patients:  patients,
		sessions:  sessions,
		skips:     skips,
		calendar:  calendar,
		tx:        tx,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// shiftOutcome is the result of shifting a patient's plan inside a transaction.
type shiftOutcome struct {
	plan         schedule.ShiftPlan
	before       map[string]models.TreatmentSession
	shifted      []dto.ShiftedSession
	oldDischarge *time.Time
	discharge    *time.Time
}

func (o shiftOutcome) dischargeMoved() bool {
	return !sameDate(o.oldDischarge, o.discharge)
}

func (s *RescheduleService) begin(ctx context.Context) (*sqlx.Tx, error) {
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	return tx, nil
}

func (s *RescheduleService) lockPatient(ctx context.Context, tx *sqlx.Tx, id string) (*models.Patient, error) {
	patient, err := s.patients.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock patient")
	}
	return patient, nil
}

// shift moves every planned session after from onto consecutive business days and
// carries the discharge date by the same delta as the last session.
func (s *RescheduleService) shift(ctx context.Context, tx *sqlx.Tx, patient *models.Patient, from time.Time) (*shiftOutcome, error) {
	out := &shiftOutcome{before: map[string]models.TreatmentSession{}, shifted: []dto.ShiftedSession{}}
	if patient.DischargeDate != nil {
		d := schedule.DateOf(*patient.DischargeDate, nil)
		out.oldDischarge = &d
		out.discharge = &d
	}

	future, err := s.sessions.ListFuturePlanned(ctx, tx, patient.ID, from)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load future sessions")
	}
	candidates := make([]schedule.ShiftCandidate, 0, len(future))
	for _, session := range future {
		session.SessionDate = schedule.DateOf(session.SessionDate, nil)
		out.before[session.ID] = session
		candidates = append(candidates, schedule.ShiftCandidate{ID: session.ID, SessionDate: session.SessionDate, Slot: session.Slot})
	}

	plan, err := s.calendar.Calendar(ctx).PlanShift(candidates, from, nil)
	if err != nil {
		s.logger.Error("reschedule ran out of business days", zap.String("patient_id", patient.ID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrScheduleExhausted.Code, appErrors.ErrScheduleExhausted.Status, "no business day available for a rescheduled session")
	}
	out.plan = plan
	if plan.Empty() {
		return out, nil
	}

	if err := s.checkCollisions(ctx, tx, patient, plan, out.before); err != nil {
		return nil, err
	}

	for _, move := range plan.WriteOrder() {
		days := move.Days()
		if days == 0 {
			continue
		}
		session := out.before[move.SessionID]
		performedAt := session.PerformedAt.AddDate(0, 0, days)
		if err := s.sessions.UpdateSchedule(ctx, tx, move.SessionID, move.NewDate, performedAt, models.SessionStatusPlanned); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, appErrors.Wrap(err, appErrors.ErrScheduleCollision.Code, appErrors.ErrScheduleCollision.Status, fmt.Sprintf("session %s cannot move to %s", move.SessionID, move.NewDate.Format(schedule.DateLayout)))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move session")
		}
	}
	for _, move := range plan.Moves {
		if move.Days() != 0 {
			out.shifted = append(out.shifted, dto.ShiftedSession{SessionID: move.SessionID, OldDate: move.OldDate, NewDate: move.NewDate})
		}
	}

	out.discharge = schedule.ShiftDischarge(out.oldDischarge, plan)
	if out.dischargeMoved() {
		if err := s.patients.UpdateDischargeDate(ctx, tx, patient.ID, out.discharge); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to shift discharge date")
		}
	}
	return out, nil
}

// checkCollisions fails when a move lands on a date and slot held by a done or skipped
// session of the same course.
func (s *RescheduleService) checkCollisions(ctx context.Context, tx *sqlx.Tx, patient *models.Patient, plan schedule.ShiftPlan, before map[string]models.TreatmentSession) error {
	targets := make([]time.Time, 0, len(plan.Moves))
	for _, move := range plan.Moves {
		if move.Days() != 0 {
			targets = append(targets, move.NewDate)
		}
	}
	if len(targets) == 0 {
		return nil
	}
	occupied, err := s.sessions.ListOccupied(ctx, tx, patient.ID, targets)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check session collisions")
	}
	for _, held := range occupied {
		heldDate := schedule.DateOf(held.SessionDate, nil)
		for _, move := range plan.Moves {
			moving := before[move.SessionID]
			if move.NewDate.Equal(heldDate) && moving.Slot == held.Slot && moving.CourseNumber == held.CourseNumber {
				return appErrors.Clone(appErrors.ErrScheduleCollision, fmt.Sprintf("session %s cannot move to %s: %s session %s holds the slot",
					move.SessionID, heldDate.Format(schedule.DateLayout), held.Status, held.ID))
			}
		}
	}
	return nil
}

// ShiftFutureSessions pushes every planned session after fromDate forward onto
// consecutive business days. Nothing after fromDate is a successful no-op.
func (s *RescheduleService) ShiftFutureSessions(ctx context.Context, patientID string, req dto.ShiftRequest) (result *dto.ShiftResult, err error) {
	ctx, span := scheduleTracer.Start(ctx, "reschedule.shift")
	defer func() {
		s.metrics.RecordScheduleOperation("shift", err)
		finishSpan(span, err)
	}()
	span.SetAttributes(attribute.String("rtms.patient_id", patientID), attribute.String("rtms.from_date", req.FromDate))

	if err = s.validator.Struct(req); err != nil {
		err = appErrors.Clone(appErrors.ErrValidation, err.Error())
		return nil, err
	}
	from, err := schedule.ParseDate(req.FromDate)
	if err != nil {
		err = appErrors.Clone(appErrors.ErrValidation, "invalid from date")
		return nil, err
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	patient, err := s.lockPatient(ctx, tx, patientID)
	if err != nil {
		return nil, err
	}
	outcome, err := s.shift(ctx, tx, patient, from)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit reschedule")
		return nil, err
	}

	s.metrics.RecordShift(len(outcome.shifted), outcome.dischargeMoved())
	span.SetAttributes(attribute.Int("rtms.shifted", len(outcome.shifted)), attribute.Int("rtms.delta_days", outcome.plan.Delta()))
	s.logger.Info("future sessions shifted",
		zap.String("patient_id", patientID),
		zap.String("from_date", req.FromDate),
		zap.Int("shifted", len(outcome.shifted)),
		zap.Int("delta_days", outcome.plan.Delta()),
	)
	return &dto.ShiftResult{
		PatientID:          patientID,
		FromDate:           from,
		Shifted:            outcome.shifted,
		DeltaDays:          outcome.plan.Delta(),
		OldDischargeDate:   outcome.oldDischarge,
		DischargeDate:      outcome.discharge,
		DischargeDateMoved: outcome.dischargeMoved(),
	}, nil
}

// Skip marks a planned session as skipped, shifts the rest of the plan and stores a
// snapshot that Undo restores from.
func (s *RescheduleService) Skip(ctx context.Context, sessionID string, req dto.SkipRequest, userID string) (result *dto.SkipResult, err error) {
	ctx, span := scheduleTracer.Start(ctx, "reschedule.skip")
	defer func() {
		s.metrics.RecordScheduleOperation("skip", err)
		finishSpan(span, err)
	}()
	span.SetAttributes(attribute.String("rtms.session_id", sessionID))

	if err = s.validator.Struct(req); err != nil {
		err = appErrors.Clone(appErrors.ErrValidation, err.Error())
		return nil, err
	}
	probe, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "session not found")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
		return nil, err
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	patient, err := s.lockPatient(ctx, tx, probe.PatientID)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.FindByIDForUpdate(ctx, tx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "session not found")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock session")
		return nil, err
	}
	if session.Status != models.SessionStatusPlanned {
		err = appErrors.Clone(appErrors.ErrSessionNotPlanned, fmt.Sprintf("session is %s", session.Status))
		return nil, err
	}
	from := schedule.DateOf(session.SessionDate, nil)

	if err = s.sessions.SetStatus(ctx, tx, session.ID, models.SessionStatusSkipped); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark session skipped")
		return nil, err
	}
	outcome, err := s.shift(ctx, tx, patient, from)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(buildSnapshot(from, *session, outcome))
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode skip snapshot")
		return nil, err
	}
	skip := &models.TreatmentSkip{
		SessionID: session.ID,
		PatientID: patient.ID,
		Reason:    req.Reason,
		Snapshot:  types.JSONText(raw),
		CreatedBy: optionalUser(userID),
		CreatedAt: s.now().UTC(),
	}
	if err = s.skips.Create(ctx, tx, skip); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record skip")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit skip")
		return nil, err
	}

	s.metrics.RecordShift(len(outcome.shifted), outcome.dischargeMoved())
	span.SetAttributes(attribute.String("rtms.skip_id", skip.ID), attribute.Int("rtms.shifted", len(outcome.shifted)))
	s.logger.Info("session skipped",
		zap.String("skip_id", skip.ID),
		zap.String("session_id", session.ID),
		zap.String("patient_id", patient.ID),
		zap.Int("shifted", len(outcome.shifted)),
		zap.Int("delta_days", outcome.plan.Delta()),
	)
	return &dto.SkipResult{Skip: *skip, Shifted: outcome.shifted, DischargeDate: outcome.discharge}, nil
}

func buildSnapshot(from time.Time, skipped models.TreatmentSession, outcome *shiftOutcome) models.SkipSnapshot {
	snapshot := models.SkipSnapshot{
		FromDate: from.Format(schedule.DateLayout),
		Sessions: []models.SkipSnapshotSession{{
			SessionID:   skipped.ID,
			SessionDate: from.Format(schedule.DateLayout),
			NewDate:     from.Format(schedule.DateLayout),
			PerformedAt: skipped.PerformedAt.UTC(),
			Status:      skipped.Status,
		}},
	}
	if outcome.oldDischarge != nil {
		d := outcome.oldDischarge.Format(schedule.DateLayout)
		snapshot.DischargeDate = &d
	}
	if outcome.discharge != nil {
		d := outcome.discharge.Format(schedule.DateLayout)
		snapshot.ShiftedDischargeDate = &d
	}
	for _, moved := range outcome.shifted {
		before := outcome.before[moved.SessionID]
		snapshot.Sessions = append(snapshot.Sessions, models.SkipSnapshotSession{
			SessionID:   before.ID,
			SessionDate: before.SessionDate.Format(schedule.DateLayout),
			NewDate:     moved.NewDate.Format(schedule.DateLayout),
			PerformedAt: before.PerformedAt.UTC(),
			Status:      before.Status,
		})
	}
	return snapshot
}

// Undo restores the sessions and discharge date recorded by a skip. A skip is undone
// at most once and the record is kept. Anything a later skip moved since must be
// undone first, so skips are reverted newest first.
func (s *RescheduleService) Undo(ctx context.Context, skipID, userID string) (result *dto.UndoResult, err error) {
	ctx, span := scheduleTracer.Start(ctx, "reschedule.undo")
	defer func() {
		s.metrics.RecordScheduleOperation("undo", err)
		finishSpan(span, err)
	}()
	span.SetAttributes(attribute.String("rtms.skip_id", skipID))

	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	skip, err := s.skips.FindByIDForUpdate(ctx, tx, skipID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "skip not found")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock skip")
		return nil, err
	}
	if skip.Undone() {
		err = appErrors.Clone(appErrors.ErrSkipAlreadyUndone, "skip was already undone")
		return nil, err
	}
	patient, err := s.lockPatient(ctx, tx, skip.PatientID)
	if err != nil {
		return nil, err
	}

	var snapshot models.SkipSnapshot
	if err = json.Unmarshal(skip.Snapshot, &snapshot); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "skip snapshot is unreadable")
		return nil, err
	}
	if snapshot.ShiftedDischargeDate != nil {
		current := "unset"
		if patient.DischargeDate != nil {
			current = schedule.DateOf(*patient.DischargeDate, nil).Format(schedule.DateLayout)
		}
		if current != *snapshot.ShiftedDischargeDate {
			err = appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("discharge date is %s, not %s as this skip left it; undo the later skip first", current, *snapshot.ShiftedDischargeDate))
			return nil, err
		}
	}
	restored, err := s.restoreSessions(ctx, tx, skip, snapshot)
	if err != nil {
		return nil, err
	}

	var discharge *time.Time
	if snapshot.DischargeDate != nil {
		d, parseErr := schedule.ParseDate(*snapshot.DischargeDate)
		if parseErr != nil {
			err = appErrors.Wrap(parseErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "skip snapshot has an invalid discharge date")
			return nil, err
		}
		discharge = &d
	}
	if !sameDate(patient.DischargeDate, discharge) {
		if err = s.patients.UpdateDischargeDate(ctx, tx, patient.ID, discharge); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore discharge date")
			return nil, err
		}
	}

	at := s.now().UTC()
	undoneBy := optionalUser(userID)
	if err = s.skips.MarkUndone(ctx, tx, skip.ID, undoneBy, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrSkipAlreadyUndone, "skip was already undone")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark skip undone")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit undo")
		return nil, err
	}

	skip.UndoneAt = &at
	skip.UndoneBy = undoneBy
	s.logger.Info("skip undone",
		zap.String("skip_id", skip.ID),
		zap.String("patient_id", patient.ID),
		zap.Int("restored", len(restored)),
	)
	return &dto.UndoResult{Skip: *skip, Restored: restored, DischargeDate: discharge}, nil
}

func (s *RescheduleService) restoreSessions(ctx context.Context, tx *sqlx.Tx, skip *models.TreatmentSkip, snapshot models.SkipSnapshot) ([]dto.ShiftedSession, error) {
	entries := append([]models.SkipSnapshotSession(nil), snapshot.Sessions...)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].SessionDate < entries[j].SessionDate })

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.SessionID)
	}
	current, err := s.sessions.ListByIDsForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock sessions")
	}
	byID := make(map[string]models.TreatmentSession, len(current))
	for _, session := range current {
		byID[session.ID] = session
	}

	for _, entry := range entries {
		session, ok := byID[entry.SessionID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("session %s no longer exists", entry.SessionID))
		}
		if session.Status == models.SessionStatusDone {
			return nil, appErrors.Clone(appErrors.ErrSessionCompleted, fmt.Sprintf("session %s on %s is already done", session.ID, schedule.DateOf(session.SessionDate, nil).Format(schedule.DateLayout)))
		}
		if session.Status == models.SessionStatusSkipped && session.ID != skip.SessionID {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("session %s was skipped later; undo that skip first", session.ID))
		}
		if current := schedule.DateOf(session.SessionDate, nil).Format(schedule.DateLayout); entry.NewDate != "" && current != entry.NewDate {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("session %s was moved from %s to %s by a later skip; undo the later skip first", session.ID, entry.NewDate, current))
		}
	}

	restored := make([]dto.ShiftedSession, 0, len(entries))
	for _, entry := range entries {
		date, err := schedule.ParseDate(entry.SessionDate)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "skip snapshot has an invalid session date")
		}
		if err := s.sessions.UpdateSchedule(ctx, tx, entry.SessionID, date, entry.PerformedAt, entry.Status); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, appErrors.Wrap(err, appErrors.ErrScheduleCollision.Code, appErrors.ErrScheduleCollision.Status, fmt.Sprintf("session %s cannot return to %s", entry.SessionID, entry.SessionDate))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore session")
		}
		restored = append(restored, dto.ShiftedSession{
			SessionID: entry.SessionID,
			OldDate:   schedule.DateOf(byID[entry.SessionID].SessionDate, nil),
			NewDate:   date,
		})
	}
	return restored, nil
}

// MarkDone completes a planned session with the stimulation delivered. PerformedAt
// defaults to the planned timestamp.
func (s *RescheduleService) MarkDone(ctx context.Context, sessionID string, req dto.MarkDoneRequest) (session *models.TreatmentSession, err error) {
	ctx, span := scheduleTracer.Start(ctx, "reschedule.done")
	defer func() {
		s.metrics.RecordScheduleOperation("done", err)
		finishSpan(span, err)
	}()
	span.SetAttributes(attribute.String("rtms.session_id", sessionID))

	if err = s.validator.Struct(req); err != nil {
		err = appErrors.Clone(appErrors.ErrValidation, err.Error())
		return nil, err
	}
	session, err = s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "session not found")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
		return nil, err
	}
	if session.Status != models.SessionStatusPlanned {
		err = appErrors.Clone(appErrors.ErrSessionNotPlanned, fmt.Sprintf("session is %s", session.Status))
		return nil, err
	}
	performedAt := session.PerformedAt
	if req.PerformedAt != nil {
		performedAt = req.PerformedAt.UTC()
	}
	st, err := stimulationOf(req)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode side effects")
		return nil, err
	}
	if err = s.sessions.MarkDone(ctx, nil, sessionID, performedAt, st); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrSessionNotPlanned, "session is no longer planned")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete session")
		return nil, err
	}
	session.Status = models.SessionStatusDone
	session.PerformedAt = performedAt
	st.Apply(session)
	return session, nil
}

// stimulationOf maps a completion request onto stored values. The pulse total is derived
// from frequency, train length and train count when it is not given.
func stimulationOf(req dto.MarkDoneRequest) (models.Stimulation, error) {
	st := models.Stimulation{
		MTPercent:         req.MTPercent,
		IntensityPercent:  req.IntensityPercent,
		FrequencyHz:       req.FrequencyHz,
		TrainSeconds:      req.TrainSeconds,
		IntertrainSeconds: req.IntertrainSeconds,
		TrainCount:        req.TrainCount,
		TotalPulses:       req.TotalPulses,
	}
	if st.TotalPulses == nil && st.FrequencyHz != nil && st.TrainSeconds != nil && st.TrainCount != nil {
		pulses := int(math.Round(*st.FrequencyHz * *st.TrainSeconds * float64(*st.TrainCount)))
		st.TotalPulses = &pulses
	}
	if req.SideEffects == nil && req.SideEffectNote == "" {
		return st, nil
	}
	effects := make(map[string]interface{}, len(req.SideEffects)+1)
	for symptom, score := range req.SideEffects {
		if score > 0 {
			effects[symptom] = score
		}
	}
	if req.SideEffectNote != "" {
		effects["note"] = req.SideEffectNote
	}
	raw, err := json.Marshal(effects)
	if err != nil {
		return st, err
	}
	st.SideEffects = types.JSONText(raw)
	return st, nil
}

// ListSkips returns the skip history of a patient.
func (s *RescheduleService) ListSkips(ctx context.Context, patientID string) ([]models.TreatmentSkip, error) {
	skips, err := s.skips.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list skips")
	}
	return skips, nil
}

func optionalUser(userID string) *string {
	if userID == "" {
		return nil
	}
	return &userID
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return schedule.DateOf(*a, nil).Equal(schedule.DateOf(*b, nil))
}
