package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rtms-schedule-api/internal/dto"
	"github.com/noah-isme/rtms-schedule-api/internal/middleware"
	"github.com/noah-isme/rtms-schedule-api/internal/models"
	"github.com/noah-isme/rtms-schedule-api/internal/service"
	appErrors "github.com/noah-isme/rtms-schedule-api/pkg/errors"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func newContext(method, target string, body []byte, params ...gin.Param) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	if body != nil {
		c.Request = httptest.NewRequest(method, target, bytes.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
	} else {
		c.Request = httptest.NewRequest(method, target, nil)
	}
	c.Params = params
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

type fakePlanSrv struct {
	previewReq  dto.PlanRequest
	generateErr error
	lookupDate  string
}

func (f *fakePlanSrv) Preview(_ context.Context, patientID string, req dto.PlanRequest) (*dto.PlanPreview, error) {
	f.previewReq = req
	return &dto.PlanPreview{PatientID: patientID, Requested: req.TotalSessions}, nil
}

func (f *fakePlanSrv) Generate(_ context.Context, patientID string, _ dto.PlanRequest) ([]models.TreatmentSession, error) {
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return []models.TreatmentSession{{ID: "s1", PatientID: patientID}}, nil
}

func (f *fakePlanSrv) SessionInfo(_ context.Context, _ string, rawDate string) (*dto.SessionLookup, error) {
	f.lookupDate = rawDate
	return &dto.SessionLookup{Found: true, SessionNo: 3, WeekNo: 1}, nil
}

func (f *fakePlanSrv) ListSessions(context.Context, string) ([]models.TreatmentSession, error) {
	return nil, nil
}

func TestPlanHandlerPreviewBindsQuery(t *testing.T) {
	srv := &fakePlanSrv{}
	handler := NewPlanHandler(srv)
	c, rec := newContext(http.MethodGet, "/patients/p1/plan/preview?startDate=2025-01-06&totalSessions=30", nil, gin.Param{Key: "id", Value: "p1"})

	handler.Preview(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-01-06", srv.previewReq.StartDate)
	assert.Equal(t, 30, srv.previewReq.TotalSessions)
	var preview dto.PlanPreview
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &preview))
	assert.Equal(t, "p1", preview.PatientID)
}

func TestPlanHandlerGenerateMapsScheduleExhausted(t *testing.T) {
	handler := NewPlanHandler(&fakePlanSrv{generateErr: appErrors.ErrScheduleExhausted})
	c, rec := newContext(http.MethodPost, "/patients/p1/plan", []byte(`{"startDate":"2025-01-06"}`), gin.Param{Key: "id", Value: "p1"})

	handler.Generate(c)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "SCHEDULE_EXHAUSTED", decode(t, rec).Error.Code)
}

func TestPlanHandlerGenerateRejectsMalformedBody(t *testing.T) {
	handler := NewPlanHandler(&fakePlanSrv{})
	c, rec := newContext(http.MethodPost, "/patients/p1/plan", []byte(`{`), gin.Param{Key: "id", Value: "p1"})

	handler.Generate(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlanHandlerLookupRequiresDate(t *testing.T) {
	srv := &fakePlanSrv{}
	handler := NewPlanHandler(srv)
	c, rec := newContext(http.MethodGet, "/patients/p1/sessions/lookup", nil, gin.Param{Key: "id", Value: "p1"})

	handler.Lookup(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newContext(http.MethodGet, "/patients/p1/sessions/lookup?date=2025-01-08", nil, gin.Param{Key: "id", Value: "p1"})
	handler.Lookup(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-01-08", srv.lookupDate)
}

type fakeRescheduleSrv struct {
	skipUser   string
	skipReason string
	undoErr    error
	doneReq    dto.MarkDoneRequest
}

func (f *fakeRescheduleSrv) Skip(_ context.Context, sessionID string, req dto.SkipRequest, userID string) (*dto.SkipResult, error) {
	f.skipUser = userID
	f.skipReason = req.Reason
	return &dto.SkipResult{Skip: models.TreatmentSkip{ID: "skip-1", SessionID: sessionID}}, nil
}

func (f *fakeRescheduleSrv) Undo(context.Context, string, string) (*dto.UndoResult, error) {
	if f.undoErr != nil {
		return nil, f.undoErr
	}
	return &dto.UndoResult{}, nil
}

func (f *fakeRescheduleSrv) ShiftFutureSessions(_ context.Context, patientID string, _ dto.ShiftRequest) (*dto.ShiftResult, error) {
	return &dto.ShiftResult{PatientID: patientID, DeltaDays: 1}, nil
}

func (f *fakeRescheduleSrv) MarkDone(_ context.Context, sessionID string, req dto.MarkDoneRequest) (*models.TreatmentSession, error) {
	f.doneReq = req
	return &models.TreatmentSession{ID: sessionID, Status: models.SessionStatusDone}, nil
}

func (f *fakeRescheduleSrv) ListSkips(context.Context, string) ([]models.TreatmentSkip, error) {
	return []models.TreatmentSkip{{ID: "skip-1"}}, nil
}

func TestSessionHandlerSkipPassesActor(t *testing.T) {
	srv := &fakeRescheduleSrv{}
	handler := NewSessionHandler(srv)
	c, rec := newContext(http.MethodPost, "/sessions/s1/skip", []byte(`{"reason":"fever"}`), gin.Param{Key: "id", Value: "s1"})
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "nurse-1"})

	handler.Skip(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nurse-1", srv.skipUser)
	assert.Equal(t, "fever", srv.skipReason)
}

func TestSessionHandlerSkipWithoutBody(t *testing.T) {
	srv := &fakeRescheduleSrv{}
	handler := NewSessionHandler(srv)
	c, rec := newContext(http.MethodPost, "/sessions/s1/skip", nil, gin.Param{Key: "id", Value: "s1"})

	handler.Skip(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, srv.skipUser)
}

func TestSessionHandlerUndoAlreadyUndone(t *testing.T) {
	handler := NewSessionHandler(&fakeRescheduleSrv{undoErr: appErrors.ErrSkipAlreadyUndone})
	c, rec := newContext(http.MethodPost, "/skips/skip-1/undo", nil, gin.Param{Key: "id", Value: "skip-1"})

	handler.Undo(c)

	assert.Equal(t, appErrors.ErrSkipAlreadyUndone.Status, rec.Code)
	assert.Equal(t, "SKIP_ALREADY_UNDONE", decode(t, rec).Error.Code)
}

func TestSessionHandlerDoneBindsPerformedAt(t *testing.T) {
	srv := &fakeRescheduleSrv{}
	handler := NewSessionHandler(srv)
	c, rec := newContext(http.MethodPost, "/sessions/s1/done", []byte(`{"performedAt":"2025-01-06T01:30:00Z","mtPercent":120}`), gin.Param{Key: "id", Value: "s1"})

	handler.Done(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.doneReq.PerformedAt)
	assert.True(t, srv.doneReq.PerformedAt.Equal(time.Date(2025, 1, 6, 1, 30, 0, 0, time.UTC)))
	assert.Equal(t, 120, *srv.doneReq.MTPercent)
}

func TestSessionHandlerDoneBindsStimulation(t *testing.T) {
	srv := &fakeRescheduleSrv{}
	handler := NewSessionHandler(srv)
	body := []byte(`{"intensityPercent":120,"frequencyHz":18,"trainSeconds":2,"trainCount":55,"sideEffects":{"headache":1},"sideEffectNote":"mild"}`)
	c, rec := newContext(http.MethodPost, "/sessions/s1/done", body, gin.Param{Key: "id", Value: "s1"})

	handler.Done(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.doneReq.IntensityPercent)
	assert.Equal(t, 120, *srv.doneReq.IntensityPercent)
	assert.Equal(t, 18.0, *srv.doneReq.FrequencyHz)
	assert.Equal(t, 55, *srv.doneReq.TrainCount)
	assert.Equal(t, map[string]int{"headache": 1}, srv.doneReq.SideEffects)
	assert.Equal(t, "mild", srv.doneReq.SideEffectNote)
}

type fakeAdverseEventSrv struct {
	sessionID string
	userID    string
	req       dto.AdverseEventRequest
	course    int
	err       error
}

func (f *fakeAdverseEventSrv) Report(_ context.Context, sessionID string, req dto.AdverseEventRequest, userID string) (*models.SeriousAdverseEvent, error) {
	f.sessionID, f.req, f.userID = sessionID, req, userID
	if f.err != nil {
		return nil, f.err
	}
	return &models.SeriousAdverseEvent{ID: "ae-1", SessionID: sessionID}, nil
}

func (f *fakeAdverseEventSrv) List(_ context.Context, patientID string, course int) ([]models.SeriousAdverseEvent, error) {
	f.course = course
	return []models.SeriousAdverseEvent{{ID: "ae-1", PatientID: patientID}}, nil
}

func TestAdverseEventHandlerReport(t *testing.T) {
	srv := &fakeAdverseEventSrv{}
	handler := NewAdverseEventHandler(srv)
	c, rec := newContext(http.MethodPost, "/sessions/s1/adverse-events", []byte(`{"eventTypes":["seizure","other"],"otherText":"brief"}`), gin.Param{Key: "id", Value: "s1"})
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "doctor-1"})

	handler.Report(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "s1", srv.sessionID)
	assert.Equal(t, "doctor-1", srv.userID)
	assert.Equal(t, []models.AdverseEventType{models.AdverseEventSeizure, models.AdverseEventOther}, srv.req.EventTypes)
	assert.Equal(t, "brief", srv.req.OtherText)

	var event models.SeriousAdverseEvent
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &event))
	assert.Equal(t, "ae-1", event.ID)
}

func TestAdverseEventHandlerReportDuplicate(t *testing.T) {
	handler := NewAdverseEventHandler(&fakeAdverseEventSrv{err: appErrors.Clone(appErrors.ErrConflict, "an adverse event is already reported for session s1")})
	c, rec := newContext(http.MethodPost, "/sessions/s1/adverse-events", []byte(`{"eventTypes":["syncope"]}`), gin.Param{Key: "id", Value: "s1"})

	handler.Report(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, appErrors.ErrConflict.Code, decode(t, rec).Error.Code)
}

func TestAdverseEventHandlerReportRejectsMalformedBody(t *testing.T) {
	srv := &fakeAdverseEventSrv{}
	handler := NewAdverseEventHandler(srv)
	c, rec := newContext(http.MethodPost, "/sessions/s1/adverse-events", []byte(`{"eventTypes":"seizure"}`), gin.Param{Key: "id", Value: "s1"})

	handler.Report(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, srv.sessionID)
}

func TestAdverseEventHandlerListBindsCourse(t *testing.T) {
	srv := &fakeAdverseEventSrv{}
	handler := NewAdverseEventHandler(srv)
	c, rec := newContext(http.MethodGet, "/patients/p1/adverse-events?course=2", nil, gin.Param{Key: "id", Value: "p1"})

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, srv.course)
}

func TestSessionHandlerRescheduleRequiresBody(t *testing.T) {
	handler := NewSessionHandler(&fakeRescheduleSrv{})
	c, rec := newContext(http.MethodPost, "/patients/p1/reschedule", []byte(`not-json`), gin.Param{Key: "id", Value: "p1"})

	handler.Reschedule(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, rec).Error.Code)
}

type fakeTaskSrv struct {
	date string
}

func (f *fakeTaskSrv) PatientTasks(_ context.Context, patientID, rawDate string) (*dto.PatientTasks, error) {
	f.date = rawDate
	return &dto.PatientTasks{PatientID: patientID}, nil
}

func (f *fakeTaskSrv) PatientDashboard(_ context.Context, patientID, rawDate string) (*dto.PatientTasks, error) {
	f.date = rawDate
	return &dto.PatientTasks{PatientID: patientID}, nil
}

func (f *fakeTaskSrv) Dashboard(_ context.Context, rawDate string) (*dto.DashboardTasks, error) {
	f.date = rawDate
	return &dto.DashboardTasks{Total: 4}, nil
}

func TestTaskHandlerDashboardReportsTotal(t *testing.T) {
	srv := &fakeTaskSrv{}
	handler := NewTaskHandler(srv)
	c, rec := newContext(http.MethodGet, "/dashboard/tasks?date=2025-01-08", nil)

	handler.Dashboard(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-01-08", srv.date)
	assert.EqualValues(t, 4, decode(t, rec).Meta["total"])
}

func TestTaskHandlerPatientTasksDefaultsDate(t *testing.T) {
	srv := &fakeTaskSrv{date: "unset"}
	handler := NewTaskHandler(srv)
	c, rec := newContext(http.MethodGet, "/patients/p1/tasks", nil, gin.Param{Key: "id", Value: "p1"})

	handler.PatientTasks(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, srv.date)
}

type fakeHolidaySrv struct {
	deleted string
	saveErr error
}

func (f *fakeHolidaySrv) List(context.Context, dto.HolidayQuery) ([]models.ClinicHoliday, error) {
	return []models.ClinicHoliday{{Name: "New Year"}}, nil
}

func (f *fakeHolidaySrv) Save(_ context.Context, req dto.HolidayRequest) (*models.ClinicHoliday, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	return &models.ClinicHoliday{Name: req.Name}, nil
}

func (f *fakeHolidaySrv) Delete(_ context.Context, rawDate string) error {
	f.deleted = rawDate
	return nil
}

func TestHolidayHandlerDelete(t *testing.T) {
	srv := &fakeHolidaySrv{}
	handler := NewHolidayHandler(srv)
	c, rec := newContext(http.MethodDelete, "/holidays/2025-01-01", nil, gin.Param{Key: "date", Value: "2025-01-01"})

	handler.Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "2025-01-01", srv.deleted)
}

func TestHolidayHandlerSaveValidationError(t *testing.T) {
	handler := NewHolidayHandler(&fakeHolidaySrv{saveErr: appErrors.Clone(appErrors.ErrValidation, "invalid holiday")})
	c, rec := newContext(http.MethodPost, "/holidays", []byte(`{"date":"bad","name":"x"}`))

	handler.Save(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeAuthSrv struct {
	req models.LoginRequest
}

func (f *fakeAuthSrv) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.req = req
	if req.Password != "secret-pass" {
		return nil, appErrors.ErrInvalidCredentials
	}
	return &models.LoginResponse{AccessToken: "token"}, nil
}

func (f *fakeAuthSrv) CreateUser(_ context.Context, req service.CreateUserRequest) (*models.User, error) {
	if req.Email == "taken@clinic.test" {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}
	return &models.User{ID: "u2", Email: req.Email, Role: req.Role}, nil
}

func TestAuthHandlerCreateUser(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{})
	c, rec := newContext(http.MethodPost, "/users", []byte(`{"email":"nurse@clinic.test","password":"longenough","fullName":"Nurse","role":"NURSE"}`))

	handler.CreateUser(c)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	c, rec = newContext(http.MethodPost, "/users", []byte(`{"email":"taken@clinic.test","password":"longenough","fullName":"Nurse","role":"NURSE"}`))
	handler.CreateUser(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthHandlerLogin(t *testing.T) {
	srv := &fakeAuthSrv{}
	handler := NewAuthHandler(srv)
	c, rec := newContext(http.MethodPost, "/auth/login", []byte(`{"email":"doc@clinic.test","password":"secret-pass"}`))
	c.Request.Header.Set("User-Agent", "handler-test")

	handler.Login(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "handler-test", srv.req.UserAgent)

	c, rec = newContext(http.MethodPost, "/auth/login", []byte(`{"email":"doc@clinic.test","password":"nope"}`))
	handler.Login(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerMeRequiresClaims(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{})
	c, rec := newContext(http.MethodGet, "/auth/me", nil)

	handler.Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newContext(http.MethodGet, "/auth/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleDoctor})
	handler.Me(c)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	handler := NewMetricsHandler(nil, map[string]Pinger{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	c, rec := newContext(http.MethodGet, "/ready", nil)

	handler.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")

	handler = NewMetricsHandler(nil, nil)
	c, rec = newContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type fakePatientSrv struct {
	query dto.PatientQuery
}

func (f *fakePatientSrv) Create(_ context.Context, req dto.CreatePatientRequest) (*models.Patient, error) {
	return &models.Patient{ID: "p1", CardID: req.CardID}, nil
}

func (f *fakePatientSrv) Get(context.Context, string) (*models.Patient, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
}

func (f *fakePatientSrv) List(_ context.Context, query dto.PatientQuery) ([]models.Patient, *models.Pagination, error) {
	f.query = query
	return []models.Patient{{ID: "p1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (f *fakePatientSrv) UpdateSchedule(_ context.Context, id string, _ dto.UpdateScheduleRequest) (*models.Patient, error) {
	return &models.Patient{ID: id}, nil
}

func TestPatientHandlerListBindsFilters(t *testing.T) {
	srv := &fakePatientSrv{}
	handler := NewPatientHandler(srv)
	c, rec := newContext(http.MethodGet, "/patients?search=K-01&active=true&page=2", nil)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "K-01", srv.query.Search)
	require.NotNil(t, srv.query.Active)
	assert.True(t, *srv.query.Active)
	assert.Equal(t, 2, srv.query.Page)
	assert.Contains(t, rec.Body.String(), `"pagination"`)
}

func TestPatientHandlerGetNotFound(t *testing.T) {
	handler := NewPatientHandler(&fakePatientSrv{})
	c, rec := newContext(http.MethodGet, "/patients/missing", nil, gin.Param{Key: "id", Value: "missing"})

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatientHandlerCreate(t *testing.T) {
	handler := NewPatientHandler(&fakePatientSrv{})
	c, rec := newContext(http.MethodPost, "/patients", []byte(`{"cardId":"K-01","name":"Sato"}`))

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

type fakeAssessmentSrv struct{}

func (fakeAssessmentSrv) Record(_ context.Context, patientID string, req dto.CreateAssessmentRequest) (*models.Assessment, error) {
	return &models.Assessment{PatientID: patientID, Timing: req.Timing}, nil
}

func (fakeAssessmentSrv) RecordMapping(_ context.Context, patientID string, _ dto.CreateMappingRequest) (*models.MappingSession, error) {
	return &models.MappingSession{PatientID: patientID}, nil
}

func (fakeAssessmentSrv) Summary(_ context.Context, patientID string) (*dto.AssessmentSummary, error) {
	return &dto.AssessmentSummary{PatientID: patientID, CourseNumber: 1}, nil
}

func TestAssessmentHandlerCreate(t *testing.T) {
	handler := NewAssessmentHandler(fakeAssessmentSrv{})
	c, rec := newContext(http.MethodPost, "/patients/p1/assessments", []byte(`{"timing":"baseline","date":"2025-01-06","totalScore17":20}`), gin.Param{Key: "id", Value: "p1"})

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"baseline"`)
}
