package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rtms-schedule-api/internal/dto"
	"github.com/noah-isme/rtms-schedule-api/internal/models"
	"github.com/noah-isme/rtms-schedule-api/internal/repository"
	appErrors "github.com/noah-isme/rtms-schedule-api/pkg/errors"
)

type adverseEventStoreStub struct {
	events []models.SeriousAdverseEvent
	err    error
}

func (s *adverseEventStoreStub) Create(ctx context.Context, event *models.SeriousAdverseEvent) error {
	if s.err != nil {
		return s.err
	}
	for _, existing := range s.events {
		if existing.PatientID == event.PatientID && existing.CourseNumber == event.CourseNumber && existing.SessionID == event.SessionID {
			return fmt.Errorf("adverse event for session %s: %w", event.SessionID, repository.ErrDuplicate)
		}
	}
	event.ID = fmt.Sprintf("ae-%d", len(s.events)+1)
	s.events = append(s.events, *event)
	return nil
}

func (s *adverseEventStoreStub) ListByPatient(ctx context.Context, patientID string, course int) ([]models.SeriousAdverseEvent, error) {
	out := make([]models.SeriousAdverseEvent, 0)
	for _, e := range s.events {
		if e.PatientID == patientID && (course == 0 || e.CourseNumber == course) {
			out = append(out, e)
		}
	}
	return out, nil
}

func newAdverseEventFixture(sessions ...models.TreatmentSession) (*AdverseEventService, *adverseEventStoreStub, *MetricsService) {
	store := &adverseEventStoreStub{}
	metrics := NewMetricsService()
	patients := assessmentPatientStub{patient: &models.Patient{ID: "p1", CourseNumber: 1, ProtocolType: models.ProtocolPMS}}
	return NewAdverseEventService(store, newMemorySessions(sessions...), patients, metrics, nil, nil), store, metrics
}

func TestAdverseEventReportSnapshotsSession(t *testing.T) {
	done := planned("s1", day(2026, 1, 12))
	done.Status = models.SessionStatusDone
	done.MTPercent = intPtr(54)
	done.IntensityPercent = intPtr(120)
	done.TotalPulses = intPtr(1980)
	svc, store, metrics := newAdverseEventFixture(done)

	event, err := svc.Report(context.Background(), "s1", dto.AdverseEventRequest{
		EventTypes: []models.AdverseEventType{models.AdverseEventSeizure, models.AdverseEventSeizure},
	}, "doctor-1")
	require.NoError(t, err)

	assert.Equal(t, "ae-1", event.ID)
	assert.Equal(t, "p1", event.PatientID)
	assert.Equal(t, 1, event.CourseNumber)
	assert.Equal(t, day(2026, 1, 12), event.EventDate)
	assert.Equal(t, []string{"seizure"}, []string(event.EventTypes))
	require.NotNil(t, event.ReportedBy)
	assert.Equal(t, "doctor-1", *event.ReportedBy)
	require.Len(t, store.events, 1)

	var snapshot models.AdverseEventSnapshot
	require.NoError(t, json.Unmarshal(event.Snapshot, &snapshot))
	assert.Equal(t, "2026-01-12", snapshot.SessionDate)
	assert.Equal(t, models.ProtocolPMS, snapshot.ProtocolType)
	assert.Equal(t, 120, *snapshot.IntensityPercent)
	assert.Equal(t, 1980, *snapshot.TotalPulses)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.adverseEvents.WithLabelValues("seizure")))
}

func TestAdverseEventReportOncePerSession(t *testing.T) {
	svc, _, _ := newAdverseEventFixture(planned("s1", day(2026, 1, 12)))
	req := dto.AdverseEventRequest{EventTypes: []models.AdverseEventType{models.AdverseEventSyncope}, EventDate: "2026-01-13"}

	event, err := svc.Report(context.Background(), "s1", req, "")
	require.NoError(t, err)
	assert.Equal(t, day(2026, 1, 13), event.EventDate)
	assert.Nil(t, event.ReportedBy)

	_, err = svc.Report(context.Background(), "s1", req, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, errCode(err))
}

func TestAdverseEventReportValidation(t *testing.T) {
	skipped := planned("s2", day(2026, 1, 13))
	skipped.Status = models.SessionStatusSkipped
	svc, store, _ := newAdverseEventFixture(planned("s1", day(2026, 1, 12)), skipped)

	cases := []struct {
		name      string
		sessionID string
		req       dto.AdverseEventRequest
		code      string
	}{
		{"no event types", "s1", dto.AdverseEventRequest{}, appErrors.ErrValidation.Code},
		{"unknown event type", "s1", dto.AdverseEventRequest{EventTypes: []models.AdverseEventType{"headache"}}, appErrors.ErrValidation.Code},
		{"other without text", "s1", dto.AdverseEventRequest{EventTypes: []models.AdverseEventType{models.AdverseEventOther}}, appErrors.ErrValidation.Code},
		{"bad event date", "s1", dto.AdverseEventRequest{EventTypes: []models.AdverseEventType{models.AdverseEventMania}, EventDate: "13/01/2026"}, appErrors.ErrValidation.Code},
		{"unknown session", "missing", dto.AdverseEventRequest{EventTypes: []models.AdverseEventType{models.AdverseEventMania}}, appErrors.ErrNotFound.Code},
		{"skipped session", "s2", dto.AdverseEventRequest{EventTypes: []models.AdverseEventType{models.AdverseEventMania}}, appErrors.ErrConflict.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Report(context.Background(), tc.sessionID, tc.req, "")
			require.Error(t, err)
			assert.Equal(t, tc.code, errCode(err))
		})
	}
	assert.Empty(t, store.events)
}

func TestAdverseEventList(t *testing.T) {
	svc, store, _ := newAdverseEventFixture()
	store.events = []models.SeriousAdverseEvent{
		{ID: "ae-1", PatientID: "p1", CourseNumber: 1},
		{ID: "ae-2", PatientID: "p1", CourseNumber: 2},
	}

	events, err := svc.List(context.Background(), "p1", 2)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ae-2", events[0].ID)

	_, err = svc.List(context.Background(), "nobody", 0)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(err))
}
