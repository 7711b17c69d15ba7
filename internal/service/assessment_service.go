package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/rtms-schedule-api/internal/dto"
	"github.com/noah-isme/rtms-schedule-api/internal/hamd"
	"github.com/noah-isme/rtms-schedule-api/internal/models"
	"github.com/noah-isme/rtms-schedule-api/internal/schedule"
	appErrors "github.com/noah-isme/rtms-schedule-api/pkg/errors"
)

type assessmentPatientReader interface {
	FindByID(ctx context.Context, id string) (*models.Patient, error)
}

type assessmentStore interface {
	Create(ctx context.Context, a *models.Assessment) error
	ListByPatient(ctx context.Context, patientID string, course int) ([]models.Assessment, error)
}

type mappingStore interface {
	Create(ctx context.Context, m *models.MappingSession) error
	LatestRestingMT(ctx context.Context, patientID string, course int) (int, error)
}

// AssessmentService records HAM-D ratings and mapping sessions and evaluates the course.
type AssessmentService struct {
	patients    assessmentPatientReader
	assessments assessmentStore
	mappings    mappingStore
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssessmentService constructs the service.
func NewAssessmentService(patients assessmentPatientReader, assessments assessmentStore, mappings mappingStore, validate *validator.Validate, logger *zap.Logger) *AssessmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssessmentService{patients: patients, assessments: assessments, mappings: mappings, validator: validate, logger: logger}
}

func (s *AssessmentService) patient(ctx context.Context, id string) (*models.Patient, error) {
	patient, err := s.patients.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	return patient, nil
}

// Record stores a HAM-D rating against the patient's current course.
func (s *AssessmentService) Record(ctx context.Context, patientID string, req dto.CreateAssessmentRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if req.TotalScore17 == nil && req.TotalScore21 == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one HAM-D total is required")
	}
	patient, err := s.patient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}
	performed, err := parseOptional(req.PerformedDate)
	if err != nil {
		return nil, err
	}

	assessment := &models.Assessment{
		PatientID:     patient.ID,
		CourseNumber:  patient.CourseNumber,
		Timing:        req.Timing,
		Date:          date,
		PerformedDate: performed,
		TotalScore17:  req.TotalScore17,
		TotalScore21:  req.TotalScore21,
		Note:          req.Note,
	}
	if err := s.assessments.Create(ctx, assessment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record assessment")
	}
	s.logger.Info("assessment recorded", zap.String("patient_id", patient.ID), zap.String("timing", string(req.Timing)))
	return assessment, nil
}

// RecordMapping stores a mapping session against the patient's current course.
func (s *AssessmentService) RecordMapping(ctx context.Context, patientID string, req dto.CreateMappingRequest) (*models.MappingSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	patient, err := s.patient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}
	mapping := &models.MappingSession{
		PatientID:    patient.ID,
		CourseNumber: patient.CourseNumber,
		Date:         date,
		RestingMT:    req.RestingMT,
		Note:         req.Note,
	}
	if err := s.mappings.Create(ctx, mapping); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record mapping session")
	}
	return mapping, nil
}

// Summary evaluates every rating of the current course against the first baseline and
// derives the week-3 recommendation.
func (s *AssessmentService) Summary(ctx context.Context, patientID string) (*dto.AssessmentSummary, error) {
	patient, err := s.patient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	items, err := s.assessments.ListByPatient(ctx, patient.ID, patient.CourseNumber)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assessments")
	}

	var baseline, week3 *hamd.Scores
	for _, item := range items {
		switch {
		case item.Timing == models.TimingBaseline && baseline == nil:
			baseline = &hamd.Scores{HAMD17: item.TotalScore17, HAMD21: item.TotalScore21}
		case item.Timing == models.TimingWeek3 && week3 == nil:
			week3 = &hamd.Scores{HAMD17: item.TotalScore17, HAMD21: item.TotalScore21}
		}
	}

	summary := &dto.AssessmentSummary{
		PatientID:      patient.ID,
		CourseNumber:   patient.CourseNumber,
		Trend:          make([]dto.AssessmentTrendEntry, 0, len(items)),
		Recommendation: hamd.Recommend(baseline, week3),
	}
	var baseline17 *int
	if baseline != nil {
		baseline17 = baseline.HAMD17
	}
	for _, item := range items {
		entry := dto.AssessmentTrendEntry{
			AssessmentID: item.ID,
			Timing:       item.Timing,
			Date:         item.EffectiveDate(),
			TotalScore17: item.TotalScore17,
			TotalScore21: item.TotalScore21,
		}
		if severity, ok := hamd.ClassifySeverity(item.TotalScore17); ok {
			entry.Severity = severity
		}
		var rate hamd.Rate
		if item.Timing != models.TimingBaseline {
			rate = hamd.ImprovementRate(baseline17, item.TotalScore17)
			if rate.Known {
				percent := rate.Percent()
				entry.ImprovementRate = &percent
			}
		}
		entry.Status = hamd.ClassifyResponse(item.TotalScore17, rate)
		summary.Trend = append(summary.Trend, entry)
	}

	mt, err := s.mappings.LatestRestingMT(ctx, patient.ID, patient.CourseNumber)
	switch {
	case err == nil:
		summary.LatestRestingMT = &mt
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resting motor threshold")
	}
	return summary, nil
}
