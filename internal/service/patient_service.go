package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/rtms-schedule-api/internal/dto"
	"github.com/noah-isme/rtms-schedule-api/internal/models"
	"github.com/noah-isme/rtms-schedule-api/internal/repository"
	"github.com/noah-isme/rtms-schedule-api/internal/schedule"
	appErrors "github.com/noah-isme/rtms-schedule-api/pkg/errors"
)

type patientRepository interface {
	Create(ctx context.Context, patient *models.Patient) error
	FindByID(ctx context.Context, id string) (*models.Patient, error)
	List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, int, error)
	UpdateSchedule(ctx context.Context, exec sqlx.ExtContext, patient *models.Patient) error
}

// PatientService manages patients and their schedule anchors.
type PatientService struct {
	repo      patientRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPatientService constructs the service.
func NewPatientService(repo patientRepository, validate *validator.Validate, logger *zap.Logger) *PatientService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatientService{repo: repo, validator: validate, logger: logger}
}

// Create registers a patient.
func (s *PatientService) Create(ctx context.Context, req dto.CreatePatientRequest) (*models.Patient, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	birth, err := parseOptional(req.BirthDate)
	if err != nil {
		return nil, err
	}
	day1, err := parseOptional(req.FirstTreatmentDate)
	if err != nil {
		return nil, err
	}
	protocol := req.ProtocolType
	if protocol == "" {
		protocol = models.ProtocolInsurance
	}
	course := req.CourseNumber
	if course <= 0 {
		course = 1
	}

	patient := &models.Patient{
		CardID:             req.CardID,
		Name:               req.Name,
		BirthDate:          birth,
		ProtocolType:       protocol,
		CourseNumber:       course,
		FirstTreatmentDate: day1,
		IsAllCaseSurvey:    req.IsAllCaseSurvey,
		Active:             true,
	}
	if err := s.repo.Create(ctx, patient); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "card id already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create patient")
	}
	s.logger.Info("patient registered", zap.String("patient_id", patient.ID))
	return patient, nil
}

// Get returns a patient by id.
func (s *PatientService) Get(ctx context.Context, id string) (*models.Patient, error) {
	patient, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	return patient, nil
}

// List returns paginated patients.
func (s *PatientService) List(ctx context.Context, query dto.PatientQuery) ([]models.Patient, *models.Pagination, error) {
	filter := models.PatientFilter{Active: query.Active, Search: query.Search, Page: query.Page, PageSize: query.PageSize}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 200 {
		filter.PageSize = 50
	}
	patients, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list patients")
	}
	return patients, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// UpdateSchedule changes day1, discharge date, protocol or survey flag.
func (s *PatientService) UpdateSchedule(ctx context.Context, id string, req dto.UpdateScheduleRequest) (*models.Patient, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	patient, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ProtocolType != nil {
		patient.ProtocolType = *req.ProtocolType
	}
	if req.CourseNumber != nil {
		patient.CourseNumber = *req.CourseNumber
	}
	if req.FirstTreatmentDate != nil {
		day1, err := parseOptional(req.FirstTreatmentDate)
		if err != nil {
			return nil, err
		}
		patient.FirstTreatmentDate = day1
	}
	if req.ClearDischargeDate {
		patient.DischargeDate = nil
	} else if req.DischargeDate != nil {
		discharge, err := parseOptional(req.DischargeDate)
		if err != nil {
			return nil, err
		}
		patient.DischargeDate = discharge
	}
	if req.IsAllCaseSurvey != nil {
		patient.IsAllCaseSurvey = *req.IsAllCaseSurvey
	}
	if req.Active != nil {
		patient.Active = *req.Active
	}

	if err := s.repo.UpdateSchedule(ctx, nil, patient); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update patient schedule")
	}
	return patient, nil
}

func parseOptional(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	d, err := schedule.ParseDate(*raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date "+*raw)
	}
	return &d, nil
}
