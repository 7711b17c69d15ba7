package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/rtms-schedule-api/internal/dto"
	"github.com/noah-isme/rtms-schedule-api/internal/models"
	"github.com/noah-isme/rtms-schedule-api/internal/schedule"
	appErrors "github.com/noah-isme/rtms-schedule-api/pkg/errors"
)

const (
	holidayCacheKey     = "holidays:all"
	holidayCachePattern = "holidays:*"
)

type holidayStore interface {
	List(ctx context.Context, from, to *time.Time) ([]models.ClinicHoliday, error)
	Upsert(ctx context.Context, holidays []models.ClinicHoliday) error
	Delete(ctx context.Context, date time.Time) error
}

// calendarSource yields the clinic calendar used by the schedule services.
type calendarSource interface {
	Calendar(ctx context.Context) *schedule.Calendar
}

// HolidayService maintains the clinic holiday calendar.
type HolidayService struct {
	repo           holidayStore
	cache          *CacheService
	metrics        *MetricsService
	yearEndClosure bool
	cacheTTL       time.Duration
	validator      *validator.Validate
	logger         *zap.Logger
}

// HolidayServiceConfig tunes the calendar.
type HolidayServiceConfig struct {
	YearEndClosure bool
	CacheTTL       time.Duration
}

// NewHolidayService constructs the service.
func NewHolidayService(repo holidayStore, cache *CacheService, metrics *MetricsService, cfg HolidayServiceConfig, validate *validator.Validate, logger *zap.Logger) *HolidayService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HolidayService{
		repo:           repo,
		cache:          cache,
		metrics:        metrics,
		yearEndClosure: cfg.YearEndClosure,
		cacheTTL:       cfg.CacheTTL,
		validator:      validate,
		logger:         logger,
	}
}

func (s *HolidayService) options() []schedule.Option {
	if s.yearEndClosure {
		return []schedule.Option{schedule.WithYearEndClosure()}
	}
	return nil
}

// Calendar returns the clinic calendar. When holidays cannot be loaded the calendar
// only knows weekends and the year-end closure; the failure is logged and counted.
func (s *HolidayService) Calendar(ctx context.Context) *schedule.Calendar {
	holidays, err := s.all(ctx)
	if err != nil {
		s.logger.Warn("holiday source unavailable, using weekday-only calendar", zap.Error(err))
		s.metrics.RecordHolidayDegraded()
		return schedule.NewCalendar(nil, s.options()...)
	}
	dates := make([]time.Time, 0, len(holidays))
	for _, h := range holidays {
		dates = append(dates, h.Date)
	}
	return schedule.NewCalendar(schedule.NewHolidaySet(dates...), s.options()...)
}

func (s *HolidayService) all(ctx context.Context) ([]models.ClinicHoliday, error) {
	var cached []models.ClinicHoliday
	if hit, _ := s.cache.Get(ctx, holidayCacheKey, &cached); hit {
		return cached, nil
	}
	holidays, err := s.repo.List(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, holidayCacheKey, holidays, s.cacheTTL)
	return holidays, nil
}

// List returns holidays within the optional range.
func (s *HolidayService) List(ctx context.Context, query dto.HolidayQuery) ([]models.ClinicHoliday, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	from, err := optionalDate(query.From)
	if err != nil {
		return nil, err
	}
	to, err := optionalDate(query.To)
	if err != nil {
		return nil, err
	}
	holidays, err := s.repo.List(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list holidays")
	}
	return holidays, nil
}

// Save creates or renames a holiday and drops the cached calendar.
func (s *HolidayService) Save(ctx context.Context, req dto.HolidayRequest) (*models.ClinicHoliday, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}
	kind := req.Kind
	if kind == "" {
		kind = models.HolidayKindClosure
	}
	holiday := models.ClinicHoliday{Date: date, Name: req.Name, Kind: kind, CreatedAt: time.Now().UTC()}
	if err := s.repo.Upsert(ctx, []models.ClinicHoliday{holiday}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save holiday")
	}
	s.invalidate(ctx)
	return &holiday, nil
}

// Import stores many holidays at once, typically a public-holiday year.
func (s *HolidayService) Import(ctx context.Context, holidays []models.ClinicHoliday) error {
	if len(holidays) == 0 {
		return nil
	}
	if err := s.repo.Upsert(ctx, holidays); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import holidays")
	}
	s.invalidate(ctx)
	return nil
}

// Delete removes a holiday.
func (s *HolidayService) Delete(ctx context.Context, rawDate string) error {
	date, err := schedule.ParseDate(rawDate)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}
	if err := s.repo.Delete(ctx, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete holiday")
	}
	s.invalidate(ctx)
	return nil
}

func (s *HolidayService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, holidayCachePattern); err != nil {
		s.logger.Warn("holiday cache not invalidated", zap.Error(err))
	}
}

func optionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := schedule.ParseDate(raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date "+raw)
	}
	return &d, nil
}
