package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates the Prometheus collectors of the API.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheLookups      *prometheus.CounterVec
	scheduleOps       *prometheus.CounterVec
	sessionsShifted   prometheus.Counter
	dischargeShifts   prometheus.Counter
	scheduleShortfall prometheus.Counter
	holidayDegraded   prometheus.Counter
	adverseEvents     *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	scheduleOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_operations_total",
		Help: "Schedule mutations by operation and outcome",
	}, []string{"operation", "outcome"})

	sessionsShifted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_sessions_shifted_total",
		Help: "Planned sessions moved by reschedules",
	})

	dischargeShifts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_discharge_shifts_total",
		Help: "Discharge dates moved by reschedules",
	})

	scheduleShortfall := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_plan_shortfall_total",
		Help: "Plans that could not place every requested session",
	})

	holidayDegraded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "holiday_source_degraded_total",
		Help: "Holiday lookups that fell back to weekday-only checks",
	})

	adverseEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adverse_events_reported_total",
		Help: "Serious adverse events reported by event type",
	}, []string{"type"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheLookups,
		scheduleOps, sessionsShifted, dischargeShifts, scheduleShortfall, holidayDegraded, adverseEvents, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheLookups:      cacheLookups,
		scheduleOps:       scheduleOps,
		sessionsShifted:   sessionsShifted,
		dischargeShifts:   dischargeShifts,
		scheduleShortfall: scheduleShortfall,
		holidayDegraded:   holidayDegraded,
		adverseEvents:     adverseEvents,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite tracks the duration of cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordScheduleOperation counts a skip, undo, shift or plan with its outcome.
func (m *MetricsService) RecordScheduleOperation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.scheduleOps.WithLabelValues(operation, outcome).Inc()
}

// RecordShift counts moved sessions and whether the discharge date moved.
func (m *MetricsService) RecordShift(moved int, dischargeMoved bool) {
	if m == nil {
		return
	}
	m.sessionsShifted.Add(float64(moved))
	if dischargeMoved {
		m.dischargeShifts.Inc()
	}
}

// RecordPlanShortfall counts a plan that ran out of business days.
func (m *MetricsService) RecordPlanShortfall() {
	if m == nil {
		return
	}
	m.scheduleShortfall.Inc()
}

// RecordHolidayDegraded counts a holiday lookup served without holiday data.
func (m *MetricsService) RecordHolidayDegraded() {
	if m == nil {
		return
	}
	m.holidayDegraded.Inc()
}

// RecordAdverseEvent counts a reported serious adverse event once per event type.
func (m *MetricsService) RecordAdverseEvent(types []string) {
	if m == nil {
		return
	}
	for _, t := range types {
		m.adverseEvents.WithLabelValues(t).Inc()
	}
}
