package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/invigilo/proctor-api/internal/dto"
	"github.com/invigilo/proctor-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP surface and the
// scheduling domain. It owns its registry so collectors never collide across tests.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	runsTotal       prometheus.Counter
	roomsAssigned   *prometheus.CounterVec
	fillShortfall   prometheus.Counter
	absencesTotal   prometheus.Counter
	suspensions     prometheus.Counter
	replacements    *prometheus.CounterVec
}

// NewMetricsService registers core collectors.
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

	runsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assignment_runs_total",
		Help: "Total number of assignment engine runs",
	})

	roomsAssigned := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_rooms_total",
		Help: "Rooms filled per run, labelled by resulting roster status",
	}, []string{"status"})

	fillShortfall := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assignment_unfilled_seats_total",
		Help: "Seats left unfilled across all runs",
	})

	absencesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "absences_recorded_total",
		Help: "Total recorded absence events",
	})

	suspensions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "staff_suspensions_total",
		Help: "Suspensions triggered by consecutive absences",
	})

	replacements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replacements_total",
		Help: "Applied replacements, labelled by mode",
	}, []string{"mode"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, runsTotal, roomsAssigned, fillShortfall, absencesTotal, suspensions, replacements, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		runsTotal:       runsTotal,
		roomsAssigned:   roomsAssigned,
		fillShortfall:   fillShortfall,
		absencesTotal:   absencesTotal,
		suspensions:     suspensions,
		replacements:    replacements,
	}
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

// ObserveAssignmentRun records one engine run's outcome.
func (m *MetricsService) ObserveAssignmentRun(stats dto.RunStats) {
	if m == nil {
		return
	}
	m.runsTotal.Inc()
	m.roomsAssigned.WithLabelValues(string(models.AssignmentComplete)).Add(float64(stats.RoomsComplete))
	m.roomsAssigned.WithLabelValues(string(models.AssignmentPartial)).Add(float64(stats.RoomsPartial))
	m.roomsAssigned.WithLabelValues(string(models.AssignmentIncomplete)).Add(float64(stats.RoomsIncomplete))
	m.fillShortfall.Add(float64(stats.SeatsUnfilled))
}

// ObserveAbsence records an absence event and, when applicable, the suspension it caused.
func (m *MetricsService) ObserveAbsence(suspended bool) {
	if m == nil {
		return
	}
	m.absencesTotal.Inc()
	if suspended {
		m.suspensions.Inc()
	}
}

// ObserveReplacement records an applied replacement by mode.
func (m *MetricsService) ObserveReplacement(action models.ReplacementAction) {
	if m == nil {
		return
	}
	m.replacements.WithLabelValues(string(action)).Inc()
}
