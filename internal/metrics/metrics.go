package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "autoescola"

// Metrics holds the Prometheus collectors of the portal.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	ExamsFinished     *prometheus.CounterVec
	ExamsOpened       *prometheus.CounterVec
	FinalizeFailures  *prometheus.CounterVec
	LessonsBooked     prometheus.Counter
	PaymentsProcessed *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),
		ExamsOpened: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "exam",
				Name:      "sessions_opened_total",
				Help:      "Exam sessions opened, by variant and outcome",
			},
			[]string{"variant", "outcome"},
		),
		ExamsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "exam",
				Name:      "sessions_finished_total",
				Help:      "Exam sessions finished, by variant, pass/fail and trigger",
			},
			[]string{"variant", "outcome", "trigger"},
		),
		FinalizeFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "exam",
				Name:      "finalize_failures_total",
				Help:      "Failed finalization writes, by step",
			},
			[]string{"step"},
		),
		LessonsBooked: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "booking",
				Name:      "lessons_booked_total",
				Help:      "Lessons booked through the portal",
			},
		),
		PaymentsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "billing",
				Name:      "payments_total",
				Help:      "Simulated payments, by resulting status",
			},
			[]string{"status"},
		),
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ExamOpened(variant, outcome string) {
	if m == nil {
		return
	}
	m.ExamsOpened.WithLabelValues(variant, outcome).Inc()
}

func (m *Metrics) ExamFinished(variant string, passed bool, trigger string) {
	if m == nil {
		return
	}
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	m.ExamsFinished.WithLabelValues(variant, outcome, trigger).Inc()
}

func (m *Metrics) FinalizeFailed(step string) {
	if m == nil {
		return
	}
	m.FinalizeFailures.WithLabelValues(step).Inc()
}

func (m *Metrics) LessonBooked() {
	if m == nil {
		return
	}
	m.LessonsBooked.Inc()
}

func (m *Metrics) PaymentStatus(status string) {
	if m == nil {
		return
	}
	m.PaymentsProcessed.WithLabelValues(status).Inc()
}

// EchoMiddleware records request count, duration and in-flight gauge.
func (m *Metrics) EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			route := c.Path()
			m.RequestDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			m.RequestCounter.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			return err
		}
	}
}
