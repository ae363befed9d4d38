package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Solve outcome labels.
const (
	OutcomeConverged  = "converged"
	OutcomeCapReached = "cap_reached"
	OutcomeFailed     = "failed"
	OutcomeRejected   = "rejected"
)

// Metrics provides Prometheus metrics for solves and their surroundings.
type Metrics struct {
	config MetricsConfig

	solvesTotal   *prometheus.CounterVec
	solveDuration *prometheus.HistogramVec
	solveIters    *prometheus.HistogramVec
	plotDropped   *prometheus.CounterVec

	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	policyViolations *prometheus.CounterVec
	historyWrites    *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec

	activeSolves prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector backed by its own registry.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DurationBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		solvesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "solves_total",
				Help:      "Total number of solves by method, function and outcome",
			},
			[]string{"method", "function", "outcome"},
		),
		solveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "solve_duration_seconds",
				Help:      "Wall time of a single solve in seconds",
				Buckets:   buckets,
			},
			[]string{"method"},
		),
		solveIters: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "solve_iterations",
				Help:      "Iterations used by successful solves",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 11),
			},
			[]string{"method"},
		),
		plotDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "plot_points_dropped_total",
				Help:      "Plot samples dropped because the value was not finite",
			},
			[]string{"function"},
		),
		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by error code",
			},
			[]string{"code"},
		),
		policyViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_violations_total",
				Help:      "Admission policy violations by policy and severity",
			},
			[]string{"policy", "severity"},
		),
		historyWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_writes_total",
				Help:      "Run history writes by status",
			},
			[]string{"status"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP API requests by route and status code",
			},
			[]string{"route", "code"},
		),
		activeSolves: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_solves",
				Help:      "Solves currently in flight",
			},
		),
	}

	registry.MustRegister(
		m.solvesTotal,
		m.solveDuration,
		m.solveIters,
		m.plotDropped,
		m.errorsByClass,
		m.errorsByCode,
		m.policyViolations,
		m.historyWrites,
		m.httpRequests,
		m.activeSolves,
	)

	return m, nil
}

// Registry returns the underlying registry, nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SolveStarted marks a solve as in flight.
func (m *Metrics) SolveStarted() {
	if m.activeSolves == nil {
		return
	}
	m.activeSolves.Inc()
}

// RecordSolve records a finished solve. iterations is only observed for
// successful outcomes.
func (m *Metrics) RecordSolve(method, function, outcome string, iterations int, duration time.Duration) {
	if m.solvesTotal == nil {
		return
	}
	m.activeSolves.Dec()
	m.solvesTotal.WithLabelValues(method, function, outcome).Inc()
	m.solveDuration.WithLabelValues(method).Observe(duration.Seconds())
	if outcome == OutcomeConverged || outcome == OutcomeCapReached {
		m.solveIters.WithLabelValues(method).Observe(float64(iterations))
	}
}

// RecordRejected counts a request refused before any solver ran.
func (m *Metrics) RecordRejected(method, function string) {
	if m.solvesTotal == nil {
		return
	}
	m.solvesTotal.WithLabelValues(method, function, OutcomeRejected).Inc()
}

// RecordPlotDropped counts samples dropped from a plot.
func (m *Metrics) RecordPlotDropped(function string, n int) {
	if m.plotDropped == nil || n <= 0 {
		return
	}
	m.plotDropped.WithLabelValues(function).Add(float64(n))
}

// RecordError records an error by class and optionally by code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// RecordPolicyViolation counts a single violation.
func (m *Metrics) RecordPolicyViolation(policy, severity string) {
	if m.policyViolations == nil {
		return
	}
	m.policyViolations.WithLabelValues(policy, severity).Inc()
}

// RecordHistoryWrite counts a history write attempt.
func (m *Metrics) RecordHistoryWrite(status string) {
	if m.historyWrites == nil {
		return
	}
	m.historyWrites.WithLabelValues(status).Inc()
}

// RecordHTTPRequest counts one API request.
func (m *Metrics) RecordHTTPRequest(route string, code string) {
	if m.httpRequests == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, code).Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
