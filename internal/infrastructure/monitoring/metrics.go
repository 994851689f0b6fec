package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics.
//
// Every recorder is safe to call on a nil *Metrics, so components can run
// without instrumentation (CLI one-shots, tests).
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	AcquireAttempts   *prometheus.CounterVec
	SessionRefreshes  prometheus.Counter
	SessionPrivileged prometheus.Gauge

	// Job metrics
	JobsTotal   *prometheus.CounterVec
	JobDuration prometheus.Histogram

	// Install metrics
	InstallsTotal   *prometheus.CounterVec
	InstallDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
}

// NewMetrics creates a metrics collector backed by its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apcore_http_requests_total",
				Help: "Total number of control API requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apcore_http_request_duration_seconds",
				Help:    "Control API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		AcquireAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apcore_session_acquire_attempts_total",
				Help: "Elevation mechanism attempts by outcome",
			},
			[]string{"mechanism", "outcome"},
		),
		SessionRefreshes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "apcore_session_refreshes_total",
				Help: "Total number of session refreshes",
			},
		),
		SessionPrivileged: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "apcore_session_privileged",
				Help: "1 when the current session is privileged",
			},
		),

		JobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apcore_shell_jobs_total",
				Help: "Total number of shell jobs by outcome",
			},
			[]string{"outcome"},
		),
		JobDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "apcore_shell_job_duration_seconds",
				Help:    "Shell job duration in seconds",
				Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 15, 60, 300},
			},
		),

		InstallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apcore_installs_total",
				Help: "Module installs by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		InstallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apcore_install_duration_seconds",
				Help:    "Module install duration in seconds",
				Buckets: []float64{.1, .5, 1, 5, 15, 60, 300},
			},
			[]string{"kind"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "apcore_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records a control API request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAcquireAttempt records one elevation mechanism attempt
func (m *Metrics) RecordAcquireAttempt(mechanism string, ok bool) {
	if m == nil {
		return
	}
	m.AcquireAttempts.WithLabelValues(mechanism, outcome(ok)).Inc()
}

// RecordRefresh records a session refresh and the elevation of the new session
func (m *Metrics) RecordRefresh(privileged bool) {
	if m == nil {
		return
	}
	m.SessionRefreshes.Inc()
	m.SetPrivileged(privileged)
}

// SetPrivileged sets the elevation gauge
func (m *Metrics) SetPrivileged(privileged bool) {
	if m == nil {
		return
	}
	if privileged {
		m.SessionPrivileged.Set(1)
	} else {
		m.SessionPrivileged.Set(0)
	}
}

// RecordJob records a finished shell job
func (m *Metrics) RecordJob(ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(outcome(ok)).Inc()
	m.JobDuration.Observe(duration.Seconds())
}

// RecordInstall records a finished module install
func (m *Metrics) RecordInstall(kind string, ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.InstallsTotal.WithLabelValues(kind, outcome(ok)).Inc()
	m.InstallDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
