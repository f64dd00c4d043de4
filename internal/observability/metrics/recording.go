package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// RecordingMetrics contains all Prometheus metrics related to the
// recording session lifecycle.
type RecordingMetrics struct {
	SessionState      prometheus.Gauge
	StartsTotal       *prometheus.CounterVec
	StopsTotal        *prometheus.CounterVec
	RefusedTotal      *prometheus.CounterVec
	BackendErrors     *prometheus.CounterVec
	RecordingDuration prometheus.Histogram
	registry          *prometheus.Registry
}

// NewRecordingMetrics creates a new instance of RecordingMetrics.
func NewRecordingMetrics(registry *prometheus.Registry) (*RecordingMetrics, error) {
	m := &RecordingMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize recording metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register recording metrics: %w", err)
	}
	return m, nil
}

func (m *RecordingMetrics) initMetrics() error {
	m.SessionState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "recwatch_session_recording",
		Help: "Current session state (1 for recording, 0 for idle)",
	})

	m.StartsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recwatch_recording_starts_total",
		Help: "Total number of recording starts by trigger label",
	}, []string{"trigger"})

	m.StopsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recwatch_recording_stops_total",
		Help: "Total number of recording stops by reason (auto or manual)",
	}, []string{"reason"})

	m.RefusedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recwatch_recording_refused_total",
		Help: "Total number of refused start attempts by reason",
	}, []string{"reason"})

	m.BackendErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recwatch_backend_errors_total",
		Help: "Total number of recording backend call failures by operation",
	}, []string{"operation"})

	m.RecordingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recwatch_recording_duration_seconds",
		Help:    "Observed duration of completed recordings in seconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14),
	})

	return nil
}

// UpdateSessionState publishes the current session state.
func (m *RecordingMetrics) UpdateSessionState(recording bool) {
	if recording {
		m.SessionState.Set(1)
	} else {
		m.SessionState.Set(0)
	}
}

// RecordStart counts one successful recording start.
func (m *RecordingMetrics) RecordStart(trigger string) {
	m.StartsTotal.WithLabelValues(trigger).Inc()
}

// RecordStop counts one recording stop and its observed duration.
func (m *RecordingMetrics) RecordStop(reason string, seconds float64) {
	m.StopsTotal.WithLabelValues(reason).Inc()
	if seconds > 0 {
		m.RecordingDuration.Observe(seconds)
	}
}

// RecordRefused counts one refused start attempt.
func (m *RecordingMetrics) RecordRefused(reason string) {
	m.RefusedTotal.WithLabelValues(reason).Inc()
}

// RecordBackendError counts one backend call failure.
func (m *RecordingMetrics) RecordBackendError(operation string) {
	m.BackendErrors.WithLabelValues(operation).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *RecordingMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.SessionState.Describe(ch)
	m.StartsTotal.Describe(ch)
	m.StopsTotal.Describe(ch)
	m.RefusedTotal.Describe(ch)
	m.BackendErrors.Describe(ch)
	m.RecordingDuration.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *RecordingMetrics) Collect(ch chan<- prometheus.Metric) {
	m.SessionState.Collect(ch)
	m.StartsTotal.Collect(ch)
	m.StopsTotal.Collect(ch)
	m.RefusedTotal.Collect(ch)
	m.BackendErrors.Collect(ch)
	m.RecordingDuration.Collect(ch)
}
