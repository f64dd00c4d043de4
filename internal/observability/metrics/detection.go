// Package metrics provides custom Prometheus metrics for RecWatch components.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// DetectionMetrics contains all Prometheus metrics related to the
// detection pipeline.
type DetectionMetrics struct {
	EventsTotal    *prometheus.CounterVec
	GateAccepted   prometheus.Counter
	GateSuppressed prometheus.Counter
	AudioLevel     *prometheus.GaugeVec
	SamplerErrors  *prometheus.CounterVec
	registry       *prometheus.Registry
}

// NewDetectionMetrics creates a new instance of DetectionMetrics.
// It requires a Prometheus registry to register the metrics.
func NewDetectionMetrics(registry *prometheus.Registry) (*DetectionMetrics, error) {
	m := &DetectionMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize detection metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register detection metrics: %w", err)
	}
	return m, nil
}

func (m *DetectionMetrics) initMetrics() error {
	m.EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recwatch_detection_events_total",
		Help: "Total number of detection events by source and kind",
	}, []string{"source", "kind"})

	m.GateAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recwatch_gate_accepted_total",
		Help: "Total number of detections accepted by the cooldown gate",
	})

	m.GateSuppressed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recwatch_gate_suppressed_total",
		Help: "Total number of detections suppressed by the cooldown gate",
	})

	m.AudioLevel = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "recwatch_audio_level",
		Help: "Latest normalized audio level by type (peak or rms)",
	}, []string{"type"})

	m.SamplerErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recwatch_sampler_errors_total",
		Help: "Total number of transient sampler errors by source",
	}, []string{"source"})

	return nil
}

// RecordEvent counts one candidate detection event.
func (m *DetectionMetrics) RecordEvent(source, kind string) {
	m.EventsTotal.WithLabelValues(source, kind).Inc()
}

// RecordGateResult counts one gate decision.
func (m *DetectionMetrics) RecordGateResult(accepted bool) {
	if accepted {
		m.GateAccepted.Inc()
	} else {
		m.GateSuppressed.Inc()
	}
}

// UpdateAudioLevel publishes the latest normalized peak and RMS levels.
func (m *DetectionMetrics) UpdateAudioLevel(peak, rms float64) {
	m.AudioLevel.WithLabelValues("peak").Set(peak)
	m.AudioLevel.WithLabelValues("rms").Set(rms)
}

// RecordSamplerError counts one transient sampler error.
func (m *DetectionMetrics) RecordSamplerError(source string) {
	m.SamplerErrors.WithLabelValues(source).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *DetectionMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.EventsTotal.Describe(ch)
	m.GateAccepted.Describe(ch)
	m.GateSuppressed.Describe(ch)
	m.AudioLevel.Describe(ch)
	m.SamplerErrors.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *DetectionMetrics) Collect(ch chan<- prometheus.Metric) {
	m.EventsTotal.Collect(ch)
	m.GateAccepted.Collect(ch)
	m.GateSuppressed.Collect(ch)
	m.AudioLevel.Collect(ch)
	m.SamplerErrors.Collect(ch)
}
