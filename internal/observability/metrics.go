// Package observability provides metrics and monitoring capabilities for RecWatch.
package observability

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tmakinen/recwatch/internal/logging"
	"github.com/tmakinen/recwatch/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry  *prometheus.Registry
	Detection *metrics.DetectionMetrics
	Recording *metrics.RecordingMetrics
	MQTT      *metrics.MQTTMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric collectors.
// It returns an error if any metric collector fails to initialize.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	detectionMetrics, err := metrics.NewDetectionMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create detection metrics: %w", err)
	}

	recordingMetrics, err := metrics.NewRecordingMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording metrics: %w", err)
	}

	mqttMetrics, err := metrics.NewMQTTMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create MQTT metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		Detection: detectionMetrics,
		Recording: recordingMetrics,
		MQTT:      mqttMetrics,
	}, nil
}

// Registry exposes the underlying registry for handler wiring and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Serve starts the telemetry HTTP listener exposing /metrics. It blocks
// until the server exits, so callers run it on its own goroutine.
func (m *Metrics) Serve(listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.Info("telemetry endpoint listening", "listen", listen)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("telemetry server failed: %w", err)
	}
	return nil
}
