package sampler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tmakinen/recwatch/internal/conf"
	"github.com/tmakinen/recwatch/internal/detection"
	"github.com/tmakinen/recwatch/internal/errors"
	"github.com/tmakinen/recwatch/internal/logging"
	"github.com/tmakinen/recwatch/internal/observability/metrics"
)

// FrameSource produces motion measurements from a camera. Implementations
// own the camera handle and the frame differencing; the sampler only drives
// the polling loop. Open and Close bracket the device lifetime, Read blocks
// for at most one frame interval.
type FrameSource interface {
	Open(device int) error
	Read() (detection.MotionReading, error)
	Close() error
}

// MotionSampler polls a frame source at a fixed interval and feeds contour
// area readings through the detection dispatcher.
type MotionSampler struct {
	settings   *conf.MotionSettings
	config     *detection.Config
	dispatcher *detection.Dispatcher
	source     FrameSource
	metrics    *metrics.DetectionMetrics
	logger     *slog.Logger

	mu      sync.Mutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	readingMu sync.RWMutex
	reading   detection.MotionReading

	// backoff floor for camera reopen attempts, overridable in tests
	reopenBackoff time.Duration
}

// consecutive read failures tolerated before the camera is reopened
const maxFrameFailures = 10

const maxReopenBackoff = 30 * time.Second

// NewMotionSampler wires a motion sampler to the shared dispatcher.
func NewMotionSampler(settings *conf.MotionSettings, config *detection.Config, dispatcher *detection.Dispatcher, source FrameSource, m *metrics.DetectionMetrics) *MotionSampler {
	return &MotionSampler{
		settings:   settings,
		config:     config,
		dispatcher: dispatcher,
		source:     source,
		metrics:    m,
		logger:     logging.ForService("motion-sampler"),

		reopenBackoff: time.Second,
	}
}

// Name implements Sampler.
func (s *MotionSampler) Name() string { return "motion" }

// LastReading returns the most recent contour area measurement.
func (s *MotionSampler) LastReading() detection.MotionReading {
	s.readingMu.RLock()
	defer s.readingMu.RUnlock()
	return s.reading
}

// Start opens the camera and begins polling frames. It returns an error if
// the device cannot be opened; once running it polls until Stop is called
// or ctx is cancelled.
func (s *MotionSampler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Warn("motion sampler already running, ignoring start")
		return nil
	}

	if err := s.source.Open(s.settings.Device); err != nil {
		return errors.New(err).
			Component("sampler").
			Category(errors.CategoryMotionSource).
			Context("operation", "open-camera").
			Context("device", s.settings.Device).
			Build()
	}

	s.quit = make(chan struct{})
	s.done = make(chan struct{})
	s.running = true

	go s.run(ctx)

	s.logger.Info("watching camera", "device", s.settings.Device,
		"poll_interval_ms", s.settings.PollInterval)
	return nil
}

// Stop closes the camera and waits for the polling goroutine to exit. It is
// safe to call on a sampler that never started.
func (s *MotionSampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.quit)
	<-s.done
	s.running = false
}

func (s *MotionSampler) run(ctx context.Context) {
	defer close(s.done)
	defer func() {
		if err := s.source.Close(); err != nil {
			s.logger.Error("failed to close camera", "error", err)
		}
	}()

	interval := time.Duration(s.settings.PollInterval) * time.Millisecond
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-s.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			reading, err := s.source.Read()
			if err != nil {
				failures++
				if s.metrics != nil {
					s.metrics.RecordSamplerError("motion")
				}
				if failures >= maxFrameFailures {
					s.logger.Warn("reopening camera after repeated read failures",
						"failures", failures, "error", err)
					if !s.reopenSource(ctx) {
						return
					}
					failures = 0
					continue
				}
				s.logger.Warn("frame read failed", "failures", failures, "error", err)
				continue
			}
			failures = 0
			s.handleReading(reading)
		}
	}
}

// reopenSource closes and reopens the camera, retrying with capped
// exponential backoff until the device comes back. It returns false only
// when the sampler is shutting down.
func (s *MotionSampler) reopenSource(ctx context.Context) bool {
	if err := s.source.Close(); err != nil {
		s.logger.Warn("failed to close camera before reopen", "error", err)
	}

	backoff := s.reopenBackoff
	for {
		select {
		case <-s.quit:
			return false
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}

		if err := s.source.Open(s.settings.Device); err != nil {
			if s.metrics != nil {
				s.metrics.RecordSamplerError("motion")
			}
			s.logger.Warn("camera reopen failed", "device", s.settings.Device,
				"retry_in", backoff, "error", err)
			backoff *= 2
			if backoff > maxReopenBackoff {
				backoff = maxReopenBackoff
			}
			continue
		}

		s.logger.Info("camera reopened", "device", s.settings.Device)
		return true
	}
}

func (s *MotionSampler) handleReading(reading detection.MotionReading) {
	s.readingMu.Lock()
	s.reading = reading
	s.readingMu.Unlock()

	event, ok := detection.EvaluateMotion(reading, s.config.Thresholds())
	if !ok {
		return
	}

	s.logger.Info("motion trigger", "area", reading.MaxContourArea)
	s.dispatcher.Dispatch(&event)
}
