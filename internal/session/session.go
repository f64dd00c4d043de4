// Package session owns the recording lifecycle triggered by detections.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tmakinen/recwatch/internal/backend"
	"github.com/tmakinen/recwatch/internal/detection"
	"github.com/tmakinen/recwatch/internal/errors"
	"github.com/tmakinen/recwatch/internal/observability/metrics"
)

// State of the recording session.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
)

// Stop reasons reported to metrics and MQTT.
const (
	StopReasonAuto   = "auto"
	StopReasonManual = "manual"
)

// Sentinel results of session transitions. Both are defined outcomes, not
// faults; callers log them and move on.
var (
	// ErrAlreadyRecording is returned when a detection arrives while a
	// recording is active, either ours or one started out-of-band.
	ErrAlreadyRecording = errors.NewStd("recording already in progress")

	// ErrNotRecording is returned when Stop is called with no active recording.
	ErrNotRecording = errors.NewStd("no recording in progress")

	// ErrBackendStart wraps a backend failure during StartRecording.
	ErrBackendStart = errors.NewStd("backend failed to start recording")
)

// Listener is notified after every completed session transition, outside
// the session lock.
type Listener func(state State, trigger string)

// Session is the recording state machine. Exactly one instance exists per
// process; the backend supports a single active recording. Every
// transition runs under the session mutex, including the backend start and
// stop calls, so a detection racing a firing auto-stop timer can never
// observe a half-applied state.
type Session struct {
	mu           sync.Mutex
	state        State
	startedAt    time.Time
	triggerLabel string

	// generation invalidates stale auto-stop timers: Stop and every new
	// start bump it, and a timer callback holding an older generation
	// returns without acting.
	generation uint64
	timer      *time.Timer

	recorder  backend.Recorder
	config    *detection.Config
	listeners []Listener
	metrics   *metrics.RecordingMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// New creates an idle session around the given recorder. The metrics
// collector may be nil when telemetry is disabled.
func New(recorder backend.Recorder, config *detection.Config, m *metrics.RecordingMetrics, logger *slog.Logger) *Session {
	return &Session{
		state:    StateIdle,
		recorder: recorder,
		config:   config,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// AddListener registers a transition listener. Not safe to call
// concurrently with transitions; wire listeners during startup.
func (s *Session) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

// OnDetection converts an accepted detection into a recording start.
// In StateRecording it is a defined no-op returning ErrAlreadyRecording;
// re-triggers never extend or restart the auto-stop timer.
func (s *Session) OnDetection(label string) error {
	s.mu.Lock()

	if s.state == StateRecording {
		s.mu.Unlock()
		s.logger.Info("detection ignored, recording already active", "trigger", label)
		if s.metrics != nil {
			s.metrics.RecordRefused("already-recording")
		}
		return ErrAlreadyRecording
	}

	// Guard against recordings started out-of-band, e.g. by hand in the
	// OBS UI. A status query failure is logged and treated as not
	// recording; the start call below is the authoritative check.
	recording, err := s.recorder.IsRecording()
	if err != nil {
		s.logger.Warn("backend status query failed", "error", err)
		if s.metrics != nil {
			s.metrics.RecordBackendError("status")
		}
	} else if recording {
		s.mu.Unlock()
		s.logger.Info("backend already recording out-of-band", "trigger", label)
		if s.metrics != nil {
			s.metrics.RecordRefused("backend-recording")
		}
		return ErrAlreadyRecording
	}

	if err := s.recorder.StartRecording(); err != nil {
		s.mu.Unlock()
		s.logger.Warn("backend refused to start recording", "trigger", label, "error", err)
		if s.metrics != nil {
			s.metrics.RecordBackendError("start")
		}
		return errors.Join(ErrBackendStart, err)
	}

	duration := s.config.RecordingDuration()
	s.state = StateRecording
	s.startedAt = s.now()
	s.triggerLabel = label
	s.generation++
	generation := s.generation
	s.timer = time.AfterFunc(duration, func() {
		s.autoStop(generation)
	})
	s.mu.Unlock()

	s.logger.Info("recording started", "trigger", label, "duration", duration)
	if s.metrics != nil {
		s.metrics.RecordStart(label)
		s.metrics.UpdateSessionState(true)
	}
	s.notify(StateRecording, label)
	return nil
}

// autoStop fires when the recording duration elapses. A stale generation
// means a manual stop or a newer recording superseded this timer.
func (s *Session) autoStop(generation uint64) {
	s.mu.Lock()
	if s.state != StateRecording || generation != s.generation {
		s.mu.Unlock()
		return
	}
	trigger, elapsed := s.stopLocked()
	s.mu.Unlock()

	s.logger.Info("recording auto-stopped", "trigger", trigger, "elapsed", elapsed)
	if s.metrics != nil {
		s.metrics.RecordStop(StopReasonAuto, elapsed.Seconds())
		s.metrics.UpdateSessionState(false)
	}
	s.notify(StateIdle, trigger)
}

// Stop ends the active recording manually and cancels the pending
// auto-stop timer synchronously, so the timer can never act afterwards.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return ErrNotRecording
	}

	// Bump the generation first: even if the timer callback has already
	// fired and is waiting on the mutex, it will see a stale generation.
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	trigger, elapsed := s.stopLocked()
	s.mu.Unlock()

	s.logger.Info("recording stopped manually", "trigger", trigger, "elapsed", elapsed)
	if s.metrics != nil {
		s.metrics.RecordStop(StopReasonManual, elapsed.Seconds())
		s.metrics.UpdateSessionState(false)
	}
	s.notify(StateIdle, trigger)
	return nil
}

// stopLocked performs the backend stop call and the transition to idle.
// Caller holds the mutex. A failed backend stop is logged, not retried;
// the session still returns to idle.
func (s *Session) stopLocked() (trigger string, elapsed time.Duration) {
	trigger = s.triggerLabel
	elapsed = s.now().Sub(s.startedAt)

	if err := s.recorder.StopRecording(); err != nil {
		s.logger.Warn("backend failed to stop recording", "error", err)
		if s.metrics != nil {
			s.metrics.RecordBackendError("stop")
		}
	}

	s.state = StateIdle
	s.startedAt = time.Time{}
	s.triggerLabel = ""
	s.timer = nil
	return trigger, elapsed
}

// notify invokes the registered listeners outside the session lock.
func (s *Session) notify(state State, trigger string) {
	for _, l := range s.listeners {
		l(state, trigger)
	}
}

// Status returns a snapshot of the session for the control surface.
func (s *Session) Status() (state State, startedAt time.Time, trigger string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.startedAt, s.triggerLabel
}
