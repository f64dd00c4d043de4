package session

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmakinen/recwatch/internal/conf"
	"github.com/tmakinen/recwatch/internal/detection"
	"github.com/tmakinen/recwatch/internal/errors"
)

// mockRecorder counts backend calls and lets tests script failures.
type mockRecorder struct {
	mu           sync.Mutex
	recording    bool
	startCalls   int
	stopCalls    int
	statusCalls  int
	failStart    bool
	statusResult bool
	statusErr    error
}

func (m *mockRecorder) Connect(ctx context.Context) error { return nil }

func (m *mockRecorder) IsRecording() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls++
	return m.statusResult, m.statusErr
}

func (m *mockRecorder) StartRecording() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startCalls++
	if m.failStart {
		return errors.NewStd("backend refused")
	}
	m.recording = true
	return nil
}

func (m *mockRecorder) StopRecording() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
	m.recording = false
	return nil
}

func (m *mockRecorder) Disconnect() {}

func (m *mockRecorder) counts() (starts, stops int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startCalls, m.stopCalls
}

func newTestSession(recorder *mockRecorder, recordingSeconds int) *Session {
	config := detection.NewConfig(&conf.DetectionSettings{
		PeakThreshold:     0.5,
		RMSThreshold:      0.01,
		MotionArea:        1000,
		CooldownPeriod:    30,
		RecordingDuration: recordingSeconds,
	})
	return New(recorder, config, nil, slog.Default())
}

func TestSessionStartRecording(t *testing.T) {
	t.Parallel()

	recorder := &mockRecorder{}
	s := newTestSession(recorder, 3600)

	require.NoError(t, s.OnDetection("PEAK"))

	state, startedAt, trigger := s.Status()
	assert.Equal(t, StateRecording, state)
	assert.False(t, startedAt.IsZero())
	assert.Equal(t, "PEAK", trigger)

	starts, _ := recorder.counts()
	assert.Equal(t, 1, starts)
}

func TestSessionDoubleDetectionStartsOnce(t *testing.T) {
	t.Parallel()

	recorder := &mockRecorder{}
	s := newTestSession(recorder, 3600)

	require.NoError(t, s.OnDetection("PEAK"))
	err := s.OnDetection("MOTION")
	assert.True(t, errors.Is(err, ErrAlreadyRecording))

	starts, _ := recorder.counts()
	assert.Equal(t, 1, starts, "second detection must not reach the backend")
}

func TestSessionOutOfBandRecordingRefused(t *testing.T) {
	t.Parallel()

	recorder := &mockRecorder{statusResult: true}
	s := newTestSession(recorder, 3600)

	err := s.OnDetection("PEAK")
	assert.True(t, errors.Is(err, ErrAlreadyRecording))

	state, _, _ := s.Status()
	assert.Equal(t, StateIdle, state)

	starts, _ := recorder.counts()
	assert.Equal(t, 0, starts, "no start call when backend already records")
}

func TestSessionBackendStartFailure(t *testing.T) {
	t.Parallel()

	recorder := &mockRecorder{failStart: true}
	s := newTestSession(recorder, 3600)

	err := s.OnDetection("PEAK")
	assert.True(t, errors.Is(err, ErrBackendStart))

	state, _, _ := s.Status()
	assert.Equal(t, StateIdle, state, "failed start leaves the session idle")
}

func TestSessionStatusQueryFailureStillStarts(t *testing.T) {
	t.Parallel()

	recorder := &mockRecorder{statusErr: errors.NewStd("connection reset")}
	s := newTestSession(recorder, 3600)

	require.NoError(t, s.OnDetection("RMS"))

	state, _, _ := s.Status()
	assert.Equal(t, StateRecording, state)
}

func TestSessionAutoStop(t *testing.T) {
	t.Parallel()

	recorder := &mockRecorder{}
	s := newTestSession(recorder, 1)

	require.NoError(t, s.OnDetection("PEAK"))

	// Auto-stop fires after the configured second.
	assert.Eventually(t, func() bool {
		state, _, _ := s.Status()
		return state == StateIdle
	}, 3*time.Second, 20*time.Millisecond)

	starts, stops := recorder.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, stops, "exactly one stop call from the timer")
}

func TestSessionManualStopCancelsTimer(t *testing.T) {
	t.Parallel()

	recorder := &mockRecorder{}
	s := newTestSession(recorder, 1)

	require.NoError(t, s.OnDetection("PEAK"))
	require.NoError(t, s.Stop())

	// Wait past the original auto-stop deadline; the cancelled timer must
	// not produce a second backend stop.
	time.Sleep(1500 * time.Millisecond)

	_, stops := recorder.counts()
	assert.Equal(t, 1, stops, "stale auto-stop timer must not fire after manual stop")

	state, _, _ := s.Status()
	assert.Equal(t, StateIdle, state)
}

func TestSessionStopWhenIdle(t *testing.T) {
	t.Parallel()

	recorder := &mockRecorder{}
	s := newTestSession(recorder, 3600)

	err := s.Stop()
	assert.True(t, errors.Is(err, ErrNotRecording))

	_, stops := recorder.counts()
	assert.Equal(t, 0, stops)
}

func TestSessionRestartAfterStop(t *testing.T) {
	t.Parallel()

	recorder := &mockRecorder{}
	s := newTestSession(recorder, 3600)

	require.NoError(t, s.OnDetection("PEAK"))
	require.NoError(t, s.Stop())
	require.NoError(t, s.OnDetection("MOTION"))

	state, _, trigger := s.Status()
	assert.Equal(t, StateRecording, state)
	assert.Equal(t, "MOTION", trigger)

	starts, stops := recorder.counts()
	assert.Equal(t, 2, starts)
	assert.Equal(t, 1, stops)
}

func TestSessionListeners(t *testing.T) {
	t.Parallel()

	recorder := &mockRecorder{}
	s := newTestSession(recorder, 3600)

	var mu sync.Mutex
	var transitions []State
	s.AddListener(func(state State, trigger string) {
		mu.Lock()
		transitions = append(transitions, state)
		mu.Unlock()
	})

	require.NoError(t, s.OnDetection("PEAK"))
	require.NoError(t, s.Stop())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateRecording, StateIdle}, transitions)
}

func TestSessionConcurrentDetections(t *testing.T) {
	t.Parallel()

	recorder := &mockRecorder{}
	s := newTestSession(recorder, 3600)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.OnDetection("PEAK")
		}()
	}
	wg.Wait()

	starts, _ := recorder.counts()
	assert.Equal(t, 1, starts, "racing detections must produce a single start")
}
