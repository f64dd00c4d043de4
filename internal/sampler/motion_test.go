package sampler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmakinen/recwatch/internal/conf"
	"github.com/tmakinen/recwatch/internal/detection"
)

// fakeFrameSource scripts a sequence of readings and errors for the
// polling loop. Once the script is exhausted it keeps returning the last
// entry, or quiet frames if the script was empty.
type fakeFrameSource struct {
	mu        sync.Mutex
	opened    bool
	closed    bool
	openErr   error
	failOpens int // reopen attempts to reject after the first successful open
	script    []frameResult
	reads     int
	opens     int
}

type frameResult struct {
	area float64
	err  error
}

func (f *fakeFrameSource) Open(device int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.opens++
	if f.opens > 1 && f.failOpens > 0 {
		f.failOpens--
		return errors.New("device busy")
	}
	f.opened = true
	f.closed = false
	return nil
}

func (f *fakeFrameSource) Read() (detection.MotionReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if len(f.script) == 0 {
		return detection.MotionReading{Timestamp: time.Now()}, nil
	}
	r := f.script[0]
	if len(f.script) > 1 {
		f.script = f.script[1:]
	}
	if r.err != nil {
		return detection.MotionReading{}, r.err
	}
	return detection.MotionReading{MaxContourArea: r.area, Timestamp: time.Now()}, nil
}

func (f *fakeFrameSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeFrameSource) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *fakeFrameSource) wasClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeFrameSource) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func newMotionTestRig(t *testing.T, source *fakeFrameSource) (*MotionSampler, *detection.Config, *eventRecorder) {
	t.Helper()
	config := detection.NewConfig(&conf.DetectionSettings{
		PeakThreshold:     0.5,
		RMSThreshold:      0.01,
		MotionArea:        1000,
		CooldownPeriod:    30,
		RecordingDuration: 3600,
	})
	dispatcher := detection.NewDispatcher(detection.NewGate(config), nil, slog.Default())
	rec := &eventRecorder{}
	dispatcher.Register(rec.record)

	settings := &conf.MotionSettings{Enabled: true, Device: 0, PollInterval: 5}
	return NewMotionSampler(settings, config, dispatcher, source, nil), config, rec
}

// eventRecorder collects dispatched events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []detection.Event
}

func (r *eventRecorder) record(e *detection.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
}

func (r *eventRecorder) all() []detection.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]detection.Event(nil), r.events...)
}

func TestMotionSamplerOpenFailure(t *testing.T) {
	t.Parallel()

	source := &fakeFrameSource{openErr: errors.New("no such device")}
	sampler, _, _ := newMotionTestRig(t, source)

	err := sampler.Start(context.Background())
	require.Error(t, err)

	// Stop on a sampler that never started is a no-op.
	sampler.Stop()
}

func TestMotionSamplerDispatchesAboveThreshold(t *testing.T) {
	t.Parallel()

	source := &fakeFrameSource{script: []frameResult{
		{area: 500},  // below threshold
		{area: 1500}, // above threshold
	}}
	sampler, _, rec := newMotionTestRig(t, source)

	require.NoError(t, sampler.Start(context.Background()))
	defer sampler.Stop()

	assert.Eventually(t, func() bool {
		events := rec.all()
		return len(events) == 1 && events[0].Kind == detection.KindMotion
	}, time.Second, 5*time.Millisecond)

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, detection.SourceMotion, events[0].Source)
	assert.InDelta(t, 1500.0, events[0].MeasuredValue, 0.001)
}

func TestMotionSamplerBoundaryAreaNotDispatched(t *testing.T) {
	t.Parallel()

	// Exactly at the threshold must not fire; the comparison is strict.
	source := &fakeFrameSource{script: []frameResult{{area: 1000}}}
	sampler, _, rec := newMotionTestRig(t, source)

	require.NoError(t, sampler.Start(context.Background()))
	defer sampler.Stop()

	assert.Eventually(t, func() bool {
		return source.readCount() >= 3
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, rec.all())
}

func TestMotionSamplerToleratesTransientErrors(t *testing.T) {
	t.Parallel()

	source := &fakeFrameSource{script: []frameResult{
		{err: errors.New("frame grab failed")},
		{err: errors.New("frame grab failed")},
		{area: 2000},
	}}
	sampler, _, rec := newMotionTestRig(t, source)

	require.NoError(t, sampler.Start(context.Background()))
	defer sampler.Stop()

	assert.Eventually(t, func() bool {
		return len(rec.all()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMotionSamplerReopensCameraAfterRepeatedErrors(t *testing.T) {
	t.Parallel()

	script := make([]frameResult, maxFrameFailures)
	for i := range script {
		script[i] = frameResult{err: errors.New("camera unplugged")}
	}
	script = append(script, frameResult{area: 2000})
	source := &fakeFrameSource{script: script}
	sampler, _, rec := newMotionTestRig(t, source)
	sampler.reopenBackoff = time.Millisecond

	require.NoError(t, sampler.Start(context.Background()))
	defer sampler.Stop()

	// The camera comes back after a reopen and readings flow again.
	assert.Eventually(t, func() bool {
		return source.openCount() >= 2 && len(rec.all()) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestMotionSamplerReopenRetriesUntilDeviceReturns(t *testing.T) {
	t.Parallel()

	script := make([]frameResult, maxFrameFailures)
	for i := range script {
		script[i] = frameResult{err: errors.New("camera unplugged")}
	}
	script = append(script, frameResult{area: 2000})
	source := &fakeFrameSource{script: script, failOpens: 2}
	sampler, _, rec := newMotionTestRig(t, source)
	sampler.reopenBackoff = time.Millisecond

	require.NoError(t, sampler.Start(context.Background()))
	defer sampler.Stop()

	assert.Eventually(t, func() bool {
		return len(rec.all()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	// Initial open, two rejected reopen attempts, then the one that stuck.
	assert.Equal(t, 4, source.openCount())
}

func TestMotionSamplerStopClosesSource(t *testing.T) {
	t.Parallel()

	source := &fakeFrameSource{}
	sampler, _, _ := newMotionTestRig(t, source)

	require.NoError(t, sampler.Start(context.Background()))
	assert.Eventually(t, func() bool {
		return source.readCount() > 0
	}, time.Second, 5*time.Millisecond)

	sampler.Stop()
	assert.True(t, source.wasClosed())

	// Second stop is idempotent.
	sampler.Stop()
}

func TestMotionSamplerDoubleStart(t *testing.T) {
	t.Parallel()

	source := &fakeFrameSource{}
	sampler, _, _ := newMotionTestRig(t, source)

	require.NoError(t, sampler.Start(context.Background()))
	defer sampler.Stop()

	// Start on a running sampler is a logged no-op.
	require.NoError(t, sampler.Start(context.Background()))
}

func TestMotionSamplerLastReading(t *testing.T) {
	t.Parallel()

	source := &fakeFrameSource{script: []frameResult{{area: 250}}}
	sampler, _, _ := newMotionTestRig(t, source)

	require.NoError(t, sampler.Start(context.Background()))
	defer sampler.Stop()

	assert.Eventually(t, func() bool {
		return sampler.LastReading().MaxContourArea == 250
	}, time.Second, 5*time.Millisecond)
}
