package detection

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tmakinen/recwatch/internal/conf"
)

func newTestConfig(cooldownSeconds int) *Config {
	return NewConfig(&conf.DetectionSettings{
		PeakThreshold:     0.5,
		RMSThreshold:      0.01,
		MotionArea:        1000,
		CooldownPeriod:    cooldownSeconds,
		RecordingDuration: 3600,
	})
}

// fakeClock lets tests drive the gate's notion of time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestGate(cooldownSeconds int) (*Gate, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	gate := NewGate(newTestConfig(cooldownSeconds))
	gate.now = clock.Now
	return gate, clock
}

func TestGateFirstEventAlwaysPasses(t *testing.T) {
	t.Parallel()

	gate, _ := newTestGate(30)
	event := newEvent(SourceAudio, KindPeak, 0.6, time.Now())
	assert.True(t, gate.TryAccept(&event))
}

func TestGateSuppressesWithinCooldown(t *testing.T) {
	t.Parallel()

	gate, clock := newTestGate(30)

	// N events inside the window: exactly the first is accepted.
	accepted := 0
	for i := 0; i < 10; i++ {
		event := newEvent(SourceAudio, KindPeak, 0.6, clock.Now())
		if gate.TryAccept(&event) {
			accepted++
		}
		clock.Advance(2 * time.Second)
	}
	assert.Equal(t, 1, accepted)
}

func TestGateReopensAfterCooldown(t *testing.T) {
	t.Parallel()

	gate, clock := newTestGate(30)

	first := newEvent(SourceAudio, KindPeak, 0.6, clock.Now())
	assert.True(t, gate.TryAccept(&first))

	clock.Advance(30*time.Second + time.Millisecond)
	second := newEvent(SourceMotion, KindMotion, 2000, clock.Now())
	assert.True(t, gate.TryAccept(&second))
}

func TestGateSharedAcrossSources(t *testing.T) {
	t.Parallel()

	gate, clock := newTestGate(30)

	audio := newEvent(SourceAudio, KindPeak, 0.6, clock.Now())
	assert.True(t, gate.TryAccept(&audio))

	// A motion event right after an audio event must hit the same window.
	clock.Advance(time.Second)
	motion := newEvent(SourceMotion, KindMotion, 5000, clock.Now())
	assert.False(t, gate.TryAccept(&motion))
}

func TestGateReset(t *testing.T) {
	t.Parallel()

	gate, clock := newTestGate(30)

	first := newEvent(SourceAudio, KindPeak, 0.6, clock.Now())
	assert.True(t, gate.TryAccept(&first))
	assert.False(t, gate.LastAcceptedAt().IsZero())

	gate.Reset()
	assert.True(t, gate.LastAcceptedAt().IsZero())

	second := newEvent(SourceAudio, KindRMS, 0.02, clock.Now())
	assert.True(t, gate.TryAccept(&second), "gate should be open again after reset")
}

func TestGateConcurrentRace(t *testing.T) {
	t.Parallel()

	// Two samplers race for the same window: exactly one wins, no matter
	// which. Real clock here, the window is far longer than the test.
	gate := NewGate(newTestConfig(3600))

	const goroutines = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			event := newEvent(SourceAudio, KindPeak, 0.7, time.Now())
			if gate.TryAccept(&event) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted, "exactly one racing event should win the gate")
}
