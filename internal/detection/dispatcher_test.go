package detection

import (
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmakinen/recwatch/internal/observability/metrics"
)

func TestDispatcherInvokesCallbacksOnce(t *testing.T) {
	t.Parallel()

	gate, _ := newTestGate(30)
	dispatcher := NewDispatcher(gate, nil, slog.Default())

	var got []string
	dispatcher.Register(func(event *Event) {
		got = append(got, "first:"+event.Kind)
	})
	dispatcher.Register(func(event *Event) {
		got = append(got, "second:"+event.Kind)
	})

	event := newEvent(SourceAudio, KindPeak, 0.6, time.Now())
	require.True(t, dispatcher.Dispatch(&event))

	// Ordered fan-out, each callback exactly once.
	assert.Equal(t, []string{"first:PEAK", "second:PEAK"}, got)
}

func TestDispatcherDropsGatedEvents(t *testing.T) {
	t.Parallel()

	gate, clock := newTestGate(30)
	dispatcher := NewDispatcher(gate, nil, slog.Default())

	calls := 0
	dispatcher.Register(func(event *Event) { calls++ })

	first := newEvent(SourceAudio, KindPeak, 0.6, clock.Now())
	require.True(t, dispatcher.Dispatch(&first))

	clock.Advance(5 * time.Second)
	second := newEvent(SourceAudio, KindPeak, 0.7, clock.Now())
	assert.False(t, dispatcher.Dispatch(&second), "event inside cooldown must be dropped")

	assert.Equal(t, 1, calls)
}

func TestDispatcherCountsCandidatesAndGateResults(t *testing.T) {
	t.Parallel()

	gate, clock := newTestGate(30)
	m, err := metrics.NewDetectionMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	dispatcher := NewDispatcher(gate, m, slog.Default())

	first := newEvent(SourceAudio, KindPeak, 0.6, clock.Now())
	require.True(t, dispatcher.Dispatch(&first))

	clock.Advance(5 * time.Second)
	second := newEvent(SourceMotion, KindMotion, 2500, clock.Now())
	require.False(t, dispatcher.Dispatch(&second))

	// Every candidate is counted, including the suppressed one.
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("audio", "PEAK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("motion", "MOTION")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GateAccepted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GateSuppressed))
}

// Scenario from the detection design: thresholds {peak 0.5, rms 0.01},
// cooldown 30s, stream of three readings where only the second crosses and
// the third arrives 5s later.
func TestDispatcherClapScenario(t *testing.T) {
	t.Parallel()

	gate, clock := newTestGate(30)
	dispatcher := NewDispatcher(gate, nil, slog.Default())

	var kinds []string
	dispatcher.Register(func(event *Event) { kinds = append(kinds, event.Kind) })

	readings := []AudioReading{
		{Peak: 0.1, RMS: 0.001},
		{Peak: 0.6, RMS: 0.001},
		{Peak: 0.6, RMS: 0.001},
	}

	for i, r := range readings {
		r.Timestamp = clock.Now()
		if event, ok := EvaluateAudio(r, gate.config.Thresholds()); ok {
			dispatcher.Dispatch(&event)
		}
		if i == 1 {
			clock.Advance(5 * time.Second)
		}
	}

	assert.Equal(t, []string{"PEAK"}, kinds, "exactly one PEAK detection expected")
}
