package detection

import (
	"log/slog"
	"sync"

	"github.com/tmakinen/recwatch/internal/observability/metrics"
)

// Callback is invoked synchronously on the sampler goroutine for every
// accepted detection. Callbacks must not block for long; a slow callback
// delays that sampler's next reading.
type Callback func(event *Event)

// Dispatcher filters candidate events through the shared cooldown gate and
// fans accepted events out to an ordered list of registered callbacks.
type Dispatcher struct {
	mu        sync.RWMutex
	gate      *Gate
	callbacks []Callback
	metrics   *metrics.DetectionMetrics
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher around the shared gate. The metrics
// collector may be nil when telemetry is disabled.
func NewDispatcher(gate *Gate, m *metrics.DetectionMetrics, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		gate:    gate,
		metrics: m,
		logger:  logger,
	}
}

// Register appends a callback to the fan-out list. Callbacks are invoked
// in registration order.
func (d *Dispatcher) Register(cb Callback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callbacks = append(d.callbacks, cb)
}

// Dispatch offers a candidate event to the gate and, if accepted, invokes
// every registered callback exactly once. Returns true when the event was
// accepted. Every candidate is counted, gated or not.
func (d *Dispatcher) Dispatch(event *Event) bool {
	if d.metrics != nil {
		d.metrics.RecordEvent(string(event.Source), event.Kind)
	}

	accepted := d.gate.TryAccept(event)
	if d.metrics != nil {
		d.metrics.RecordGateResult(accepted)
	}
	if !accepted {
		d.logger.Debug("detection suppressed by cooldown",
			"source", event.Source, "kind", event.Kind, "value", event.MeasuredValue)
		return false
	}

	d.logger.Info("detection accepted",
		"id", event.ID, "source", event.Source, "kind", event.Kind, "value", event.MeasuredValue)

	d.mu.RLock()
	callbacks := d.callbacks
	d.mu.RUnlock()

	for _, cb := range callbacks {
		cb(event)
	}
	return true
}
