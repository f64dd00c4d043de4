// Package sampler wraps the physical sensors and feeds the detection
// pipeline. Each sampler runs on its own goroutine and owns its device
// handle; the only shared state it touches is the detection dispatcher.
package sampler

import "context"

// Sampler is the lifecycle contract for a sensor wrapper.
type Sampler interface {
	// Name identifies the sampler in logs and status output.
	Name() string

	// Start begins producing readings. An initialization failure (device
	// busy or absent) is returned as an error and affects only this
	// sampler. Start on a running sampler logs and returns nil.
	Start(ctx context.Context) error

	// Stop signals termination and blocks until the sampler's goroutine
	// has exited and the device handle is released. Idempotent.
	Stop()
}
