// Package backend abstracts the external recording service.
package backend

import "context"

// Recorder is the capability the recording session consumes. All four
// operations are synchronous; implementations must be safe to call when
// already in the matching state (a double stop may fail, which callers
// treat as informational only).
type Recorder interface {
	// Connect establishes the control connection to the recording service.
	Connect(ctx context.Context) error

	// IsRecording reports whether the service is currently recording,
	// including recordings started out-of-band.
	IsRecording() (bool, error)

	// StartRecording asks the service to begin capturing.
	StartRecording() error

	// StopRecording asks the service to stop capturing.
	StopRecording() error

	// Disconnect closes the control connection. Safe to call when not
	// connected.
	Disconnect()
}
