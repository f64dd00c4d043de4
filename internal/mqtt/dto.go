// dto.go: data transfer objects for MQTT payloads.
package mqtt

import (
	"time"

	"github.com/tmakinen/recwatch/internal/detection"
	"github.com/tmakinen/recwatch/internal/session"
)

// DetectionDTO is the payload published for every accepted detection.
// Field names are part of the MQTT API contract; do not rename them.
type DetectionDTO struct {
	ID            string  `json:"id"`
	Source        string  `json:"source"`        // "audio" or "motion"
	Kind          string  `json:"kind"`          // PEAK, RMS or MOTION
	MeasuredValue float64 `json:"measuredValue"` // the value that crossed the threshold
	Timestamp     string  `json:"timestamp"`     // RFC3339
	Node          string  `json:"node"`          // node name from configuration
}

// RecordingDTO is the payload published for every session state change.
type RecordingDTO struct {
	State     string `json:"state"`             // "idle" or "recording"
	Trigger   string `json:"trigger,omitempty"` // what caused the transition
	Timestamp string `json:"timestamp"`         // RFC3339
	Node      string `json:"node"`              // node name from configuration
}

// NewDetectionDTO builds the publish payload for an accepted detection.
func NewDetectionDTO(event *detection.Event, node string) *DetectionDTO {
	return &DetectionDTO{
		ID:            event.ID,
		Source:        string(event.Source),
		Kind:          event.Kind,
		MeasuredValue: event.MeasuredValue,
		Timestamp:     event.Timestamp.Format(time.RFC3339),
		Node:          node,
	}
}

// NewRecordingDTO builds the publish payload for a session transition.
func NewRecordingDTO(state session.State, trigger, node string) *RecordingDTO {
	return &RecordingDTO{
		State:     string(state),
		Trigger:   trigger,
		Timestamp: time.Now().Format(time.RFC3339),
		Node:      node,
	}
}
