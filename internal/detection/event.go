// Package detection implements the threshold evaluation and debouncing
// pipeline that turns raw sensor readings into recording triggers.
package detection

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies which sensor produced a reading or event.
type Source string

const (
	SourceAudio  Source = "audio"
	SourceMotion Source = "motion"
)

// Detection kinds. PEAK and RMS classify audio events, MOTION is the only
// kind for the camera path.
const (
	KindPeak   = "PEAK"
	KindRMS    = "RMS"
	KindMotion = "MOTION"
)

// AudioReading is a single evaluated capture buffer, normalized to [0,1].
type AudioReading struct {
	Peak      float64   // max(|sample|)/fullScale over the buffer
	RMS       float64   // sqrt(mean(sample^2))/fullScale over the buffer
	Timestamp time.Time // when the buffer was read
}

// MotionReading is a single evaluated camera frame.
type MotionReading struct {
	MaxContourArea float64   // largest foreground contour area in pixels
	Timestamp      time.Time // when the frame was captured
}

// Event is a single threshold crossing. Events are created by the
// evaluators, consumed once by the cooldown gate and never persisted.
type Event struct {
	ID            string    // unique event ID for log and MQTT correlation
	Source        Source    // which sensor fired
	Kind          string    // PEAK, RMS or MOTION
	MeasuredValue float64   // the value that crossed the threshold
	Timestamp     time.Time // when the crossing was observed
}

// newEvent stamps an event with an ID and timestamp. The timestamp comes
// from the reading so evaluation latency does not skew it.
func newEvent(source Source, kind string, value float64, ts time.Time) Event {
	return Event{
		ID:            uuid.New().String(),
		Source:        source,
		Kind:          kind,
		MeasuredValue: value,
		Timestamp:     ts,
	}
}
