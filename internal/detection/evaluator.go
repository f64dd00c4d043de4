package detection

import "math"

// EvaluateAudio maps an audio reading to a detection event. Peak is the
// primary detector (short transients like claps), RMS the backup for
// sustained sounds, so a reading crossing both thresholds is labeled PEAK.
// Returns false when neither threshold is crossed.
func EvaluateAudio(r AudioReading, t Thresholds) (Event, bool) {
	peak := r.Peak
	rms := r.RMS

	// Degenerate buffers can yield NaN through a negative mean square;
	// treat such readings as silent on the RMS path.
	if math.IsNaN(rms) || rms < 0 {
		rms = 0
	}
	if math.IsNaN(peak) || peak < 0 {
		peak = 0
	}

	switch {
	case peak > t.Peak:
		return newEvent(SourceAudio, KindPeak, peak, r.Timestamp), true
	case rms > t.RMS:
		return newEvent(SourceAudio, KindRMS, rms, r.Timestamp), true
	default:
		return Event{}, false
	}
}

// EvaluateMotion maps a motion reading to a detection event. Returns false
// when the largest foreground contour stays under the area threshold.
func EvaluateMotion(r MotionReading, t Thresholds) (Event, bool) {
	if r.MaxContourArea > t.MotionArea {
		return newEvent(SourceMotion, KindMotion, r.MaxContourArea, r.Timestamp), true
	}
	return Event{}, false
}
