// level.go: peak and RMS computation over raw capture buffers.
package sampler

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/tmakinen/recwatch/internal/conf"
	"github.com/tmakinen/recwatch/internal/detection"
)

// computeAudioReading calculates the normalized peak and RMS amplitude of
// a buffer of S16LE samples. Peak catches short transients like claps,
// RMS sustained sounds. Both values are normalized to [0,1].
func computeAudioReading(samples []byte, ts time.Time) detection.AudioReading {
	if len(samples) == 0 {
		return detection.AudioReading{Timestamp: ts}
	}

	// Ensure we have an even number of bytes (16-bit samples)
	if len(samples)%2 != 0 {
		samples = samples[:len(samples)-1]
	}

	var sumSquares float64
	maxSample := float64(0)
	sampleCount := len(samples) / 2

	for i := 0; i < len(samples); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(samples[i : i+2]))
		sampleAbs := math.Abs(float64(sample))
		sumSquares += sampleAbs * sampleAbs

		if sampleAbs > maxSample {
			maxSample = sampleAbs
		}
	}

	if sampleCount == 0 {
		return detection.AudioReading{Timestamp: ts}
	}

	peak := maxSample / conf.FullScale

	// A degenerate buffer can produce a negative or NaN mean square;
	// report silence on the RMS path rather than propagating it.
	meanSquare := sumSquares / float64(sampleCount)
	rms := 0.0
	if meanSquare >= 0 && !math.IsNaN(meanSquare) {
		rms = math.Sqrt(meanSquare) / conf.FullScale
	}

	return detection.AudioReading{
		Peak:      peak,
		RMS:       rms,
		Timestamp: ts,
	}
}
