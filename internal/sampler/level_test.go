package sampler

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeS16 packs int16 samples as little endian bytes.
func encodeS16(samples ...int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func TestComputeAudioReadingSilence(t *testing.T) {
	t.Parallel()

	reading := computeAudioReading(encodeS16(0, 0, 0, 0), time.Now())
	assert.Zero(t, reading.Peak)
	assert.Zero(t, reading.RMS)
}

func TestComputeAudioReadingEmptyBuffer(t *testing.T) {
	t.Parallel()

	reading := computeAudioReading(nil, time.Now())
	assert.Zero(t, reading.Peak)
	assert.Zero(t, reading.RMS)
	assert.False(t, math.IsNaN(reading.RMS))
}

func TestComputeAudioReadingFullScale(t *testing.T) {
	t.Parallel()

	reading := computeAudioReading(encodeS16(32767, -32768, 32767, -32768), time.Now())
	assert.InDelta(t, 1.0, reading.Peak, 0.001)
	assert.InDelta(t, 1.0, reading.RMS, 0.001)
}

func TestComputeAudioReadingPeakExceedsRMS(t *testing.T) {
	t.Parallel()

	// One loud transient in an otherwise quiet buffer: peak should be
	// high while the RMS stays low.
	samples := make([]int16, 1024)
	samples[100] = 30000
	reading := computeAudioReading(encodeS16(samples...), time.Now())

	assert.InDelta(t, 30000.0/32768.0, reading.Peak, 0.001)
	assert.Less(t, reading.RMS, 0.1)
	assert.Greater(t, reading.RMS, 0.0)
}

func TestComputeAudioReadingConstantTone(t *testing.T) {
	t.Parallel()

	// A constant amplitude signal has RMS equal to its peak.
	samples := make([]int16, 512)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 16384
		} else {
			samples[i] = -16384
		}
	}
	reading := computeAudioReading(encodeS16(samples...), time.Now())

	require.InDelta(t, 0.5, reading.Peak, 0.001)
	assert.InDelta(t, 0.5, reading.RMS, 0.001)
}

func TestComputeAudioReadingOddByteCount(t *testing.T) {
	t.Parallel()

	// A trailing partial sample is dropped rather than misread.
	buf := append(encodeS16(1000, 2000), 0x7f)
	reading := computeAudioReading(buf, time.Now())

	assert.InDelta(t, 2000.0/32768.0, reading.Peak, 0.001)
}

func TestComputeAudioReadingTimestampPreserved(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reading := computeAudioReading(encodeS16(100), ts)
	assert.Equal(t, ts, reading.Timestamp)
}
