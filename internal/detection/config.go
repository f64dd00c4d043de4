package detection

import (
	"sync"
	"time"

	"github.com/tmakinen/recwatch/internal/conf"
)

// Thresholds is an immutable snapshot of the detection thresholds,
// taken once per evaluation cycle.
type Thresholds struct {
	Peak       float64 // normalized peak amplitude threshold
	RMS        float64 // normalized RMS amplitude threshold
	MotionArea float64 // minimum contour area in pixels
}

// Config holds the runtime-mutable detection parameters. Writers come from
// the control surface, readers are the sampler goroutines; consistency
// requirement is only eventual visibility to the next evaluation cycle.
type Config struct {
	mu                sync.RWMutex
	thresholds        Thresholds
	cooldownPeriod    time.Duration
	recordingDuration time.Duration
}

// NewConfig builds a Config from the loaded settings.
func NewConfig(s *conf.DetectionSettings) *Config {
	return &Config{
		thresholds: Thresholds{
			Peak:       s.PeakThreshold,
			RMS:        s.RMSThreshold,
			MotionArea: s.MotionArea,
		},
		cooldownPeriod:    time.Duration(s.CooldownPeriod) * time.Second,
		recordingDuration: time.Duration(s.RecordingDuration) * time.Second,
	}
}

// Thresholds returns the current threshold snapshot.
func (c *Config) Thresholds() Thresholds {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.thresholds
}

// SetThresholds replaces the threshold snapshot.
func (c *Config) SetThresholds(t Thresholds) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.thresholds = t
}

// CooldownPeriod returns the minimum interval between accepted detections.
func (c *Config) CooldownPeriod() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cooldownPeriod
}

// SetCooldownPeriod replaces the cooldown period.
func (c *Config) SetCooldownPeriod(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cooldownPeriod = d
}

// RecordingDuration returns how long a triggered recording runs before
// the auto-stop fires.
func (c *Config) RecordingDuration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.recordingDuration
}

// SetRecordingDuration replaces the recording duration. Sessions already
// recording keep their armed timer; the new value applies from the next start.
func (c *Config) SetRecordingDuration(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recordingDuration = d
}
