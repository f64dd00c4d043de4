// conf/validate.go

package conf

import (
	"errors"
	"fmt"
	"strconv"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateAudioSettings(&settings.Realtime.Audio); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateMotionSettings(&settings.Realtime.Motion); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateDetectionSettings(&settings.Realtime.Detection); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateBackendSettings(&settings.Backend); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateWebServerSettings(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}

	return nil
}

func validateAudioSettings(audio *AudioSettings) error {
	if !audio.Enabled {
		return nil
	}
	if audio.SampleRate <= 0 {
		return fmt.Errorf("audio sample rate must be positive, got %d", audio.SampleRate)
	}
	if audio.BufferSize <= 0 {
		return fmt.Errorf("audio buffer size must be positive, got %d", audio.BufferSize)
	}
	return nil
}

func validateMotionSettings(motion *MotionSettings) error {
	if !motion.Enabled {
		return nil
	}
	if motion.Device < 0 {
		return fmt.Errorf("motion device index must not be negative, got %d", motion.Device)
	}
	if motion.PollInterval <= 0 {
		return fmt.Errorf("motion poll interval must be positive, got %d", motion.PollInterval)
	}
	return nil
}

func validateDetectionSettings(d *DetectionSettings) error {
	if d.PeakThreshold < 0 || d.PeakThreshold > 1 {
		return fmt.Errorf("peak threshold must be in [0,1], got %f", d.PeakThreshold)
	}
	if d.RMSThreshold < 0 || d.RMSThreshold > 1 {
		return fmt.Errorf("RMS threshold must be in [0,1], got %f", d.RMSThreshold)
	}
	if d.MotionArea < 0 {
		return fmt.Errorf("motion area threshold must not be negative, got %f", d.MotionArea)
	}
	if d.CooldownPeriod < 0 {
		return fmt.Errorf("cooldown period must not be negative, got %d", d.CooldownPeriod)
	}
	if d.RecordingDuration <= 0 {
		return fmt.Errorf("recording duration must be positive, got %d", d.RecordingDuration)
	}
	return nil
}

func validateBackendSettings(b *BackendSettings) error {
	if b.OBS.Host == "" {
		return errors.New("OBS host must not be empty")
	}
	if b.OBS.Port <= 0 || b.OBS.Port > 65535 {
		return fmt.Errorf("OBS port must be a valid port number, got %d", b.OBS.Port)
	}
	return nil
}

func validateWebServerSettings(settings *Settings) error {
	if !settings.WebServer.Enabled {
		return nil
	}
	port, err := strconv.Atoi(settings.WebServer.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid web server port: %s", settings.WebServer.Port)
	}
	return nil
}
