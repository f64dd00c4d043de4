package httpcontroller

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tmakinen/recwatch/internal/session"
)

// statusResponse is the live pipeline snapshot returned by /api/v1/status.
type statusResponse struct {
	State         string          `json:"state"`
	Trigger       string          `json:"trigger,omitempty"`
	StartedAt     string          `json:"startedAt,omitempty"`
	ElapsedSec    float64         `json:"elapsedSec,omitempty"`
	LastDetection string          `json:"lastDetection,omitempty"`
	Audio         *audioLevels    `json:"audio,omitempty"`
	Motion        *motionActivity `json:"motion,omitempty"`
}

type audioLevels struct {
	Peak float64 `json:"peak"`
	RMS  float64 `json:"rms"`

	// Waveform carries base64 S16LE samples captured since the previous
	// levels poll. Only set by /api/v1/levels.
	Waveform string `json:"waveform,omitempty"`
}

type motionActivity struct {
	MaxContourArea float64 `json:"maxContourArea"`
}

// thresholdsPayload carries runtime-tunable detection parameters. Pointer
// fields distinguish "not provided" from zero so a PATCH can update a
// single value.
type thresholdsPayload struct {
	Peak              *float64 `json:"peak,omitempty"`
	RMS               *float64 `json:"rms,omitempty"`
	MotionArea        *float64 `json:"motionArea,omitempty"`
	CooldownSec       *float64 `json:"cooldownSec,omitempty"`
	RecordingDuration *float64 `json:"recordingDurationSec,omitempty"`
}

func (s *Server) handleStatus(c echo.Context) error {
	state, startedAt, trigger := s.deps.Session.Status()

	resp := statusResponse{State: string(state)}
	if state == session.StateRecording {
		resp.Trigger = trigger
		resp.StartedAt = startedAt.Format(time.RFC3339)
		resp.ElapsedSec = time.Since(startedAt).Seconds()
	}
	if last := s.deps.Gate.LastAcceptedAt(); !last.IsZero() {
		resp.LastDetection = last.Format(time.RFC3339)
	}
	if s.deps.Audio != nil {
		r := s.deps.Audio.LastReading()
		resp.Audio = &audioLevels{Peak: r.Peak, RMS: r.RMS}
	}
	if s.deps.Motion != nil {
		resp.Motion = &motionActivity{MaxContourArea: s.deps.Motion.LastReading().MaxContourArea}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleLevels(c echo.Context) error {
	resp := statusResponse{}
	if s.deps.Audio != nil {
		r := s.deps.Audio.LastReading()
		resp.Audio = &audioLevels{
			Peak:     r.Peak,
			RMS:      r.RMS,
			Waveform: base64.StdEncoding.EncodeToString(s.deps.Audio.DrainWaveform()),
		}
	}
	if s.deps.Motion != nil {
		resp.Motion = &motionActivity{MaxContourArea: s.deps.Motion.LastReading().MaxContourArea}
	}
	return c.JSON(http.StatusOK, resp)
}

// handleStartRecording starts a recording manually, bypassing the cooldown
// gate. An active recording is a conflict, not an error.
func (s *Server) handleStartRecording(c echo.Context) error {
	err := s.deps.Session.OnDetection("manual")
	switch {
	case errors.Is(err, session.ErrAlreadyRecording):
		return c.JSON(http.StatusConflict, map[string]string{"error": "recording already in progress"})
	case err != nil:
		s.logger.Error("manual start failed", "error", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "backend failed to start recording"})
	}
	return c.JSON(http.StatusOK, map[string]string{"state": string(session.StateRecording)})
}

func (s *Server) handleStopRecording(c echo.Context) error {
	err := s.deps.Session.Stop()
	if errors.Is(err, session.ErrNotRecording) {
		return c.JSON(http.StatusConflict, map[string]string{"error": "no recording in progress"})
	}
	return c.JSON(http.StatusOK, map[string]string{"state": string(session.StateIdle)})
}

func (s *Server) handleGetThresholds(c echo.Context) error {
	t := s.deps.Config.Thresholds()
	cooldown := s.deps.Config.CooldownPeriod().Seconds()
	recording := s.deps.Config.RecordingDuration().Seconds()
	return c.JSON(http.StatusOK, thresholdsPayload{
		Peak:              &t.Peak,
		RMS:               &t.RMS,
		MotionArea:        &t.MotionArea,
		CooldownSec:       &cooldown,
		RecordingDuration: &recording,
	})
}

// handleUpdateThresholds applies a partial update to the detection
// parameters. New values take effect from the next evaluation cycle;
// recordings already running keep their armed auto-stop timer.
func (s *Server) handleUpdateThresholds(c echo.Context) error {
	var payload thresholdsPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	t := s.deps.Config.Thresholds()
	if payload.Peak != nil {
		if *payload.Peak < 0 || *payload.Peak > 1 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "peak must be within [0,1]"})
		}
		t.Peak = *payload.Peak
	}
	if payload.RMS != nil {
		if *payload.RMS < 0 || *payload.RMS > 1 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "rms must be within [0,1]"})
		}
		t.RMS = *payload.RMS
	}
	if payload.MotionArea != nil {
		if *payload.MotionArea < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "motionArea must be non-negative"})
		}
		t.MotionArea = *payload.MotionArea
	}
	s.deps.Config.SetThresholds(t)

	if payload.CooldownSec != nil {
		if *payload.CooldownSec < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "cooldownSec must be non-negative"})
		}
		s.deps.Config.SetCooldownPeriod(time.Duration(*payload.CooldownSec * float64(time.Second)))
	}
	if payload.RecordingDuration != nil {
		if *payload.RecordingDuration <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "recordingDurationSec must be positive"})
		}
		s.deps.Config.SetRecordingDuration(time.Duration(*payload.RecordingDuration * float64(time.Second)))
	}

	s.logger.Info("detection parameters updated",
		"peak", t.Peak, "rms", t.RMS, "motion_area", t.MotionArea)
	return s.handleGetThresholds(c)
}
