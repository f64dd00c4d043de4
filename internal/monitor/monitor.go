// Package monitor wires the samplers, the detection pipeline and the
// recording session together and runs them until shutdown.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tmakinen/recwatch/internal/backend"
	"github.com/tmakinen/recwatch/internal/conf"
	"github.com/tmakinen/recwatch/internal/detection"
	"github.com/tmakinen/recwatch/internal/httpcontroller"
	"github.com/tmakinen/recwatch/internal/logging"
	"github.com/tmakinen/recwatch/internal/mqtt"
	"github.com/tmakinen/recwatch/internal/observability"
	"github.com/tmakinen/recwatch/internal/sampler"
	"github.com/tmakinen/recwatch/internal/session"
)

// Options carries the pluggable pieces of the realtime pipeline. A nil
// FrameSource disables the motion sampler even when it is enabled in the
// configuration.
type Options struct {
	FrameSource sampler.FrameSource
}

// RunRealtime starts the detection and recording pipeline and blocks until
// SIGINT or SIGTERM.
func RunRealtime(settings *conf.Settings, opts Options) error {
	if settings.Debug {
		logging.SetLevel(slog.LevelDebug)
	}
	logger := logging.Structured().With("service", "monitor")

	logger.Info("starting realtime monitoring",
		"peak_threshold", settings.Realtime.Detection.PeakThreshold,
		"rms_threshold", settings.Realtime.Detection.RMSThreshold,
		"motion_area", settings.Realtime.Detection.MotionArea,
		"cooldown_s", settings.Realtime.Detection.CooldownPeriod,
		"recording_s", settings.Realtime.Detection.RecordingDuration)

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("error initializing metrics: %w", err)
	}

	// Connect to the recording backend first; without it every detection
	// would be a no-op.
	recorder := backend.NewOBSClient(&settings.Backend.OBS, logging.ForService("obs"))
	connectCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = recorder.Connect(connectCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("cannot reach recording backend: %w", err)
	}
	defer recorder.Disconnect()

	config := detection.NewConfig(&settings.Realtime.Detection)
	gate := detection.NewGate(config)
	dispatcher := detection.NewDispatcher(gate, metrics.Detection, logging.ForService("dispatcher"))
	sess := session.New(recorder, config, metrics.Recording, logging.ForService("session"))

	// Accepted detections drive the session. The session treats a running
	// recording as a defined no-op, so the callback ignores that result.
	dispatcher.Register(func(event *detection.Event) {
		label := fmt.Sprintf("%s:%s", event.Source, event.Kind)
		if err := sess.OnDetection(label); err != nil {
			logger.Debug("detection did not start a recording", "trigger", label, "reason", err)
		}
	})

	// MQTT is optional; a broker outage must not block detections.
	var mqttClient mqtt.Client
	if settings.Realtime.MQTT.Enabled {
		mqttClient = mqtt.NewClient(settings, metrics.MQTT)
		connectCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := mqttClient.Connect(connectCtx); err != nil {
			logger.Warn("MQTT connect failed, continuing without broker", "error", err)
		}
		cancel()

		publisher := mqtt.NewPublisher(mqttClient, settings.Realtime.MQTT.Topic, settings.Main.Name)
		dispatcher.Register(publisher.OnDetection)
		sess.AddListener(publisher.OnSessionChange)
		defer mqttClient.Disconnect()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var samplers []sampler.Sampler
	var audioSampler *sampler.AudioSampler
	var motionSampler *sampler.MotionSampler

	if settings.Realtime.Audio.Enabled {
		audioSampler = sampler.NewAudioSampler(&settings.Realtime.Audio, config, dispatcher, metrics.Detection)
		samplers = append(samplers, audioSampler)
	}
	if settings.Realtime.Motion.Enabled {
		if opts.FrameSource == nil {
			logger.Warn("motion sampler enabled but no frame source registered, skipping")
		} else {
			motionSampler = sampler.NewMotionSampler(&settings.Realtime.Motion, config, dispatcher, opts.FrameSource, metrics.Detection)
			samplers = append(samplers, motionSampler)
		}
	}
	if len(samplers) == 0 {
		return fmt.Errorf("no samplers enabled, nothing to monitor")
	}

	for _, s := range samplers {
		if err := s.Start(ctx); err != nil {
			return fmt.Errorf("failed to start %s sampler: %w", s.Name(), err)
		}
		defer s.Stop()
	}

	// Control surface for manual start/stop and live status.
	var httpServer *httpcontroller.Server
	if settings.WebServer.Enabled {
		httpServer = httpcontroller.New(settings, &httpcontroller.Deps{
			Session:  sess,
			Config:   config,
			Gate:     gate,
			Audio:    audioSampler,
			Motion:   motionSampler,
			Registry: metrics.Registry(),
		})
		httpServer.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("control surface shutdown failed", "error", err)
			}
		}()
	}

	if settings.Realtime.Telemetry.Enabled {
		go func() {
			if err := metrics.Serve(settings.Realtime.Telemetry.Listen); err != nil {
				logger.Error("telemetry endpoint failed", "error", err)
			}
		}()
	}

	go statusLoop(ctx, settings, sess, gate, audioSampler, motionSampler)

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping samplers")
	return nil
}

// statusLoop logs a status line at the configured interval so an operator
// tailing the log can see the pipeline is alive.
func statusLoop(ctx context.Context, settings *conf.Settings, sess *session.Session, gate *detection.Gate, audio *sampler.AudioSampler, motion *sampler.MotionSampler) {
	interval := time.Duration(settings.Realtime.StatusInterval) * time.Second
	if interval <= 0 {
		return
	}
	logger := logging.ForService("status")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state, startedAt, trigger := sess.Status()
			args := []any{"state", state}
			if state == session.StateRecording {
				args = append(args, "trigger", trigger, "elapsed", time.Since(startedAt).Round(time.Second))
			}
			if last := gate.LastAcceptedAt(); !last.IsZero() {
				args = append(args, "last_detection", last.Format(time.RFC3339))
			}
			if audio != nil {
				r := audio.LastReading()
				args = append(args, "peak", fmt.Sprintf("%.3f", r.Peak), "rms", fmt.Sprintf("%.4f", r.RMS))
			}
			if motion != nil {
				args = append(args, "motion_area", motion.LastReading().MaxContourArea)
			}
			logger.Info("monitoring", args...)
		}
	}
}
