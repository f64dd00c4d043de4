package sampler

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"
	"unsafe"

	"github.com/gen2brain/malgo"
	"github.com/smallnest/ringbuffer"

	"github.com/tmakinen/recwatch/internal/conf"
	"github.com/tmakinen/recwatch/internal/detection"
	"github.com/tmakinen/recwatch/internal/errors"
	"github.com/tmakinen/recwatch/internal/logging"
	"github.com/tmakinen/recwatch/internal/observability/metrics"
)

// captureSource holds the device selected for capture.
type captureSource struct {
	Name    string
	ID      string
	Pointer unsafe.Pointer
}

// AudioSampler captures audio frames with miniaudio and feeds per-buffer
// peak and RMS readings through the detection dispatcher.
type AudioSampler struct {
	settings   *conf.AudioSettings
	config     *detection.Config
	dispatcher *detection.Dispatcher
	metrics    *metrics.DetectionMetrics
	logger     *slog.Logger

	mu      sync.Mutex
	running bool
	quit    chan struct{}
	restart chan struct{}
	done    chan struct{}

	readingMu sync.RWMutex
	reading   detection.AudioReading

	// waveform keeps the most recent raw samples for the live level API
	waveform *ringbuffer.RingBuffer
}

// NewAudioSampler wires an audio sampler to the shared dispatcher. The
// sampler does not open the device until Start is called.
func NewAudioSampler(settings *conf.AudioSettings, config *detection.Config, dispatcher *detection.Dispatcher, m *metrics.DetectionMetrics) *AudioSampler {
	return &AudioSampler{
		settings:   settings,
		config:     config,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logging.ForService("audio-sampler"),
		waveform:   ringbuffer.New(settings.SampleRate * conf.NumChannels * 2), // one second of S16 mono
	}
}

// Name implements Sampler.
func (a *AudioSampler) Name() string { return "audio" }

// LastReading returns the peak and RMS of the most recently captured buffer.
func (a *AudioSampler) LastReading() detection.AudioReading {
	a.readingMu.RLock()
	defer a.readingMu.RUnlock()
	return a.reading
}

// DrainWaveform returns and consumes the raw S16LE samples captured since
// the last call, oldest first. At most one second of audio is retained, so
// a slow poller sees the most recent window rather than an ever-growing
// backlog.
func (a *AudioSampler) DrainWaveform() []byte {
	n := a.waveform.Length()
	if n == 0 {
		return nil
	}
	buf := make([]byte, n)
	read, err := a.waveform.Read(buf)
	if err != nil {
		return nil
	}
	return buf[:read]
}

// Start opens the configured capture device and begins sampling. It returns
// an error if the device cannot be initialized; once running it keeps the
// device alive until Stop is called or ctx is cancelled, restarting the
// device after transient stops.
func (a *AudioSampler) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		a.logger.Warn("audio sampler already running, ignoring start")
		return nil
	}

	a.quit = make(chan struct{})
	a.restart = make(chan struct{}, 1)
	a.done = make(chan struct{})

	if err := a.openAndRun(ctx); err != nil {
		close(a.done)
		return err
	}

	a.running = true
	return nil
}

// Stop closes the capture device and waits for the sampling goroutine to
// exit. It is safe to call on a sampler that never started.
func (a *AudioSampler) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return
	}
	close(a.quit)
	<-a.done
	a.running = false
}

// openAndRun initializes the malgo context and device and launches the
// goroutine that owns them for the lifetime of the sampler.
func (a *AudioSampler) openAndRun(ctx context.Context) error {
	// ALSA on Linux, otherwise let miniaudio pick the platform backend
	var backend malgo.Backend
	switch runtime.GOOS {
	case "linux":
		backend = malgo.BackendAlsa
	case "windows":
		backend = malgo.BackendWasapi
	case "darwin":
		backend = malgo.BackendCoreaudio
	}

	malgoCtx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, func(message string) {
		a.logger.Debug("miniaudio", "message", strings.TrimSpace(message))
	})
	if err != nil {
		return errors.New(err).
			Component("sampler").
			Category(errors.CategoryAudioSource).
			Context("operation", "init-context").
			Build()
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = conf.NumChannels
	deviceConfig.SampleRate = uint32(a.settings.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(a.settings.BufferSize)
	deviceConfig.Alsa.NoMMap = 1

	infos, err := malgoCtx.Devices(malgo.Capture)
	if err != nil {
		malgoCtx.Uninit() //nolint:errcheck
		return errors.New(err).
			Component("sampler").
			Category(errors.CategoryAudioSource).
			Context("operation", "enumerate-devices").
			Build()
	}

	source, err := selectCaptureSource(a.settings.Source, infos)
	if err != nil {
		malgoCtx.Uninit() //nolint:errcheck
		return errors.New(err).
			Component("sampler").
			Category(errors.CategoryAudioSource).
			Context("operation", "select-device").
			Context("source", a.settings.Source).
			Build()
	}
	deviceConfig.Capture.DeviceID = source.Pointer

	var device *malgo.Device

	onReceiveFrames := func(_, pSamples []byte, _ uint32) {
		a.handleSamples(pSamples)
	}

	// Called when the device stops, normally or unexpectedly. Unexpected
	// stops get one in-place restart attempt before a full reopen.
	onStopDevice := func() {
		go func() {
			select {
			case <-a.quit:
				return
			case <-time.After(100 * time.Millisecond):
				if err := device.Start(); err != nil {
					a.logger.Error("failed to restart audio device, scheduling reopen", "error", err)
					select {
					case a.restart <- struct{}{}:
					default:
					}
				}
			}
		}()
	}

	device, err = malgo.InitDevice(malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onReceiveFrames,
		Stop: onStopDevice,
	})
	if err != nil {
		malgoCtx.Uninit() //nolint:errcheck
		return errors.New(err).
			Component("sampler").
			Category(errors.CategoryAudioSource).
			Context("operation", "init-device").
			Context("device", source.Name).
			Build()
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		malgoCtx.Uninit() //nolint:errcheck
		return errors.New(err).
			Component("sampler").
			Category(errors.CategoryAudioSource).
			Context("operation", "start-device").
			Context("device", source.Name).
			Build()
	}

	a.logger.Info("listening on audio source", "device", source.Name, "id", source.ID)

	go func() {
		defer close(a.done)
		defer malgoCtx.Uninit() //nolint:errcheck
		defer device.Uninit()
		for {
			select {
			case <-a.quit:
				return
			case <-ctx.Done():
				return
			case <-a.restart:
				a.logger.Warn("reopening audio device")
				device.Uninit()
				backoff := time.Second
				for {
					device2, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
						Data: onReceiveFrames,
						Stop: onStopDevice,
					})
					if err == nil {
						err = device2.Start()
						if err == nil {
							device = device2
							break
						}
						device2.Uninit()
					}
					if a.metrics != nil {
						a.metrics.RecordSamplerError("audio")
					}
					a.logger.Warn("audio device reopen failed", "retry_in", backoff, "error", err)
					select {
					case <-a.quit:
						return
					case <-ctx.Done():
						return
					case <-time.After(backoff):
					}
					backoff *= 2
					if backoff > maxReopenBackoff {
						backoff = maxReopenBackoff
					}
				}
			}
		}
	}()

	return nil
}

// handleSamples runs on the miniaudio callback thread. It keeps the work
// bounded: level math, cache update, one dispatcher call.
func (a *AudioSampler) handleSamples(pSamples []byte) {
	now := time.Now()
	reading := computeAudioReading(pSamples, now)

	a.readingMu.Lock()
	a.reading = reading
	a.readingMu.Unlock()

	if a.waveform.Free() < len(pSamples) {
		a.waveform.Reset()
	}
	a.waveform.Write(pSamples) //nolint:errcheck

	if a.metrics != nil {
		a.metrics.UpdateAudioLevel(reading.Peak, reading.RMS)
	}

	thresholds := a.config.Thresholds()
	event, ok := detection.EvaluateAudio(reading, thresholds)
	if !ok {
		return
	}

	a.logger.Info("audio trigger",
		"kind", event.Kind,
		"peak", fmt.Sprintf("%.3f", reading.Peak),
		"rms", fmt.Sprintf("%.4f", reading.RMS))
	a.dispatcher.Dispatch(&event)
}

// selectCaptureSource picks the capture device matching the configured
// source by decoded ID or name substring.
func selectCaptureSource(audioSource string, infos []malgo.DeviceInfo) (captureSource, error) {
	for _, info := range infos {
		decodedID, err := hexToASCII(info.ID.String())
		if err != nil {
			continue
		}
		if matchesDeviceSettings(decodedID, info, audioSource) {
			return captureSource{
				Name:    info.Name(),
				ID:      decodedID,
				Pointer: info.ID.Pointer(),
			}, nil
		}
	}
	return captureSource{}, fmt.Errorf("no capture source matches %q", audioSource)
}

// matchesDeviceSettings checks if the device matches the configured source.
func matchesDeviceSettings(decodedID string, info malgo.DeviceInfo, audioSource string) bool {
	if runtime.GOOS == "windows" && audioSource == "sysdefault" {
		// Windows has no "sysdefault" device, use the platform default.
		return info.IsDefault == 1
	}
	return decodedID == audioSource || strings.Contains(info.Name(), audioSource)
}

// hexToASCII converts a hexadecimal device ID to its ASCII form.
func hexToASCII(hexStr string) (string, error) {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
