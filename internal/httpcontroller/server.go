// Package httpcontroller exposes the control surface: live status, manual
// recording control and runtime threshold tuning.
package httpcontroller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tmakinen/recwatch/internal/conf"
	"github.com/tmakinen/recwatch/internal/detection"
	"github.com/tmakinen/recwatch/internal/logging"
	"github.com/tmakinen/recwatch/internal/sampler"
	"github.com/tmakinen/recwatch/internal/session"
)

// Deps are the pipeline pieces the control surface reads and drives.
// Audio and Motion may be nil when the corresponding sampler is disabled.
type Deps struct {
	Session  *session.Session
	Config   *detection.Config
	Gate     *detection.Gate
	Audio    *sampler.AudioSampler
	Motion   *sampler.MotionSampler
	Registry *prometheus.Registry
}

// Server encapsulates the Echo server and its dependencies.
type Server struct {
	Echo     *echo.Echo
	Settings *conf.Settings
	deps     *Deps
	logger   *slog.Logger
}

// New builds the control surface server. Call Start to begin listening.
func New(settings *conf.Settings, deps *Deps) *Server {
	s := &Server{
		Echo:     echo.New(),
		Settings: settings,
		deps:     deps,
		logger:   logging.ForService("web"),
	}

	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.IPExtractor = echo.ExtractIPFromXFFHeader()
	s.Echo.Use(middleware.Recover())

	s.initRoutes()
	return s
}

func (s *Server) initRoutes() {
	v1 := s.Echo.Group("/api/v1")
	v1.GET("/status", s.handleStatus)
	v1.GET("/levels", s.handleLevels)
	v1.POST("/recording/start", s.handleStartRecording)
	v1.POST("/recording/stop", s.handleStopRecording)
	v1.PATCH("/thresholds", s.handleUpdateThresholds)
	v1.GET("/thresholds", s.handleGetThresholds)

	if s.deps.Registry != nil {
		s.Echo.GET("/metrics", echo.WrapHandler(
			promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{})))
	}
}

// Start begins listening on the configured port. Listen errors other than
// a clean shutdown are logged, not returned; the pipeline keeps running
// without its control surface.
func (s *Server) Start() {
	go func() {
		err := s.Echo.Start(":" + s.Settings.WebServer.Port)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("control surface failed", "error", err)
		}
	}()
	s.logger.Info("control surface listening", "port", s.Settings.WebServer.Port)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
