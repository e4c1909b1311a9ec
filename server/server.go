// Package server hosts the HTTP surface of the recommendation service.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/strangecodee/SHL-TASK/ai"
	"github.com/strangecodee/SHL-TASK/ai/metrics"
	"github.com/strangecodee/SHL-TASK/internal/profile"
	apiv1 "github.com/strangecodee/SHL-TASK/server/router/api/v1"
	"github.com/strangecodee/SHL-TASK/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	apiService *apiv1.APIV1Service
	serveErr   chan error
}

func NewServer(_ context.Context, instanceProfile *profile.Profile, storeInstance *store.Store, recommender *ai.Recommender, m *metrics.Metrics) (*Server, error) {
	if instanceProfile == nil {
		return nil, errors.New("profile is required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
				slog.Warn("request", attrs...)
				return nil
			}
			slog.Info("request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))
	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 30 * time.Second,
	}))

	s := &Server{
		Profile:    instanceProfile,
		Store:      storeInstance,
		echoServer: e,
		apiService: apiv1.NewAPIV1Service(instanceProfile, storeInstance, recommender),
		serveErr:   make(chan error, 1),
	}
	s.apiService.Register(e)
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
	return s, nil
}

// Start begins serving in the background. Listener failures (such as the
// port already being bound) are delivered on Err so the caller can run its
// normal shutdown path instead of the process exiting mid-flight.
func (s *Server) Start(_ context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.echoServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.serveErr <- err
		}
	}()
	return nil
}

// Err reports a serve failure after Start. At most one error is delivered.
func (s *Server) Err() <-chan error {
	return s.serveErr
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		s.echoServer.Logger.Errorf("failed to shutdown server: %v", err)
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			s.echoServer.Logger.Errorf("failed to close store: %v", err)
		}
	}
}
