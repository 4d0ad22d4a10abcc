// Package server hosts the HTTP surface of the learning loop.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/eduloop/eduloop/internal/profile"
	"github.com/eduloop/eduloop/plugin/ai/session"
	"github.com/eduloop/eduloop/server/internal/observability"
	"github.com/eduloop/eduloop/server/middleware"
	apiv1 "github.com/eduloop/eduloop/server/router/api/v1"
	"github.com/eduloop/eduloop/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer  *echo.Echo
	apiV1       *apiv1.APIV1Service
	rateLimiter *middleware.RateLimiter
	cleanup     *session.CleanupJob // nil when persistence is disabled
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store, apiV1 *apiv1.APIV1Service, cleanup *session.CleanupJob) (*Server, error) {
	logLevel := "info"
	if profile.IsDev() {
		logLevel = "debug"
	}
	observability.SetupLogger(logLevel)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
	}))
	rateLimiter := middleware.NewRateLimiter(0, 0)
	e.Use(rateLimiter.Middleware())

	s := &Server{
		Profile:     profile,
		Store:       store,
		echoServer:  e,
		apiV1:       apiV1,
		rateLimiter: rateLimiter,
		cleanup:     cleanup,
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": profile.Version,
		})
	})

	apiV1.RegisterRoutes(e.Group("/api/v1"))

	// Sessions persisted by a previous run come back before we accept traffic.
	if err := apiV1.Orchestrator.Restore(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to restore sessions")
	}

	return s, nil
}

func (s *Server) Start(ctx context.Context) error {
	if s.cleanup != nil {
		go s.cleanup.Run(ctx)
	}
	s.rateLimiter.StartCleanup(ctx, 5*time.Minute)

	address := s.Profile.ListenAddr()
	slog.Info("server started", "address", address, "mode", s.Profile.Mode)
	if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
	slog.Info("server stopped")
}
