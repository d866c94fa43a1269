// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api provides the read-only HTTP status API of dart.
package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/dart/internal/api/middleware"
	"github.com/ManuGH/dart/internal/health"
	"github.com/ManuGH/dart/internal/rtspserver"
	"github.com/ManuGH/dart/internal/source"
)

var (
	// ErrMissingSources is returned when no source registry is provided.
	ErrMissingSources = errors.New("api: source registry is required")
	// ErrMissingHealth is returned when no health manager is provided.
	ErrMissingHealth = errors.New("api: health manager is required")
)

// SourceRegistry exposes supervisor status.
type SourceRegistry interface {
	Snapshots() []source.Status
	Snapshot(name string) (source.Status, bool)
}

// MountRegistry exposes RTSP mount status.
type MountRegistry interface {
	Mounts() []rtspserver.MountStatus
}

// Config configures the HTTP stack.
type Config struct {
	Version string
	// RateLimit is the per-IP request budget per minute; 0 disables it.
	RateLimit int
	// TracingService enables otelhttp spans under this service name.
	TracingService string
	// RTSPBase is the public rtsp:// prefix used to build stream URLs.
	RTSPBase string
}

// Deps are the runtime components the API reports on.
type Deps struct {
	Sources SourceRegistry
	Mounts  MountRegistry // optional
	Health  *health.Manager
	Metrics http.Handler // defaults to promhttp.Handler()
}

// Server serves the status API.
type Server struct {
	cfg    Config
	deps   Deps
	router chi.Router
}

// New builds the router.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Sources == nil {
		return nil, ErrMissingSources
	}
	if deps.Health == nil {
		return nil, ErrMissingHealth
	}
	if deps.Metrics == nil {
		deps.Metrics = promhttp.Handler()
	}

	s := &Server{cfg: cfg, deps: deps}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// HealthManager returns the manager backing /healthz and /readyz.
func (s *Server) HealthManager() *health.Manager {
	return s.deps.Health
}

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeNotFound(w, r, "no such endpoint")
	})
	r.MethodNotAllowed(writeMethodNotAllowed)

	// Probes and scraping stay outside the rate limit.
	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)
	r.Method(http.MethodGet, "/metrics", s.deps.Metrics)

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(middleware.APIRateLimit(s.cfg.RateLimit))
		}
		r.Get("/version", s.handleVersion)
		r.Get("/sources", s.handleListSources)
		r.Get("/sources/{name}", s.handleGetSource)
		r.Get("/mounts", s.handleListMounts)
	})
	return r
}
