/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/huginn_planner/internal/cache"
	"github.com/friendsincode/huginn_planner/internal/catalog"
	"github.com/friendsincode/huginn_planner/internal/config"
	"github.com/friendsincode/huginn_planner/internal/db"
	"github.com/friendsincode/huginn_planner/internal/eventbus"
	"github.com/friendsincode/huginn_planner/internal/events"
	"github.com/friendsincode/huginn_planner/internal/legacy"
	"github.com/friendsincode/huginn_planner/internal/showplan"
	"github.com/friendsincode/huginn_planner/internal/telemetry"
)

// Server bundles the HTTP surface and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server

	database  *gorm.DB
	bus       events.PubSub
	repo      *showplan.Repository
	reducer   *showplan.Reducer
	planCache *cache.PlanCache
	legacySvc *legacy.Service

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
	closers  []func() error
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	database, err := db.Connect(cfg.DBBackend, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("connect primary store: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		database: database,
	}
	s.closers = append(s.closers, func() error { return db.Close(database) })

	if cfg.RedisAddr != "" {
		redisBus := eventbus.NewRedisBus(eventbus.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.InstanceID, logger)
		s.bus = redisBus
		s.closers = append(s.closers, redisBus.Close)

		s.planCache = cache.New(cache.Config{
			RedisAddr:      cfg.RedisAddr,
			RedisPassword:  cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			PlanTTL:        time.Duration(cfg.PlanCacheTTLSec) * time.Second,
			DisableOnError: true,
		}, logger)
		s.closers = append(s.closers, s.planCache.Close)
	} else {
		s.bus = events.NewBus()
	}

	resolver := catalog.NewResolver(logger)
	s.repo = showplan.NewRepository(resolver, logger)
	audit := showplan.NewAuditWriter(logger)
	s.reducer = showplan.NewReducer(database, cfg.DBBackend, s.repo, audit, s.bus, logger)

	if cfg.LegacySyncEnabled {
		legacyDB, err := db.Connect(cfg.LegacyDBBackend, cfg.LegacyDBDSN)
		if err != nil {
			return nil, fmt.Errorf("connect legacy store: %w", err)
		}
		// The legacy store is the gorm CRUD path, so it gets the statement
		// metric callbacks.
		if err := db.RegisterCallbacks(legacyDB); err != nil {
			return nil, fmt.Errorf("register legacy db callbacks: %w", err)
		}
		s.closers = append(s.closers, func() error { return db.Close(legacyDB) })

		s.legacySvc = legacy.NewService(database, cfg.DBBackend, legacyDB, s.repo, s.bus, logger)
		if err := s.legacySvc.Migrate(); err != nil {
			return nil, err
		}
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("huginn-planner-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	s.router = router
	s.configureRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.startBackgroundWorkers()

	return s, nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/timeslots/{timeslotID}/plan", s.handlePlanGet)
		r.Post("/timeslots/{timeslotID}/plan/ops", s.handlePlanOps)
	})
}

// startBackgroundWorkers launches the legacy sync consumer and the cache
// invalidation listener.
func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	if s.legacySvc != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.legacySvc.Start(ctx)
		}()
	}
	if s.planCache != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.planCache.Start(ctx, s.bus)
		}()
	}

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				db.UpdateConnectionMetrics(s.database)
			}
		}
	}()
}

// HTTPServer exposes the configured http.Server for the caller to run.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Router exposes the chi router, used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close stops background workers and releases resources.
func (s *Server) Close() error {
	if s.bgCancel != nil {
		s.bgCancel()
	}
	s.bgWG.Wait()

	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}
