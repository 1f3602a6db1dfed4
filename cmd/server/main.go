// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

// Package main is the entry point for the Bucketlist server.
//
// Bucketlist is a self-hosted goal tracker: users register an account,
// maintain a list of life goals with categories, priorities and due dates,
// and can share selected goals publicly for others to browse.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: settings from environment variables and config files (Koanf v2)
//  2. Database: embedded DuckDB holding users, items and the activity feed
//  3. Authentication: bcrypt password store, server-side sessions, JWT for the API
//  4. Event pipeline: in-process pub/sub feeding the activity recorder
//  5. Web UI: server-rendered HTML pages with CSRF protection
//  6. HTTP server: JSON API under /api/v1 plus the HTML pages, run under a
//     supervisor tree with automatic restarts
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, a config.yaml file, then built-in
// defaults. Common variables:
//
//   - HTTP_HOST, HTTP_PORT: bind address (default 0.0.0.0:8420)
//   - DATABASE_PATH: DuckDB file location (default /data/bucketlist.duckdb)
//   - JWT_SECRET: 32+ character secret for API token signing; required in
//     production, generated per-process in development when unset
//   - SESSION_STORE: "memory" or "badger" (persistent sessions)
//   - REGISTRATION_ENABLED: allow new account signup (default true)
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections, drains in-flight requests, flushes the event
// pipeline and checkpoints the database.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkaschke/bucketlist/internal/api"
	"github.com/mkaschke/bucketlist/internal/auth"
	"github.com/mkaschke/bucketlist/internal/config"
	"github.com/mkaschke/bucketlist/internal/database"
	"github.com/mkaschke/bucketlist/internal/events"
	"github.com/mkaschke/bucketlist/internal/logging"
	"github.com/mkaschke/bucketlist/internal/metrics"
	"github.com/mkaschke/bucketlist/internal/supervisor"
	"github.com/mkaschke/bucketlist/internal/supervisor/services"
	"github.com/mkaschke/bucketlist/internal/web"
)

// version is set at build time via -ldflags "-X main.version=v1.2.3".
var version = "dev"

const (
	sessionCleanupInterval = 5 * time.Minute
	csrfCleanupInterval    = 15 * time.Minute
	activityPruneInterval  = 6 * time.Hour
	checkpointInterval     = time.Hour

	// activityRetention bounds the activity feed. Entries older than this
	// are pruned; the feed is a recency view, not an audit trail.
	activityRetention = 90 * 24 * time.Hour
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		// Default logger: config (and its logging section) is not available.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Bool("registration_enabled", cfg.Security.RegistrationEnabled).
		Msg("Starting Bucketlist")

	if cfg.Security.JWTSecret == "" {
		// Validation already rejected this in production.
		secret, err := auth.GenerateEphemeralSecret()
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to generate ephemeral JWT secret")
		}
		cfg.Security.JWTSecret = secret
		logging.Warn().Msg("JWT_SECRET not set; generated an ephemeral secret. API tokens will not survive restarts")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	sessionFactory, err := auth.NewSessionStoreFactory(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize session store")
	}
	defer func() {
		if err := sessionFactory.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}()
	sessions := sessionFactory.CreateStore()
	if cfg.Security.SessionStore == "memory" && !cfg.IsDevelopment() {
		logging.Warn().Msg("SESSION_STORE=memory: sessions are lost on restart. Set SESSION_STORE=badger for persistence")
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	lockoutStore := auth.NewMemoryLockoutStore()
	lockoutCfg := auth.DefaultLockoutConfig()
	lockout := auth.NewLockoutManager(lockoutStore, lockoutCfg)
	service := auth.NewService(db, lockout, &cfg.Security)

	authMW := auth.NewMiddleware(sessions, jwtManager, &auth.MiddlewareConfig{
		CookieName:     auth.SessionCookieName,
		SessionTTL:     cfg.Security.SessionTimeout,
		SlidingSession: true,
		CookieSecure:   cfg.IsProduction(),
	})
	csrf := auth.NewCSRFMiddleware(auth.CSRFConfig{
		CookieSecure: cfg.IsProduction(),
	})

	bus := events.NewBus(&cfg.Events)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()
	publisher := events.NewPublisher(bus)
	recorder := events.NewRecorder(bus, db, &cfg.Events)

	site, err := web.NewServer(web.ServerOptions{
		DB:        db,
		Service:   service,
		Sessions:  authMW,
		CSRF:      csrf,
		Publisher: publisher,
		Config:    cfg,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize web server")
	}

	handler := api.NewHandler(api.HandlerOptions{
		DB:        db,
		Service:   service,
		Sessions:  authMW,
		JWT:       jwtManager,
		Publisher: publisher,
		Config:    cfg,
		Version:   version,
	})
	chiMW := api.NewChiMiddleware(cfg.Security.CORSOrigins, cfg.Security.RateLimitDisabled)
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (RATE_LIMIT_DISABLED=true)")
	}
	router := api.NewRouter(handler, authMW, chiMW, site.Routes())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	// Pipeline layer: the activity recorder plus periodic maintenance.
	tree.AddPipelineService(recorder)
	tree.AddPipelineService(services.NewJanitorService("sessions", sessionCleanupInterval,
		func(ctx context.Context) error {
			_, err := sessions.CleanupExpired(ctx)
			return err
		}))
	tree.AddPipelineService(services.NewJanitorService("lockouts", lockoutCfg.CleanupInterval,
		func(ctx context.Context) error {
			_, err := lockoutStore.CleanupExpired(ctx)
			return err
		}))
	tree.AddPipelineService(services.NewJanitorService("csrf-tokens", csrfCleanupInterval,
		func(ctx context.Context) error {
			csrf.CleanupExpired()
			return nil
		}))
	tree.AddPipelineService(services.NewJanitorService("activity-prune", activityPruneInterval,
		func(ctx context.Context) error {
			removed, err := db.PruneActivityOlderThan(ctx, time.Now().Add(-activityRetention))
			if err == nil && removed > 0 {
				logging.Info().Int64("removed", removed).Msg("Pruned old activity entries")
			}
			return err
		}))
	tree.AddPipelineService(services.NewJanitorService("checkpoint", checkpointInterval, db.Checkpoint))

	// API layer restarts independently of the pipeline.
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	metrics.StartUptimeTracker(15*time.Second, ctx.Done())

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	// Item events published before the recorder subscribes are dropped by
	// the in-process channel. The HTTP listener comes up concurrently, so
	// this wait only narrows the window; the feed tolerates a lost entry.
	select {
	case <-recorder.Ready():
		logging.Info().Msg("Activity recorder ready")
	case <-ctx.Done():
	case <-time.After(10 * time.Second):
		logging.Warn().Msg("Activity recorder did not become ready within 10s")
	}

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, stopping services")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	logging.Info().Msg("Stopped gracefully")
}
