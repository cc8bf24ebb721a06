// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/sitelens/internal/analytics"
	"github.com/tomtom215/sitelens/internal/api"
	"github.com/tomtom215/sitelens/internal/auth"
	"github.com/tomtom215/sitelens/internal/cache"
	"github.com/tomtom215/sitelens/internal/config"
	"github.com/tomtom215/sitelens/internal/database"
	"github.com/tomtom215/sitelens/internal/ingest"
	"github.com/tomtom215/sitelens/internal/logging"
	"github.com/tomtom215/sitelens/internal/metrics"
	"github.com/tomtom215/sitelens/internal/supervisor"
	"github.com/tomtom215/sitelens/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Sitelens stopped with an error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

//nolint:gocyclo // sequential setup steps
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	api.Version = version
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Str("transport", cfg.Ingest.Transport).
		Msg("Starting Sitelens")
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS_ORIGINS allows every origin; restrict it to the sites that embed the collector")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		schema, _ := db.GetCurrentSchemaVersion(ctx)
		visitors, _ := db.CountVisitors(ctx)
		cancel()
		logging.Info().
			Str("path", db.GetDatabasePath()).
			Int("schema_version", schema).
			Int64("visitors", visitors).
			Msg("Database initialized successfully")
	}

	pipeline, err := ingest.NewPipeline(cfg, db)
	if err != nil {
		return fmt.Errorf("initialize ingest pipeline: %w", err)
	}
	// Registered after db.Close so it runs first: the router must stop
	// writing before the store goes away.
	defer func() {
		if err := pipeline.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing ingest pipeline")
		}
	}()

	statsCache := cache.New(cfg.API.StatsCacheTTL)
	defer statsCache.Close()
	stats := analytics.NewService(db, statsCache)

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return fmt.Errorf("initialize JWT manager: %w", err)
	}
	credentials, err := auth.NewOperatorCredentials(cfg.Security.AdminUsername, cfg.Security.AdminPassword)
	if err != nil {
		return fmt.Errorf("initialize operator credentials: %w", err)
	}
	revoked := auth.NewRevocationList()
	defer revoked.Close()
	authMW := auth.NewMiddleware(jwtManager, revoked, cfg.Security.TrustedProxies)

	handler := api.NewHandler(api.HandlerDeps{
		DB:            db,
		Statistics:    stats,
		Publisher:     pipeline.Publisher(),
		Credentials:   credentials,
		JWTManager:    jwtManager,
		Auth:          authMW,
		Config:        cfg,
		IngestRunning: pipeline.Router().IsRunning,
	})
	chiMW := api.NewChiMiddlewareFromConfig(&cfg.Security, authMW.KeyByClientIP)
	router := api.NewRouter(handler, authMW, chiMW)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Ingest.CloseTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	tree.AddIngestService(services.NewIngestService(pipeline))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	treeErr := <-tree.ServeBackground(ctx)

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", treeErr)
	}
	return nil
}
