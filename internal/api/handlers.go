// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package api

import (
	"context"
	"time"

	"github.com/tomtom215/sitelens/internal/analytics"
	"github.com/tomtom215/sitelens/internal/auth"
	"github.com/tomtom215/sitelens/internal/config"
	"github.com/tomtom215/sitelens/internal/models"
	"github.com/tomtom215/sitelens/internal/query"
)

// Version is reported by the health endpoints. Set at build time via
// -ldflags "-X github.com/tomtom215/sitelens/internal/api.Version=...".
var Version = "dev"

// VisitorStore is the read side of the visitor store used by the handlers.
// *database.DB implements it.
type VisitorStore interface {
	ListVisitors(ctx context.Context, req query.Request) (query.Result, error)
	Ping(ctx context.Context) error
}

// StatisticsProvider computes window rollups. *analytics.Service implements it.
type StatisticsProvider interface {
	Statistics(ctx context.Context, window analytics.Window, topN int) (models.Statistics, bool, error)
}

// EventPublisher hands a validated event to the ingest pipeline.
// *ingest.Publisher implements it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *models.Event, hints models.GeoInfo) error
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_log.go: telemetry intake
//   - handlers_auth.go: login and logout
//   - handlers_visitors.go: visitor listing
//   - handlers_statistics.go: window rollups
//   - handlers_health.go: liveness and readiness
type Handler struct {
	db          VisitorStore
	stats       StatisticsProvider
	publisher   EventPublisher
	credentials *auth.OperatorCredentials
	jwtManager  *auth.JWTManager
	authMW      *auth.Middleware
	config      *config.Config
	startTime   time.Time

	// ingestRunning reports whether the ingest router is consuming.
	ingestRunning func() bool
}

// HandlerDeps groups the dependencies of NewHandler.
type HandlerDeps struct {
	DB            VisitorStore
	Statistics    StatisticsProvider
	Publisher     EventPublisher
	Credentials   *auth.OperatorCredentials
	JWTManager    *auth.JWTManager
	Auth          *auth.Middleware
	Config        *config.Config
	IngestRunning func() bool
}

// NewHandler creates a Handler.
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		db:            deps.DB,
		stats:         deps.Statistics,
		publisher:     deps.Publisher,
		credentials:   deps.Credentials,
		jwtManager:    deps.JWTManager,
		authMW:        deps.Auth,
		config:        deps.Config,
		startTime:     time.Now(),
		ingestRunning: deps.IngestRunning,
	}
}
