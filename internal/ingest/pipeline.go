// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/sitelens/internal/config"
	"github.com/tomtom215/sitelens/internal/logging"
)

// Pipeline owns every ingest component built from configuration.
type Pipeline struct {
	transport *Transport
	dedup     *ExitDeduplicator
	geo       *GeoResolver
	publisher *Publisher
	router    *Router
}

// NewPipeline builds the transport, consumer and router for cfg, writing to store.
func NewPipeline(cfg *config.Config, store VisitorWriter) (*Pipeline, error) {
	var logger watermill.LoggerAdapter = NewZerologAdapter()

	transport, err := NewTransport(cfg, logger)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{transport: transport}

	p.dedup, err = OpenExitDeduplicator(cfg.Ingest.DedupPath, cfg.Ingest.DedupTTL)
	if err != nil {
		_ = p.Close()
		return nil, err
	}

	p.geo = NewGeoResolver(&cfg.Geo)

	consumer, err := NewConsumer(store, p.dedup, p.geo)
	if err != nil {
		_ = p.Close()
		return nil, err
	}

	p.publisher, err = NewPublisher(transport.Publisher, cfg.Ingest.Topic)
	if err != nil {
		_ = p.Close()
		return nil, err
	}

	routerCfg := DefaultRouterConfig(cfg.Ingest.Topic)
	routerCfg.RetryMaxRetries = cfg.Ingest.RetryCount
	if cfg.Ingest.RetryInitialInterval > 0 {
		routerCfg.RetryInitialInterval = cfg.Ingest.RetryInitialInterval
	}
	if cfg.Ingest.CloseTimeout > 0 {
		routerCfg.CloseTimeout = cfg.Ingest.CloseTimeout
	}

	p.router, err = NewRouter(routerCfg, transport.Subscriber, transport.Publisher, consumer, logger)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("create ingest router: %w", err)
	}

	logging.Info().
		Str("transport", transport.Name).
		Str("topic", cfg.Ingest.Topic).
		Bool("geo_lookup", cfg.Geo.LookupURL != "").
		Msg("Ingest pipeline initialized")

	return p, nil
}

// Publisher returns the publisher used by the log endpoint.
func (p *Pipeline) Publisher() *Publisher {
	return p.publisher
}

// Router returns the consuming router.
func (p *Pipeline) Router() *Router {
	return p.router
}

// Run runs the router until ctx is canceled.
func (p *Pipeline) Run(ctx context.Context) error {
	return p.router.Run(ctx)
}

// Close stops the router and releases the transport, dedup store and geo cache.
func (p *Pipeline) Close() error {
	var errs []error
	if p.router != nil {
		if err := p.router.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close router: %w", err))
		}
	}
	if p.transport != nil {
		if err := p.transport.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close transport: %w", err))
		}
	}
	if p.dedup != nil {
		if err := p.dedup.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close exit dedup: %w", err))
		}
	}
	if p.geo != nil {
		p.geo.Close()
	}
	return errors.Join(errs...)
}
