// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// PoisonSuffix is appended to the ingest topic to name the poison topic.
const PoisonSuffix = ".poison"

const handlerName = "visitor-upsert"

// RouterConfig configures the ingest router.
type RouterConfig struct {
	Topic                string
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	CloseTimeout         time.Duration
}

// DefaultRouterConfig returns production defaults for topic.
func DefaultRouterConfig(topic string) RouterConfig {
	return RouterConfig{
		Topic:                topic,
		RetryMaxRetries:      3,
		RetryInitialInterval: 100 * time.Millisecond,
		RetryMaxInterval:     5 * time.Second,
		CloseTimeout:         30 * time.Second,
	}
}

// Router runs the consumer against the ingest topic.
type Router struct {
	router *message.Router
	config RouterConfig
}

// NewRouter wires consumer to sub. Messages that still fail after the
// retries are published to Topic+PoisonSuffix through pub.
func NewRouter(cfg RouterConfig, sub message.Subscriber, pub message.Publisher, consumer *Consumer, logger watermill.LoggerAdapter) (*Router, error) {
	if sub == nil || pub == nil {
		return nil, errors.New("subscriber and publisher required")
	}
	if consumer == nil {
		return nil, errors.New("consumer required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("topic required")
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: cfg.CloseTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	wmRouter.AddMiddleware(middleware.Recoverer)

	poisonQueue, err := middleware.PoisonQueue(pub, cfg.Topic+PoisonSuffix)
	if err != nil {
		return nil, fmt.Errorf("create poison queue middleware: %w", err)
	}
	wmRouter.AddMiddleware(poisonQueue)

	if cfg.RetryMaxRetries > 0 {
		retry := middleware.Retry{
			MaxRetries:      cfg.RetryMaxRetries,
			InitialInterval: cfg.RetryInitialInterval,
			MaxInterval:     cfg.RetryMaxInterval,
			Multiplier:      2.0,
			Logger:          logger,
		}
		wmRouter.AddMiddleware(retry.Middleware)
	}

	wmRouter.AddConsumerHandler(handlerName, cfg.Topic, sub, consumer.Handle)

	return &Router{router: wmRouter, config: cfg}, nil
}

// Run blocks until ctx is canceled or the router is closed.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running is closed once all handlers are subscribed.
func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

// IsRunning reports whether the router is processing messages.
func (r *Router) IsRunning() bool {
	return r.router.IsRunning()
}

// Close stops the router, waiting up to CloseTimeout for in-flight messages.
func (r *Router) Close() error {
	return r.router.Close()
}
