// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/sitelens/internal/logging"
	"github.com/tomtom215/sitelens/internal/models"
)

// HTTPSinkConfig configures an HTTPSink.
type HTTPSinkConfig struct {
	// Endpoint is the full URL of the log endpoint.
	Endpoint string

	QueueSize       int
	RatePerSecond   float64
	Burst           int
	Timeout         time.Duration // per request
	BreakerFailures uint32        // consecutive failures before the breaker opens
	BreakerTimeout  time.Duration // how long the breaker stays open

	Client *http.Client
}

// DefaultHTTPSinkConfig returns settings suitable for a single page.
func DefaultHTTPSinkConfig(endpoint string) HTTPSinkConfig {
	return HTTPSinkConfig{
		Endpoint:        endpoint,
		QueueSize:       256,
		RatePerSecond:   20,
		Burst:           10,
		Timeout:         5 * time.Second,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// SinkStats counts HTTPSink outcomes.
type SinkStats struct {
	Sent    int64
	Failed  int64
	Dropped int64 // queue full or sink closed
}

// HTTPSink delivers events to the log endpoint from a background worker.
// Send never blocks; events that cannot be queued are dropped.
type HTTPSink struct {
	cfg     HTTPSinkConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]

	queue chan models.Event
	done  chan struct{}

	mu     sync.RWMutex
	closed bool

	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// NewHTTPSink starts an HTTPSink worker.
func NewHTTPSink(cfg HTTPSinkConfig) (*HTTPSink, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("http sink endpoint is required")
	}
	def := DefaultHTTPSinkConfig(cfg.Endpoint)
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = def.RatePerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	failures := cfg.BreakerFailures
	s := &HTTPSink{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        "http-sink",
			MaxRequests: 1,
			Timeout:     cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Telemetry sink circuit breaker state changed")
			},
		}),
		queue: make(chan models.Event, cfg.QueueSize),
		done:  make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Send queues ev for delivery.
func (s *HTTPSink) Send(_ context.Context, ev models.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return
	}
	select {
	case s.queue <- ev:
	default:
		s.dropped.Add(1)
		logging.Warn().Str("type", string(ev.Type)).Msg("Telemetry queue full, event dropped")
	}
}

// Close stops accepting events and waits for queued events to be delivered
// or for ctx to end.
func (s *HTTPSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("http sink drain: %w", ctx.Err())
	}
}

// Stats returns delivery counters.
func (s *HTTPSink) Stats() SinkStats {
	return SinkStats{
		Sent:    s.sent.Load(),
		Failed:  s.failed.Load(),
		Dropped: s.dropped.Load(),
	}
}

func (s *HTTPSink) run() {
	defer close(s.done)
	for ev := range s.queue {
		s.deliver(ev)
	}
}

func (s *HTTPSink) deliver(ev models.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		s.failed.Add(1)
		logging.Warn().Err(err).Str("type", string(ev.Type)).Msg("Telemetry rate limit wait failed")
		return
	}

	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.post(ctx, ev)
	})
	if err != nil {
		s.failed.Add(1)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Debug().Str("type", string(ev.Type)).Msg("Telemetry sink circuit open, event dropped")
			return
		}
		logging.Warn().Err(err).Str("type", string(ev.Type)).Msg("Telemetry delivery failed")
		return
	}
	s.sent.Add(1)
}

func (s *HTTPSink) post(ctx context.Context, ev models.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("log endpoint returned %d", resp.StatusCode)
	}
	return nil
}
