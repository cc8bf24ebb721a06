// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sitelens/internal/models"
)

func testEvent(t models.EventType) models.Event {
	return models.Event{
		Type:        t,
		SessionID:   "sess-1",
		Fingerprint: "1n1e4y",
		Page:        "/",
		Timestamp:   t0,
	}
}

func closeSink(t *testing.T, s *HTTPSink) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestHTTPSink_Delivers(t *testing.T) {
	var mu sync.Mutex
	var received []models.Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var ev models.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			t.Errorf("decode: %v", err)
		}
		mu.Lock()
		received = append(received, ev)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink, err := NewHTTPSink(DefaultHTTPSinkConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewHTTPSink() error = %v", err)
	}
	sink.Send(context.Background(), testEvent(models.EventPageView))
	sink.Send(context.Background(), testEvent(models.EventClick))
	sink.Send(context.Background(), testEvent(models.EventPageExit))
	closeSink(t, sink)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 3 {
		t.Fatalf("server received %d events, want 3", len(received))
	}
	if received[0].Type != models.EventPageView || received[2].Type != models.EventPageExit {
		t.Errorf("delivery order = %s..%s", received[0].Type, received[2].Type)
	}
	if stats := sink.Stats(); stats.Sent != 3 || stats.Failed != 0 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestHTTPSink_BreakerStopsHammeringFailedEndpoint(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := DefaultHTTPSinkConfig(srv.URL)
	cfg.BreakerFailures = 2
	sink, err := NewHTTPSink(cfg)
	if err != nil {
		t.Fatalf("NewHTTPSink() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		sink.Send(context.Background(), testEvent(models.EventClick))
	}
	closeSink(t, sink)

	if got := hits.Load(); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}
	if stats := sink.Stats(); stats.Failed != 5 || stats.Sent != 0 {
		t.Errorf("Stats() = %+v, want 5 failed", stats)
	}
}

func TestHTTPSink_SendAfterCloseDrops(t *testing.T) {
	sink, err := NewHTTPSink(DefaultHTTPSinkConfig("http://127.0.0.1:1/api/v1/log"))
	if err != nil {
		t.Fatalf("NewHTTPSink() error = %v", err)
	}
	closeSink(t, sink)

	sink.Send(context.Background(), testEvent(models.EventClick))
	if got := sink.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
	closeSink(t, sink)
}

func TestHTTPSink_RequiresEndpoint(t *testing.T) {
	if _, err := NewHTTPSink(HTTPSinkConfig{}); err == nil {
		t.Error("NewHTTPSink() with empty endpoint should fail")
	}
}

func TestHTTPSink_DrivenByCollector(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink, err := NewHTTPSink(DefaultHTTPSinkConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewHTTPSink() error = %v", err)
	}
	clock := NewManualClock(t0)
	d := NewDispatcher()
	c := New(DefaultConfig("/"), consentingState(), sink, clock)
	if err := c.Start(context.Background(), d); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	d.Dispatch(DOMEvent{Type: Click})
	d.Dispatch(DOMEvent{Type: Unload})
	closeSink(t, sink)

	if got := hits.Load(); got != 3 {
		t.Errorf("server hits = %d, want 3", got)
	}
}
