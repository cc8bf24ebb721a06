// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package collector

import (
	"context"
	"sync"

	"github.com/tomtom215/sitelens/internal/models"
)

// Sink receives emitted events. Send must not block and never reports
// failure to the caller; delivery problems are the sink's to log.
type Sink interface {
	Send(ctx context.Context, ev models.Event)
}

// MemorySink records events in memory.
type MemorySink struct {
	mu     sync.Mutex
	events []models.Event
}

// Send records ev.
func (s *MemorySink) Send(_ context.Context, ev models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of the recorded events.
func (s *MemorySink) Events() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Event, len(s.events))
	copy(out, s.events)
	return out
}

// OfType returns the recorded events of type t.
func (s *MemorySink) OfType(t models.EventType) []models.Event {
	var out []models.Event
	for _, ev := range s.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
