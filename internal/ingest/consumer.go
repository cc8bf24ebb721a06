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

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/sitelens/internal/logging"
	"github.com/tomtom215/sitelens/internal/metrics"
	"github.com/tomtom215/sitelens/internal/models"
)

// VisitorWriter applies one visit update to the visitor store.
// *database.DB implements it.
type VisitorWriter interface {
	UpsertVisit(ctx context.Context, u models.VisitUpdate) (models.Visitor, error)
}

// GeoLookup resolves geo data for a client address.
type GeoLookup interface {
	Resolve(ctx context.Context, address string, hints models.GeoInfo) models.GeoInfo
}

// Consumer applies ingest messages to the visitor store.
type Consumer struct {
	store     VisitorWriter
	dedup     *ExitDeduplicator
	sanitizer *Sanitizer
	geo       GeoLookup
}

// NewConsumer returns a Consumer. dedup and geo may be nil to disable
// exit deduplication and geo enrichment.
func NewConsumer(store VisitorWriter, dedup *ExitDeduplicator, geo GeoLookup) (*Consumer, error) {
	if store == nil {
		return nil, errors.New("visitor store required")
	}
	return &Consumer{
		store:     store,
		dedup:     dedup,
		sanitizer: NewSanitizer(),
		geo:       geo,
	}, nil
}

// Handle is the watermill handler for the ingest topic. Undecodable and
// incomplete messages are acknowledged and dropped; store errors are
// returned so the router retries them.
func (c *Consumer) Handle(msg *message.Message) error {
	ctx := msg.Context()
	if id := msg.Metadata.Get(MetadataRequestID); id != "" {
		ctx = logging.ContextWithRequestID(ctx, id)
	}

	var ev models.Event
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		metrics.RecordIngestRejected("decode")
		logging.Ctx(ctx).Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping undecodable ingest message")
		return nil
	}
	if ev.Address == "" || ev.Fingerprint == "" || ev.Page == "" {
		metrics.RecordIngestRejected("identity")
		logging.Ctx(ctx).Warn().Str("message_uuid", msg.UUID).Msg("Dropping ingest message without identity")
		return nil
	}

	return c.Apply(ctx, &ev, hintsFromMessage(msg))
}

// Apply sanitizes, enriches and stores one event.
func (c *Consumer) Apply(ctx context.Context, ev *models.Event, hints models.GeoInfo) error {
	start := time.Now()

	var exitKey string
	if ev.Type == models.EventPageExit && c.dedup != nil {
		exitKey = ev.ExitKey()
		dup, err := c.dedup.CheckAndStore(exitKey)
		if err != nil {
			return err
		}
		if dup {
			metrics.RecordIngestDeduplicated()
			logging.Ctx(ctx).Debug().
				Str("session_id", ev.SessionID).
				Str("page", ev.Page).
				Msg("Dropping duplicate exit summary")
			return nil
		}
	}

	c.sanitizer.Event(ev)

	geo := hints
	if c.geo != nil {
		geo = c.geo.Resolve(ctx, ev.Address, hints)
	}

	_, err := c.store.UpsertVisit(ctx, models.VisitUpdate{
		Address:     ev.Address,
		Fingerprint: ev.Fingerprint,
		Geo:         geo,
		Page:        ev.Page,
		SeenAt:      ev.Timestamp,
		CountsVisit: ev.Type == models.EventPageView,
		Client:      ev.Client,
		Referrer:    ev.Referrer,
	})
	if err != nil {
		if exitKey != "" {
			if ferr := c.dedup.Forget(exitKey); ferr != nil {
				logging.Ctx(ctx).Warn().Err(ferr).Msg("Failed to release exit dedup key")
			}
		}
		return fmt.Errorf("upsert visit: %w", err)
	}

	metrics.RecordIngestProcessed(string(ev.Type), time.Since(start))
	return nil
}
