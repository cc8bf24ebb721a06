// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/sitelens/internal/logging"
	"github.com/tomtom215/sitelens/internal/metrics"
	"github.com/tomtom215/sitelens/internal/models"
)

// Message metadata keys.
const (
	MetadataEventType   = "event_type"
	MetadataRequestID   = "request_id"
	MetadataGeoCountry  = "geo_country"
	MetadataGeoRegion   = "geo_region"
	MetadataGeoCity     = "geo_city"
	MetadataGeoTimezone = "geo_timezone"
)

// Publisher serializes events onto the ingest topic.
type Publisher struct {
	publisher message.Publisher
	topic     string
}

// NewPublisher publishes to topic through pub.
func NewPublisher(pub message.Publisher, topic string) (*Publisher, error) {
	if pub == nil {
		return nil, errors.New("publisher required")
	}
	if topic == "" {
		return nil, errors.New("topic required")
	}
	return &Publisher{publisher: pub, topic: topic}, nil
}

// Topic returns the topic events are published on.
func (p *Publisher) Topic() string {
	return p.topic
}

// PublishEvent publishes ev with the geo hints captured from the request.
// ev.Address must already be set by the caller.
func (p *Publisher) PublishEvent(ctx context.Context, ev *models.Event, hints models.GeoInfo) error {
	if ev.ID == "" {
		ev.ID = watermill.NewUUID()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(ev.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(MetadataEventType, string(ev.Type))
	// JetStream deduplicates redelivered publishes on this header.
	msg.Metadata.Set(natsgo.MsgIdHdr, ev.ID)
	if id := logging.RequestIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataRequestID, id)
	}
	setHint(msg, MetadataGeoCountry, hints.Country)
	setHint(msg, MetadataGeoRegion, hints.Region)
	setHint(msg, MetadataGeoCity, hints.City)
	setHint(msg, MetadataGeoTimezone, hints.Timezone)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	metrics.RecordIngestPublished(string(ev.Type))
	return nil
}

func setHint(msg *message.Message, key, value string) {
	if value != "" {
		msg.Metadata.Set(key, value)
	}
}

// hintsFromMessage reads the geo hints set by PublishEvent.
func hintsFromMessage(msg *message.Message) models.GeoInfo {
	return models.GeoInfo{
		Country:  msg.Metadata.Get(MetadataGeoCountry),
		Region:   msg.Metadata.Get(MetadataGeoRegion),
		City:     msg.Metadata.Get(MetadataGeoCity),
		Timezone: msg.Metadata.Get(MetadataGeoTimezone),
	}
}

// GeoHintsFromRequest reads location headers set by an edge proxy
// (Cloudflare visitor location headers, or Vercel's equivalents).
// "XX" and "T1" are Cloudflare's unknown and Tor markers and are ignored.
func GeoHintsFromRequest(r *http.Request) models.GeoInfo {
	country := firstHeader(r, "CF-IPCountry", "X-Vercel-IP-Country")
	switch strings.ToUpper(country) {
	case "XX", "T1":
		country = ""
	}
	return models.GeoInfo{
		Country:  strings.ToUpper(country),
		Region:   firstHeader(r, "CF-Region", "X-Vercel-IP-Country-Region"),
		City:     firstHeader(r, "CF-IPCity", "X-Vercel-IP-City"),
		Timezone: firstHeader(r, "CF-Timezone", "X-Vercel-IP-Timezone"),
	}
}

func firstHeader(r *http.Request, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(r.Header.Get(name)); v != "" {
			if len(v) > 128 {
				v = v[:128]
			}
			return v
		}
	}
	return ""
}
