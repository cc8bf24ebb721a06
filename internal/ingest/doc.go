// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

/*
Package ingest moves telemetry events from the log endpoint into the visitor store.

The log handler validates an event and hands it to a Publisher, which
serializes it with goccy/go-json and publishes it on a Watermill topic. A
Watermill router consumes the topic and applies each event through the
Consumer:

	POST /api/v1/log -> Publisher -> topic -> Router -> Consumer -> database.UpsertVisit

# Transports

The default transport is Watermill's in-process gochannel pub/sub. Builds
with the "nats" tag add a NATS JetStream transport and an optional embedded
NATS server, selected with INGEST_TRANSPORT=nats.

# Consumer Pipeline

For every message the consumer:

  - decodes the event (undecodable messages are dropped and counted)
  - drops duplicate page-exit summaries using a Badger TTL key set keyed by
    session id, page path and exit timestamp
  - strips markup from free-text fields with a bluemonday strict policy
  - resolves geo data for the client address (GeoResolver)
  - upserts the visitor record; only page views count as a visit

Store failures are retried by the router's Retry middleware and finally
routed to the poison topic.

# Geo Resolution

GeoResolver answers from a TTL cache first, then from an optional HTTP
lookup service guarded by a gobreaker circuit breaker, and fills any fields
still empty from proxy headers captured by the log handler (Cloudflare
CF-IPCountry and friends). Private and loopback addresses never leave the
process.
*/
package ingest
