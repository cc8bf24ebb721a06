// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

/*
Package main is the Sitelens server.

It accepts interaction events on POST /api/v1/log, moves them through the
ingest pipeline into a DuckDB visitor store, and serves the operator query
endpoints (visitors, statistics) behind a JWT credential.

# Application Architecture

	RootSupervisor ("sitelens")
	├── IngestSupervisor ("ingest-layer")
	│   └── Ingest router (Watermill, gochannel or NATS JetStream)
	└── APISupervisor ("api-layer")
	    └── HTTP server (chi)

Startup order:

 1. Configuration: .env (godotenv), then Koanf v2 defaults, YAML file, environment
 2. Logging: zerolog, level and format from LOG_LEVEL / LOG_FORMAT
 3. Database: DuckDB visitor store with versioned migrations
 4. Ingest: transport, exit deduplication (Badger), geo resolver, router
 5. Authentication: JWT manager, operator credentials, revocation list
 6. HTTP: handlers, chi router, CORS and rate limits
 7. Supervisor tree, then block until SIGINT or SIGTERM

# Configuration

Required:
  - JWT_SECRET: at least 32 characters
  - ADMIN_USERNAME, ADMIN_PASSWORD: operator credential (plain, 8+ characters, or a bcrypt hash)

Common:
  - HTTP_PORT (default 8080), HTTP_HOST
  - DUCKDB_PATH (default /data/sitelens.duckdb)
  - INGEST_TRANSPORT: memory (default) or nats
  - GEO_LOOKUP_URL: optional lookup endpoint, "%s" is the client address
  - CORS_ORIGINS: origins allowed to post telemetry

# Build Tags

	go build ./cmd/server               # in-process gochannel transport
	go build -tags nats ./cmd/server    # adds NATS JetStream and an embedded server

# Signal Handling

SIGINT or SIGTERM cancels the supervisor tree. The HTTP server drains within
10s, the ingest router finishes in-flight messages within
INGEST_CLOSE_TIMEOUT, and then the transport, dedup store and database are
closed in that order.
*/
package main
