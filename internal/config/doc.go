// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

// Package config loads Sitelens configuration with Koanf v2.
//
// Sources are layered: struct defaults, then an optional YAML file, then
// environment variables. Load additionally reads a .env file (godotenv)
// into the process environment before the env layer is applied.
//
// # Required settings
//
//   - JWT_SECRET (32+ characters)
//   - ADMIN_USERNAME, ADMIN_PASSWORD (operator dashboard login)
//
// # Common settings
//
//   - HTTP_PORT (default 8080), DUCKDB_PATH (default /data/sitelens.duckdb)
//   - INGEST_TRANSPORT: memory or nats (nats requires -tags nats)
//   - GEO_LOOKUP_URL: optional, e.g. https://ipapi.co/%s/json/
//   - LOG_LEVEL, LOG_FORMAT
//
// Example config.yaml:
//
//	server:
//	  port: 8080
//	api:
//	  default_page_size: 25
//	  default_top_n: 5
//	ingest:
//	  transport: memory
//	  dedup_ttl: 24h
package config
