// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

/*
Package metrics provides Prometheus metrics collection and export.

All collectors are registered on the default registry through promauto and
exposed at /metrics by the API router:

	curl http://localhost:3857/metrics

# Available Metrics

Database:
  - duckdb_query_duration_seconds (histogram; operation, table)
  - duckdb_query_errors_total (counter; operation, table, error_type)
  - duckdb_upsert_retries_total (counter)

API:
  - api_requests_total (counter; method, endpoint, status_code)
  - api_request_duration_seconds (histogram; method, endpoint)
  - api_active_requests (gauge)
  - api_rate_limit_hits_total (counter; endpoint)
  - auth_attempts_total (counter; result)

Ingest:
  - ingest_events_published_total (counter; type)
  - ingest_events_processed_total (counter; type)
  - ingest_events_deduplicated_total (counter)
  - ingest_events_rejected_total (counter; reason)
  - ingest_processing_duration_seconds (histogram)
  - geo_lookups_total (counter; source)
  - geo_lookup_duration_seconds (histogram)

Caches and breakers:
  - cache_hits_total, cache_misses_total (counter; cache_type)
  - circuit_breaker_state (gauge; name; 0=closed, 1=half-open, 2=open)
  - circuit_breaker_transitions_total (counter; name, from, to)

# Usage

	start := time.Now()
	err := db.conn.ExecContext(ctx, query, args...)
	metrics.RecordDBQuery("upsert", "visitors", time.Since(start), err)

Error labels are truncated to 50 characters to bound cardinality.
*/
package metrics
