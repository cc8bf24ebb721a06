// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

/*
Package api provides the HTTP layer for Sitelens.

It serves the public telemetry intake, the operator credential exchange and
the two privileged query endpoints. Every response uses the models.APIResponse
envelope:

	{"status": "success", "data": {...}, "metadata": {"timestamp": "..."}}

Routes:

	POST /api/v1/log                  public, rate limited per client address
	POST /api/v1/auth/login           operator credentials -> JWT + HttpOnly cookie
	POST /api/v1/auth/logout          revokes the credential and clears the cookie
	GET  /api/v1/visitors             filtered, sorted, paginated visitor records
	GET  /api/v1/statistics           window rollup (window, top)
	GET  /api/v1/health/live          liveness
	GET  /api/v1/health/ready         readiness (database and ingest router)
	GET  /metrics                     Prometheus exposition

The visitors and statistics endpoints require a Bearer token or the token
cookie. A missing or invalid credential is a 401 with code UNAUTHORIZED; a
query that matches nothing is a 200 with an empty page.

Query parameters are never rejected: unknown sort fields, page sizes outside
10/25/50/100, pages below 1 and unknown windows fall back to their defaults.

Middleware:

The router is built on go-chi/chi. Global middleware adds request IDs to the
logging context, recovers panics and applies CORS (go-chi/cors). Route groups
add per-client rate limits (go-chi/httprate), security headers, Prometheus
request metrics and gzip compression for the query endpoints.
*/
package api
