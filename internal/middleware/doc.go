// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

/*
Package middleware provides HTTP middleware shared by the API router.

All middleware use the http.HandlerFunc -> http.HandlerFunc shape and are
adapted to chi with a small wrapper in the api package.

  - RequestID: assigns or propagates X-Request-ID and seeds the logging
    context with request and correlation IDs.
  - PrometheusMetrics: request counts, latency histograms, in-flight gauge
    and rate-limit rejections, labelled by chi route pattern.
  - Compression: gzip for clients that accept it, pooled writers.
*/
package middleware
