// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/sitelens/internal/analytics"
)

// Statistics returns the visitor rollup for a time window.
//
// Method: GET
// Endpoint: /api/v1/statistics
//
// Query Parameters:
//   - window: 7d, 30d, 90d, 6m or 12m (default 30d)
//   - top: number of top countries, companies and pages (default 5)
//
// Served from a short-lived cache until the visitor data changes;
// metadata.cached reports a cache hit.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if h.stats == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Statistics not available", nil)
		return
	}

	start := time.Now()
	window := analytics.ParseWindow(r.URL.Query().Get("window"))
	topN := getIntParam(r, "top", h.defaultTopN())
	if h.config != nil && h.config.API.MaxTopN > 0 && topN > h.config.API.MaxTopN {
		topN = h.config.API.MaxTopN
	}

	stats, cached, err := h.stats.Statistics(r.Context(), window, topN)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to compute statistics", err)
		return
	}

	respondSuccess(w, http.StatusOK, stats, start, cached)
}

func (h *Handler) defaultTopN() int {
	if h.config != nil && h.config.API.DefaultTopN > 0 {
		return h.config.API.DefaultTopN
	}
	return analytics.DefaultTopN
}
