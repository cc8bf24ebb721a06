// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/sitelens/internal/models"
	"github.com/tomtom215/sitelens/internal/query"
)

// VisitorPage is the visitors endpoint payload.
type VisitorPage struct {
	Items      []models.Visitor `json:"items"`
	TotalItems int              `json:"total_items"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
	Filters    query.Filters    `json:"filters"`
	Sort       query.Sort       `json:"sort"`
	Links      []query.Link     `json:"links"`
}

// Visitors lists visitor records.
//
// Method: GET
// Endpoint: /api/v1/visitors
//
// Query Parameters:
//   - organization, country, address: case-insensitive substring filters
//   - from, to: last-seen range, RFC 3339 or YYYY-MM-DD
//   - sort: address, organization, country, city, first_seen, last_seen, visit_count
//   - order: asc or desc
//   - page: 1-indexed page number
//   - page_size: 10, 25, 50 or 100
//
// Invalid values fall back to their defaults. A page past the end is an
// empty page, not an error.
func (h *Handler) Visitors(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if h.db == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Database not available", nil)
		return
	}

	start := time.Now()
	req := h.parseVisitorRequest(r)

	result, err := h.db.ListVisitors(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to query visitors", err)
		return
	}

	items := result.Items
	if items == nil {
		items = []models.Visitor{}
	}
	links := query.PageLinks(result.Page, result.TotalPages)
	if links == nil {
		links = []query.Link{}
	}

	respondSuccess(w, http.StatusOK, VisitorPage{
		Items:      items,
		TotalItems: result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
		Filters:    req.Filters,
		Sort:       req.Sort,
		Links:      links,
	}, start, false)
}

func (h *Handler) parseVisitorRequest(r *http.Request) query.Request {
	q := r.URL.Query()

	defaultSize := query.DefaultPageSize
	if h.config != nil && h.config.API.DefaultPageSize > 0 {
		defaultSize = h.config.API.DefaultPageSize
	}

	req := query.Request{
		Filters: query.Filters{
			Organization: strings.TrimSpace(q.Get("organization")),
			Country:      strings.TrimSpace(q.Get("country")),
			Address:      strings.TrimSpace(q.Get("address")),
			From:         parseTimeParam(q.Get("from"), false),
			To:           parseTimeParam(q.Get("to"), true),
		},
		Sort:     query.DefaultSort(),
		Page:     getIntParam(r, "page", 1),
		PageSize: getIntParam(r, "page_size", defaultSize),
	}

	if field, ok := query.ParseField(strings.TrimSpace(q.Get("sort"))); ok {
		req.Sort = query.Sort{Field: field, Direction: query.Descending}
	}
	if dir, ok := query.ParseDirection(strings.TrimSpace(q.Get("order"))); ok {
		req.Sort.Direction = dir
	}

	return req.Normalize()
}
