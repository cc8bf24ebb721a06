// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package models

import "time"

// NamedCount is one row of a top-N breakdown.
type NamedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SeriesPoint is one bucket of the visitor time series.
type SeriesPoint struct {
	Bucket   time.Time `json:"bucket"` // bucket start, UTC
	Label    string    `json:"label"`  // 2006-01-02 or 2006-01
	Visitors int       `json:"visitors"`
}

// Statistics is a rollup of visitor records over a time window.
// NewVisitors + ReturningVisitors always equals UniqueVisitors.
type Statistics struct {
	Window            string        `json:"window"`
	Granularity       string        `json:"granularity"` // day, week, month
	From              time.Time     `json:"from"`
	To                time.Time     `json:"to"`
	UniqueVisitors    int           `json:"unique_visitors"`
	TotalVisits       int           `json:"total_visits"`
	AverageVisits     float64       `json:"average_visits"`
	NewVisitors       int           `json:"new_visitors"`
	ReturningVisitors int           `json:"returning_visitors"`
	TopCountries      []NamedCount  `json:"top_countries"`
	TopCompanies      []NamedCount  `json:"top_companies"`
	TopPages          []NamedCount  `json:"top_pages"`
	Series            []SeriesPoint `json:"series"`
}

// HealthStatus is the readiness probe response.
type HealthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	DatabaseConnected bool    `json:"database_connected"`
	IngestRunning     bool    `json:"ingest_running"`
	Uptime            float64 `json:"uptime_seconds"`
}
