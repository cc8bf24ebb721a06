// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package models

import "time"

// Visitor is the persisted record for one identity, keyed by network
// address plus fingerprint. Invariants: LastVisited >= FirstVisited,
// VisitCount >= 1, Pages non-empty.
type Visitor struct {
	Address      string    `json:"address"`
	Fingerprint  string    `json:"fingerprint"`
	Organization string    `json:"organization"`
	City         string    `json:"city"`
	Region       string    `json:"region"`
	Country      string    `json:"country"`
	Timezone     string    `json:"timezone"`
	ISP          string    `json:"isp"`
	Pages        []string  `json:"pages"` // first-occurrence order, no duplicates
	FirstVisited time.Time `json:"first_visited"`
	LastVisited  time.Time `json:"last_visited"`
	VisitCount   int       `json:"visit_count"`
	Client       string    `json:"client,omitempty"`
	Referrer     string    `json:"referrer,omitempty"`
}

// IsNew reports whether the visitor has been seen exactly once.
func (v *Visitor) IsNew() bool {
	return v.VisitCount == 1
}

// GeoInfo is the enrichment attached to a visitor from its network address.
type GeoInfo struct {
	Organization string `json:"organization"`
	City         string `json:"city"`
	Region       string `json:"region"`
	Country      string `json:"country"`
	Timezone     string `json:"timezone"`
	ISP          string `json:"isp"`
}

// VisitUpdate is what one ingested event contributes to a visitor record.
type VisitUpdate struct {
	Address     string
	Fingerprint string
	Geo         GeoInfo
	Page        string
	SeenAt      time.Time
	CountsVisit bool // page views increment the visit count
	Client      string
	Referrer    string
}
