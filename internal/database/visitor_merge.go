// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package database

import (
	"time"

	"github.com/tomtom215/sitelens/internal/models"
)

// MergeVisit applies u to existing and returns the resulting record.
// A nil existing record starts a new visitor with one visit; after that
// only page views increment the count. First-seen only moves back and
// last-seen only moves forward, so out-of-order events are harmless.
// Geo, client and referrer fields take the latest non-empty value.
func MergeVisit(existing *models.Visitor, u models.VisitUpdate) models.Visitor {
	seen := u.SeenAt.UTC().Truncate(time.Microsecond)

	if existing == nil {
		v := models.Visitor{
			Address:      u.Address,
			Fingerprint:  u.Fingerprint,
			Organization: u.Geo.Organization,
			City:         u.Geo.City,
			Region:       u.Geo.Region,
			Country:      u.Geo.Country,
			Timezone:     u.Geo.Timezone,
			ISP:          u.Geo.ISP,
			Pages:        []string{},
			FirstVisited: seen,
			LastVisited:  seen,
			VisitCount:   1,
			Client:       u.Client,
			Referrer:     u.Referrer,
		}
		if u.Page != "" {
			v.Pages = append(v.Pages, u.Page)
		}
		return v
	}

	v := *existing
	v.Pages = append([]string(nil), existing.Pages...)
	if v.Pages == nil {
		v.Pages = []string{}
	}

	if u.CountsVisit {
		v.VisitCount++
	}
	if seen.Before(v.FirstVisited) {
		v.FirstVisited = seen
	}
	if seen.After(v.LastVisited) {
		v.LastVisited = seen
	}
	if u.Page != "" && !containsPage(v.Pages, u.Page) {
		v.Pages = append(v.Pages, u.Page)
	}

	setIfPresent(&v.Organization, u.Geo.Organization)
	setIfPresent(&v.City, u.Geo.City)
	setIfPresent(&v.Region, u.Geo.Region)
	setIfPresent(&v.Country, u.Geo.Country)
	setIfPresent(&v.Timezone, u.Geo.Timezone)
	setIfPresent(&v.ISP, u.Geo.ISP)
	setIfPresent(&v.Client, u.Client)
	setIfPresent(&v.Referrer, u.Referrer)
	return v
}

func containsPage(pages []string, page string) bool {
	for _, p := range pages {
		if p == page {
			return true
		}
	}
	return false
}

func setIfPresent(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
