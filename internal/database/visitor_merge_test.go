// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package database

import (
	"reflect"
	"testing"
	"time"

	"github.com/tomtom215/sitelens/internal/models"
)

func TestMergeVisit_New(t *testing.T) {
	local := time.FixedZone("CET", 3600)
	u := visit("10.0.0.1", "fp1", "/", t0.In(local).Add(123*time.Nanosecond), false)
	u.Client = "agent"

	v := MergeVisit(nil, u)
	if v.VisitCount != 1 {
		t.Errorf("VisitCount = %d, want 1 for a new record", v.VisitCount)
	}
	if !reflect.DeepEqual(v.Pages, []string{"/"}) {
		t.Errorf("Pages = %v", v.Pages)
	}
	if v.FirstVisited != v.LastVisited || v.FirstVisited.Location() != time.UTC {
		t.Errorf("first/last = %v/%v, want equal UTC", v.FirstVisited, v.LastVisited)
	}
	if v.FirstVisited.Nanosecond()%1000 != 0 {
		t.Errorf("timestamp not truncated to microseconds: %v", v.FirstVisited)
	}
	if v.Client != "agent" || v.City != "Berlin" {
		t.Errorf("fields not copied: %+v", v)
	}
}

func TestMergeVisit_Existing(t *testing.T) {
	existing := MergeVisit(nil, visit("10.0.0.1", "fp1", "/", t0, true))

	tests := []struct {
		name       string
		update     models.VisitUpdate
		wantVisits int
		wantPages  []string
		wantFirst  time.Time
		wantLast   time.Time
	}{
		{
			name:       "page view increments",
			update:     visit("10.0.0.1", "fp1", "/", t0.Add(time.Hour), true),
			wantVisits: 2,
			wantPages:  []string{"/"},
			wantFirst:  t0,
			wantLast:   t0.Add(time.Hour),
		},
		{
			name:       "other event refreshes last seen only",
			update:     visit("10.0.0.1", "fp1", "/docs", t0.Add(time.Minute), false),
			wantVisits: 1,
			wantPages:  []string{"/", "/docs"},
			wantFirst:  t0,
			wantLast:   t0.Add(time.Minute),
		},
		{
			name:       "late event moves first seen back",
			update:     visit("10.0.0.1", "fp1", "", t0.Add(-time.Minute), false),
			wantVisits: 1,
			wantPages:  []string{"/"},
			wantFirst:  t0.Add(-time.Minute),
			wantLast:   t0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := MergeVisit(&existing, tt.update)
			if v.VisitCount != tt.wantVisits {
				t.Errorf("VisitCount = %d, want %d", v.VisitCount, tt.wantVisits)
			}
			if !reflect.DeepEqual(v.Pages, tt.wantPages) {
				t.Errorf("Pages = %v, want %v", v.Pages, tt.wantPages)
			}
			if !v.FirstVisited.Equal(tt.wantFirst) || !v.LastVisited.Equal(tt.wantLast) {
				t.Errorf("first/last = %v/%v, want %v/%v", v.FirstVisited, v.LastVisited, tt.wantFirst, tt.wantLast)
			}
		})
	}

	if len(existing.Pages) != 1 {
		t.Errorf("existing record mutated: %v", existing.Pages)
	}
}

func TestMergeVisit_GeoKeepsKnownValues(t *testing.T) {
	existing := MergeVisit(nil, visit("10.0.0.1", "fp1", "/", t0, true))
	u := visit("10.0.0.1", "fp1", "/", t0.Add(time.Hour), true)
	u.Geo = models.GeoInfo{Country: "Austria"}

	v := MergeVisit(&existing, u)
	if v.Country != "Austria" {
		t.Errorf("Country = %q, want Austria", v.Country)
	}
	if v.City != "Berlin" || v.Organization != "Acme Corp" {
		t.Errorf("empty geo fields overwrote known ones: %+v", v)
	}
}
