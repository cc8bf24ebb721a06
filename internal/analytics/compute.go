// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/tomtom215/sitelens/internal/models"
)

const (
	// DefaultTopN is the breakdown length when none is requested.
	DefaultTopN = 5
	// MaxTopN caps the breakdown length.
	MaxTopN = 10
)

// NormalizeTopN clamps n into [1, MaxTopN], defaulting non-positive values.
func NormalizeTopN(n int) int {
	switch {
	case n <= 0:
		return DefaultTopN
	case n > MaxTopN:
		return MaxTopN
	default:
		return n
	}
}

// InWindow reports whether the record overlaps [start, end].
func InWindow(v *models.Visitor, start, end time.Time) bool {
	return !v.LastVisited.Before(start) && !v.FirstVisited.After(end)
}

// Compute rolls records up into statistics for the window ending at now.
// Records outside the window are ignored. The input is not modified, so
// Compute is safe to call concurrently over a shared slice.
func Compute(records []models.Visitor, window Window, now time.Time, topN int) models.Statistics {
	window = ParseWindow(string(window))
	topN = NormalizeTopN(topN)
	start, end := window.Range(now)
	gran := window.Granularity()

	stats := models.Statistics{
		Window:      string(window),
		Granularity: string(gran),
		From:        start,
		To:          end,
	}

	countries := newCounter()
	companies := newCounter()
	pages := newCounter()
	buckets := make(map[time.Time]int)

	for i := range records {
		v := &records[i]
		if !InWindow(v, start, end) {
			continue
		}

		stats.UniqueVisitors++
		stats.TotalVisits += v.VisitCount
		if v.IsNew() {
			stats.NewVisitors++
		} else {
			stats.ReturningVisitors++
		}

		countries.add(v.Country)
		companies.add(v.Organization)
		seen := make(map[string]struct{}, len(v.Pages))
		for _, p := range v.Pages {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			pages.add(p)
		}

		buckets[gran.BucketStart(v.LastVisited)]++
	}

	stats.AverageVisits = Average(stats.TotalVisits, stats.UniqueVisitors)
	stats.TopCountries = countries.top(topN)
	stats.TopCompanies = companies.top(topN)
	stats.TopPages = pages.top(topN)
	stats.Series = Series(buckets, gran, start, end)
	return stats
}

// Average returns total/count rounded to two decimals, or 0 when count is 0.
func Average(total, count int) float64 {
	if count == 0 {
		return 0
	}
	return math.Round(float64(total)/float64(count)*100) / 100
}

// Series expands per-bucket counts into a chronological, gap-filled series
// covering every bucket from start through end.
func Series(counts map[time.Time]int, gran Granularity, start, end time.Time) []models.SeriesPoint {
	var out []models.SeriesPoint
	for b := gran.BucketStart(start); !b.After(end); b = gran.Next(b) {
		out = append(out, models.SeriesPoint{
			Bucket:   b,
			Label:    gran.Label(b),
			Visitors: counts[b],
		})
	}
	return out
}

// counter groups keys, remembering first-encounter order for tie-breaks.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if key == "" {
		return
	}
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *counter) top(n int) []models.NamedCount {
	out := make([]models.NamedCount, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, models.NamedCount{Name: k, Count: c.counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
