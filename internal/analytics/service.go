// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/sitelens/internal/cache"
	"github.com/tomtom215/sitelens/internal/logging"
	"github.com/tomtom215/sitelens/internal/metrics"
	"github.com/tomtom215/sitelens/internal/models"
)

// Source loads the visitor records overlapping [from, to].
// *database.DB satisfies it.
type Source interface {
	VisitorsInRange(ctx context.Context, from, to time.Time) ([]models.Visitor, error)
	DataVersion() int64
}

// Service computes statistics from a Source, caching results until the
// source's data version changes or the cache TTL elapses.
type Service struct {
	source Source
	cache  *cache.Cache
	now    func() time.Time
}

// NewService creates a statistics service. A nil cache disables caching.
func NewService(source Source, c *cache.Cache) *Service {
	return &Service{
		source: source,
		cache:  c,
		now:    time.Now,
	}
}

type statisticsKey struct {
	Window  Window `json:"window"`
	TopN    int    `json:"top"`
	Version int64  `json:"version"`
	// Minute granularity keeps day boundaries from being served stale.
	Minute int64 `json:"minute"`
}

// Statistics returns the rollup for window and topN. The bool result reports
// whether it was served from cache. Invalid arguments are normalized.
func (s *Service) Statistics(ctx context.Context, window Window, topN int) (models.Statistics, bool, error) {
	window = ParseWindow(string(window))
	topN = NormalizeTopN(topN)
	now := s.now().UTC()

	var key string
	if s.cache != nil {
		key = cache.GenerateKey("statistics", statisticsKey{
			Window:  window,
			TopN:    topN,
			Version: s.source.DataVersion(),
			Minute:  now.Unix() / 60,
		})
		if cached, ok := s.cache.Get(key); ok {
			if stats, ok := cached.(models.Statistics); ok {
				metrics.RecordCacheAccess("statistics", true)
				return stats, true, nil
			}
		}
		metrics.RecordCacheAccess("statistics", false)
	}

	start, end := window.Range(now)
	records, err := s.source.VisitorsInRange(ctx, start, end)
	if err != nil {
		return models.Statistics{}, false, fmt.Errorf("failed to load visitors for %s: %w", window, err)
	}

	stats := Compute(records, window, now, topN)
	if s.cache != nil {
		s.cache.Set(key, stats)
	}

	logging.Debug().
		Str("window", string(window)).
		Int("records", len(records)).
		Int("unique", stats.UniqueVisitors).
		Msg("Computed visitor statistics")

	return stats, false, nil
}
