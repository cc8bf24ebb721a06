// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/sitelens/internal/cache"
	"github.com/tomtom215/sitelens/internal/config"
	"github.com/tomtom215/sitelens/internal/logging"
	"github.com/tomtom215/sitelens/internal/metrics"
	"github.com/tomtom215/sitelens/internal/models"
)

// Geo lookup sources, used as metric labels.
const (
	GeoSourceCache   = "cache"
	GeoSourceRemote  = "remote"
	GeoSourceHeaders = "headers"
	GeoSourcePrivate = "private"
	GeoSourceNone    = "none"
)

const geoBreakerName = "geo-lookup"

// GeoResolver enriches client addresses with geo data.
type GeoResolver struct {
	lookupURL string
	client    *http.Client
	cache     *cache.Cache
	breaker   *gobreaker.CircuitBreaker[models.GeoInfo]
}

// NewGeoResolver builds a resolver from cfg. With no LookupURL only proxy
// header hints are used.
func NewGeoResolver(cfg *config.GeoConfig) *GeoResolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &GeoResolver{
		lookupURL: cfg.LookupURL,
		client:    &http.Client{Timeout: timeout},
		cache:     cache.New(ttl),
		breaker: gobreaker.NewCircuitBreaker[models.GeoInfo](gobreaker.Settings{
			Name:        geoBreakerName,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				metrics.RecordBreakerTransition(name, from.String(), to.String())
				logging.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Geo lookup circuit breaker state changed")
			},
		}),
	}
}

// Close stops the resolver's cache cleanup.
func (g *GeoResolver) Close() {
	g.cache.Close()
}

// Resolve returns geo data for address. Remote results are cached per
// address; hints fill any field the remote service left empty. Resolve
// never fails: lookup errors degrade to the hints.
func (g *GeoResolver) Resolve(ctx context.Context, address string, hints models.GeoInfo) models.GeoInfo {
	ip := net.ParseIP(address)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
		metrics.RecordGeoLookup(GeoSourcePrivate)
		return hints
	}

	if cached, ok := g.cache.Get(address); ok {
		metrics.RecordCacheAccess("geo", true)
		metrics.RecordGeoLookup(GeoSourceCache)
		return mergeGeo(cached.(models.GeoInfo), hints)
	}
	metrics.RecordCacheAccess("geo", false)

	if g.lookupURL != "" {
		info, err := g.breaker.Execute(func() (models.GeoInfo, error) {
			return g.lookup(ctx, address)
		})
		if err == nil {
			g.cache.Set(address, info)
			metrics.RecordGeoLookup(GeoSourceRemote)
			return mergeGeo(info, hints)
		}
		if !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Ctx(ctx).Debug().Err(err).Str("address", address).Msg("Geo lookup failed")
		}
	}

	if hints != (models.GeoInfo{}) {
		metrics.RecordGeoLookup(GeoSourceHeaders)
	} else {
		metrics.RecordGeoLookup(GeoSourceNone)
	}
	return hints
}

// geoResponse accepts the field names of the common free lookup services
// (ip-api.com and ipinfo.io style).
type geoResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	Country      string `json:"country"`
	CountryCode  string `json:"countryCode"`
	Region       string `json:"region"`
	RegionName   string `json:"regionName"`
	City         string `json:"city"`
	Timezone     string `json:"timezone"`
	Org          string `json:"org"`
	Organization string `json:"organization"`
	ISP          string `json:"isp"`
}

func (g *GeoResolver) lookup(ctx context.Context, address string) (models.GeoInfo, error) {
	start := time.Now()
	defer func() {
		metrics.GeoLookupDuration.Observe(time.Since(start).Seconds())
	}()

	endpoint := fmt.Sprintf(g.lookupURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return models.GeoInfo{}, fmt.Errorf("build geo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return models.GeoInfo{}, fmt.Errorf("geo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.GeoInfo{}, fmt.Errorf("geo service returned %d", resp.StatusCode)
	}

	var body geoResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body); err != nil {
		return models.GeoInfo{}, fmt.Errorf("decode geo response: %w", err)
	}
	if strings.EqualFold(body.Status, "fail") {
		return models.GeoInfo{}, fmt.Errorf("geo service: %s", body.Message)
	}

	info := models.GeoInfo{
		Country:      firstNonEmpty(body.Country, body.CountryCode),
		Region:       firstNonEmpty(body.RegionName, body.Region),
		City:         body.City,
		Timezone:     body.Timezone,
		Organization: firstNonEmpty(body.Organization, body.Org, body.ISP),
		ISP:          firstNonEmpty(body.ISP, body.Org),
	}
	return info, nil
}

// mergeGeo fills empty fields of primary from fallback.
func mergeGeo(primary, fallback models.GeoInfo) models.GeoInfo {
	primary.Organization = firstNonEmpty(primary.Organization, fallback.Organization)
	primary.City = firstNonEmpty(primary.City, fallback.City)
	primary.Region = firstNonEmpty(primary.Region, fallback.Region)
	primary.Country = firstNonEmpty(primary.Country, fallback.Country)
	primary.Timezone = firstNonEmpty(primary.Timezone, fallback.Timezone)
	primary.ISP = firstNonEmpty(primary.ISP, fallback.ISP)
	return primary
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
