// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that required configuration is present and within bounds.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateDatabase,
		c.validateServer,
		c.validateAPI,
		c.validateSecurity,
		c.validateIngest,
		c.validateGeo,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be non-negative")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

// validPageSizes are the page sizes the visitor table offers.
var validPageSizes = map[int]bool{10: true, 25: true, 50: true, 100: true}

func (c *Config) validateAPI() error {
	if !validPageSizes[c.API.DefaultPageSize] {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be one of 10, 25, 50, 100")
	}
	if c.API.MaxTopN < 1 || c.API.MaxTopN > 100 {
		return fmt.Errorf("API_MAX_TOP_N must be between 1 and 100")
	}
	if c.API.DefaultTopN < 1 || c.API.DefaultTopN > c.API.MaxTopN {
		return fmt.Errorf("API_DEFAULT_TOP_N must be between 1 and API_MAX_TOP_N")
	}
	if c.API.StatsCacheTTL < 0 {
		return fmt.Errorf("STATS_CACHE_TTL must be non-negative")
	}
	return nil
}

const (
	minJWTSecretLength   = 32
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateSecurity() error {
	if err := c.validateJWTSecret(); err != nil {
		return err
	}
	if c.Security.AdminUsername == "" {
		return fmt.Errorf("ADMIN_USERNAME is required")
	}
	if c.Security.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required")
	}
	if containsPlaceholder(c.Security.AdminPassword) {
		return fmt.Errorf("ADMIN_PASSWORD contains a placeholder value - set a secure password")
	}
	if c.Security.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive")
	}
	if err := c.validateCORS(); err != nil {
		return err
	}
	return c.validateRateLimits()
}

func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("JWT_SECRET contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	return nil
}

// validateCORS rejects wildcard origins in production, where the dashboard
// endpoints accept credentials.
func (c *Config) validateCORS() error {
	if c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production; " +
			"set specific origins: CORS_ORIGINS=https://example.com,https://admin.example.com")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS reports whether the CORS setup deserves a startup warning.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.hasWildcardCORS()
}

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	for name, reqs := range map[string]int{
		"RATE_LIMIT_REQUESTS":     c.Security.RateLimitReqs,
		"LOG_RATE_LIMIT_REQUESTS": c.Security.LogRateLimitReqs,
	} {
		if reqs < minRateLimitRequests || reqs > maxRateLimitRequests {
			return fmt.Errorf("%s must be between %d and %d", name, minRateLimitRequests, maxRateLimitRequests)
		}
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between 1s and 1h")
	}
	return nil
}

func (c *Config) validateIngest() error {
	switch c.Ingest.Transport {
	case "memory", "nats":
	default:
		return fmt.Errorf("INGEST_TRANSPORT must be one of: memory, nats")
	}
	if c.Ingest.Topic == "" {
		return fmt.Errorf("INGEST_TOPIC is required")
	}
	if c.Ingest.DedupTTL < time.Minute {
		return fmt.Errorf("INGEST_DEDUP_TTL must be at least 1m")
	}
	if c.Ingest.BufferSize < 1 {
		return fmt.Errorf("INGEST_BUFFER_SIZE must be positive")
	}
	if c.Ingest.RetryCount < 0 || c.Ingest.RetryCount > 10 {
		return fmt.Errorf("INGEST_RETRY_COUNT must be between 0 and 10")
	}
	if c.Ingest.Transport == "nats" {
		return c.validateNATS()
	}
	return nil
}

func (c *Config) validateNATS() error {
	u, err := url.Parse(c.NATS.URL)
	if err != nil || (u.Scheme != "nats" && u.Scheme != "tls") || u.Host == "" {
		return fmt.Errorf("NATS_URL must be a nats:// or tls:// URL")
	}
	if c.NATS.EmbeddedServer && c.NATS.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
	}
	if c.NATS.StreamRetentionDays < 1 || c.NATS.StreamRetentionDays > 365 {
		return fmt.Errorf("NATS_RETENTION_DAYS must be between 1 and 365")
	}
	return nil
}

func (c *Config) validateGeo() error {
	if c.Geo.LookupURL == "" {
		return nil
	}
	u, err := url.Parse(c.Geo.LookupURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("GEO_LOOKUP_URL must be an http(s) URL")
	}
	if !strings.Contains(c.Geo.LookupURL, "%s") {
		return fmt.Errorf("GEO_LOOKUP_URL must contain %%s for the client address")
	}
	if c.Geo.Timeout <= 0 {
		return fmt.Errorf("GEO_TIMEOUT must be positive")
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{"json": true, "console": true}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT is production.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// placeholderPatterns catch values copied from example configs.
var placeholderPatterns = []string{
	"REPLACE", "CHANGEME", "CHANGE_ME", "YOUR_SECRET", "YOUR_PASSWORD", "PLACEHOLDER",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, p := range placeholderPatterns {
		if strings.Contains(upper, p) {
			return true
		}
	}
	return false
}
