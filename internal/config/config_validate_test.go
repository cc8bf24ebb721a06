// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWTSecret = testSecret
	cfg.Security.AdminUsername = "operator"
	cfg.Security.AdminPassword = "s3cure-Passw0rd"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"short secret", func(c *Config) { c.Security.JWTSecret = "short" }, "JWT_SECRET"},
		{"placeholder password", func(c *Config) { c.Security.AdminPassword = "changeme123" }, "ADMIN_PASSWORD"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"bad page size", func(c *Config) { c.API.DefaultPageSize = 30 }, "API_DEFAULT_PAGE_SIZE"},
		{"top n above max", func(c *Config) { c.API.DefaultTopN = 20 }, "API_DEFAULT_TOP_N"},
		{"unknown transport", func(c *Config) { c.Ingest.Transport = "kafka" }, "INGEST_TRANSPORT"},
		{"nats bad url", func(c *Config) {
			c.Ingest.Transport = "nats"
			c.NATS.URL = "http://localhost"
		}, "NATS_URL"},
		{"geo url without placeholder", func(c *Config) { c.Geo.LookupURL = "https://geo.example/json" }, "GEO_LOOKUP_URL"},
		{"wildcard cors in production", func(c *Config) { c.Server.Environment = "production" }, "CORS_ORIGINS"},
		{"rate limit disabled skips bounds", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
