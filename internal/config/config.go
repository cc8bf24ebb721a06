// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
//
// Loading order (later layers win):
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file (config.yaml, or CONFIG_PATH)
//  3. Environment variables, including those loaded from a .env file
//
// Config is immutable after Load and safe for concurrent reads.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	API      APIConfig      `koanf:"api"`
	Security SecurityConfig `koanf:"security"`
	Ingest   IngestConfig   `koanf:"ingest"`
	NATS     NATSConfig     `koanf:"nats"`
	Geo      GeoConfig      `koanf:"geo"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig configures the DuckDB visitor store.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// APIConfig holds query endpoint defaults.
type APIConfig struct {
	DefaultPageSize int           `koanf:"default_page_size"`
	DefaultTopN     int           `koanf:"default_top_n"`
	MaxTopN         int           `koanf:"max_top_n"`
	StatsCacheTTL   time.Duration `koanf:"stats_cache_ttl"`
}

// SecurityConfig holds operator authentication and request limiting settings.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPassword     string        `koanf:"admin_password"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	LogRateLimitReqs  int           `koanf:"log_rate_limit_reqs"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	TrustedProxies    []string      `koanf:"trusted_proxies"`
}

// IngestConfig configures the event pipeline between the log endpoint and the visitor store.
type IngestConfig struct {
	// Transport selects the message bus: "memory" (Watermill gochannel) or "nats".
	Transport string `koanf:"transport"`

	// Topic is the Watermill topic events are published on.
	Topic string `koanf:"topic"`

	// DedupPath is the Badger directory for exit-summary deduplication.
	// Empty runs Badger in memory.
	DedupPath string        `koanf:"dedup_path"`
	DedupTTL  time.Duration `koanf:"dedup_ttl"`

	BufferSize           int64         `koanf:"buffer_size"`
	RetryCount           int           `koanf:"retry_count"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	CloseTimeout         time.Duration `koanf:"close_timeout"`
}

// NATSConfig configures the JetStream transport used when Ingest.Transport is "nats".
type NATSConfig struct {
	URL                 string `koanf:"url"`
	EmbeddedServer      bool   `koanf:"embedded_server"`
	StoreDir            string `koanf:"store_dir"`
	MaxMemory           int64  `koanf:"max_memory"`
	MaxStore            int64  `koanf:"max_store"`
	StreamRetentionDays int    `koanf:"stream_retention_days"`
	DurableName         string `koanf:"durable_name"`
	QueueGroup          string `koanf:"queue_group"`
}

// GeoConfig configures address enrichment for visitor records.
type GeoConfig struct {
	// LookupURL is an optional HTTP endpoint returning JSON geo data. "%s" is
	// replaced with the client address. Empty disables remote lookups and
	// only proxy headers are used.
	LookupURL string        `koanf:"lookup_url"`
	Timeout   time.Duration `koanf:"timeout"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`
}

// LoggingConfig mirrors logging.Config for koanf unmarshaling.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads an optional .env file into the process environment and then
// loads the layered configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadWithKoanf()
}
