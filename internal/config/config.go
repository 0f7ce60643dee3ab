// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Flat koanf keys so env vars map one-to-one (PREBOOK_DB_DSN -> db_dsn).
// - New() returns defaults; Load layers file and env on top.
package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBDriver selects the SQL driver: sqlite or postgres.
	DBDriver string `koanf:"db_driver"`
	// DBDSN is passed to sql.Open verbatim.
	DBDSN string `koanf:"db_dsn"`

	// JWTSecret signs admin bearer tokens.
	JWTSecret string `koanf:"jwt_secret"`
	// TokenTTLMinutes bounds bearer token lifetime.
	TokenTTLMinutes int `koanf:"token_ttl_minutes"`

	// EmailQueueSize bounds the outbound email queue.
	EmailQueueSize int `koanf:"email_queue_size"`
	// EmailWorkerCount sets the number of delivery workers.
	EmailWorkerCount int    `koanf:"email_worker_count"`
	EmailFrom        string `koanf:"email_from"`

	// RateLimitRPS and RateLimitBurst throttle order submissions per client IP.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`
	// TrustedProxies is a comma-separated list of CIDRs whose X-Forwarded-For
	// header names the client. Other peers are keyed on their own address.
	TrustedProxies string `koanf:"trusted_proxies"`

	// IdempotencySize caps the remembered Idempotency-Key values.
	IdempotencySize int `koanf:"idempotency_size"`

	// RedisAddr moves the pre-booking counter into redis when set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	GeoURL            string `koanf:"geo_url"`
	GeoAllowedCountry string `koanf:"geo_allowed_country"`
	GeoTimeoutMS      int    `koanf:"geo_timeout_ms"`

	PrebookingInitial    int64 `koanf:"prebooking_initial"`
	PrebookingTarget     int64 `koanf:"prebooking_target"`
	PrebookingIntervalMS int   `koanf:"prebooking_interval_ms"`

	// SeedOnStart inserts the default admin, plans and templates when missing.
	SeedOnStart bool `koanf:"seed_on_start"`

	// DataDir is the CSV directory used by import/export.
	DataDir string `koanf:"data_dir"`
	// EmailOutbox also appends every sent email to DataDir/outbox.csv.
	EmailOutbox bool `koanf:"email_outbox"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		DBDriver:             DriverSQLite,
		DBDSN:                "prebook.db",
		JWTSecret:            "change-me-in-production",
		TokenTTLMinutes:      24 * 60,
		EmailQueueSize:       1000,
		EmailWorkerCount:     4,
		EmailFrom:            "orders@starlink-india.com",
		RateLimitRPS:         5,
		RateLimitBurst:       10,
		IdempotencySize:      10_000,
		GeoURL:               "http://ip-api.com",
		GeoAllowedCountry:    "IN",
		GeoTimeoutMS:         3000,
		PrebookingInitial:    113_928,
		PrebookingTarget:     200_000,
		PrebookingIntervalMS: 5000,
		SeedOnStart:          true,
		DataDir:              "data",
	}
}

// TokenTTL returns the bearer token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

// GeoTimeout returns the geolocation lookup timeout.
func (c *Config) GeoTimeout() time.Duration {
	return time.Duration(c.GeoTimeoutMS) * time.Millisecond
}

// PrebookingInterval returns the counter tick.
func (c *Config) PrebookingInterval() time.Duration {
	return time.Duration(c.PrebookingIntervalMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.DBDriver) {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: db_driver must be sqlite or postgres, got %q", ErrInvalidConfig, c.DBDriver)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("%w: jwt_secret must not be empty", ErrInvalidConfig)
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return fmt.Errorf("%w: trusted_proxies: %v", ErrInvalidConfig, err)
	}
	return nil
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address counts as a
// single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, part := range strings.Split(c.TrustedProxies, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.Contains(part, "/") {
			addr, err := netip.ParseAddr(part)
			if err != nil {
				return nil, err
			}
			out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(part)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Masked())
	}
	return out, nil
}
