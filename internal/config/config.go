// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ericfisherdev/deviceauth/internal/domain/model"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	SecretKey          []byte // nil when credential storage is disabled
	DBPath             string
	ListenAddr         string
	AuthCacheTTL       time.Duration
	CacheSweepInterval time.Duration
}

// HasSecretKey returns true when a credential encryption secret is configured.
// Without one the credential store rejects every read and write, and
// resolution always yields no credential.
func (c *Config) HasSecretKey() bool {
	return len(c.SecretKey) > 0
}

// Load reads configuration from environment variables and returns a validated Config.
// DEVICEAUTH_SECRET_KEY is optional; any non-empty string is accepted and a
// 256-bit key is derived from it. Optional variables with defaults:
// DEVICEAUTH_DB_PATH (deviceauth.db), DEVICEAUTH_LISTEN_ADDR (127.0.0.1:8080),
// DEVICEAUTH_AUTH_CACHE_TTL (1h), DEVICEAUTH_CACHE_SWEEP_INTERVAL (5m).
func Load() (*Config, error) {
	var secretKey []byte
	if v := os.Getenv("DEVICEAUTH_SECRET_KEY"); v != "" {
		secretKey = []byte(v)
	}

	dbPath := "deviceauth.db"
	if v, ok := os.LookupEnv("DEVICEAUTH_DB_PATH"); ok && v != "" {
		dbPath = v
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("DEVICEAUTH_LISTEN_ADDR"); ok && v != "" {
		listenAddr = v
	}

	authCacheTTL, err := positiveDuration("DEVICEAUTH_AUTH_CACHE_TTL", model.DefaultAuthStateTTL)
	if err != nil {
		return nil, err
	}

	sweepInterval, err := positiveDuration("DEVICEAUTH_CACHE_SWEEP_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	return &Config{
		SecretKey:          secretKey,
		DBPath:             dbPath,
		ListenAddr:         listenAddr,
		AuthCacheTTL:       authCacheTTL,
		CacheSweepInterval: sweepInterval,
	}, nil
}

// positiveDuration parses the named variable as a Go duration, returning def
// when it is unset.
func positiveDuration(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", key, v)
	}
	return parsed, nil
}
