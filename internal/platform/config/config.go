// Package config loads gateway configuration from the environment, applying
// defaults first, then env overrides, then validation. Nothing in this
// package performs I/O beyond reading the process environment and optional
// _FILE secret paths.
package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds every environment-derived setting recognized by the gateway
// (the gateway's connection, rate-limit, reputation, and admin-surface
// settings).
type Config struct {
	Addr        string `koanf:"addr"`
	MetricsAddr string `koanf:"metrics_addr"`
	LogLevel    string `koanf:"log_level"`

	RedisURL          string        `koanf:"redis_url"`
	RedisKeyPrefix    string        `koanf:"redis_key_prefix"`
	RedisPoolSize     int           `koanf:"redis_pool_size"`
	RedisDialTimeout  time.Duration `koanf:"redis_dial_timeout"`
	RedisReadTimeout  time.Duration `koanf:"redis_read_timeout"`
	RedisWriteTimeout time.Duration `koanf:"redis_write_timeout"`

	TrustedProxies []string `koanf:"trusted_proxies"`

	DefaultCapacity       int           `koanf:"default_capacity"`
	DefaultRefillTokens   float64       `koanf:"default_refill_tokens"`
	DefaultRefillInterval time.Duration `koanf:"default_refill_interval"`
	BucketTTL             time.Duration `koanf:"bucket_ttl"`

	AdminRateLimit  int           `koanf:"admin_rate_limit"`
	AdminRateWindow time.Duration `koanf:"admin_rate_window"`

	ReputationCacheTTL       time.Duration `koanf:"reputation_cache_ttl"`
	ReputationLockTTL        time.Duration `koanf:"reputation_lock_ttl"`
	ReputationBlockThreshold int           `koanf:"reputation_block_threshold"`

	AbuseIPDBAPIKey     string `koanf:"abuseipdb_api_key"`
	AbuseIPDBBaseURL    string `koanf:"abuseipdb_base_url"`
	AbuseIPDBMaxAgeDays int    `koanf:"abuseipdb_max_age_days"`

	IPQSAPIKey  string `koanf:"ipqs_api_key"`
	IPQSBaseURL string `koanf:"ipqs_base_url"`

	AdminToken   string `koanf:"admin_token"`
	JWTPublicKey string `koanf:"jwt_public_key"`

	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"addr":         ":8080",
		"metrics_addr": ":9090",
		"log_level":    "info",

		"redis_url":           "redis://localhost:6379/0",
		"redis_key_prefix":    "lb:",
		"redis_pool_size":     10,
		"redis_dial_timeout":  "5s",
		"redis_read_timeout":  "3s",
		"redis_write_timeout": "3s",

		"trusted_proxies": "",

		"default_capacity":        60,
		"default_refill_tokens":   60,
		"default_refill_interval": "60s",
		"bucket_ttl":              "3600s",

		"admin_rate_limit":  100,
		"admin_rate_window": "60s",

		"reputation_cache_ttl":       "3600s",
		"reputation_lock_ttl":        "10s",
		"reputation_block_threshold": 50,

		"abuseipdb_base_url":     "https://api.abuseipdb.com/api/v2",
		"abuseipdb_max_age_days": 30,
		"ipqs_base_url":          "https://ipqualityscore.com/api/json/ip",

		"shutdown_timeout": "10s",
	}
}

// Load reads configuration from the environment, applying defaults first and
// validating the result before returning. Secret-bearing fields also honor a
// "<KEY>_FILE" env var pointing at a file whose trimmed contents replace the
// value, the same convention the CrowdSec bouncer config uses.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(&rawProvider{data: defaults()}, nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if err := injectFileSecrets(k); err != nil {
		return nil, fmt.Errorf("inject file secrets: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.TrustedProxies = splitCSV(k.String("trusted_proxies"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects non-positive capacities/refill parameters, malformed
// trusted-proxy CIDRs, and malformed adapter base URLs before the process
// starts serving traffic.
func (c *Config) Validate() error {
	if c.DefaultCapacity <= 0 {
		return fmt.Errorf("default_capacity must be > 0; got %d", c.DefaultCapacity)
	}
	if c.DefaultRefillTokens <= 0 {
		return fmt.Errorf("default_refill_tokens must be > 0; got %v", c.DefaultRefillTokens)
	}
	if c.DefaultRefillInterval <= 0 {
		return fmt.Errorf("default_refill_interval must be > 0; got %s", c.DefaultRefillInterval)
	}
	if c.AdminRateLimit <= 0 {
		return fmt.Errorf("admin_rate_limit must be > 0; got %d", c.AdminRateLimit)
	}
	if c.AdminRateWindow <= 0 {
		return fmt.Errorf("admin_rate_window must be > 0; got %s", c.AdminRateWindow)
	}
	if c.ReputationCacheTTL <= 0 {
		return fmt.Errorf("reputation_cache_ttl must be > 0; got %s", c.ReputationCacheTTL)
	}
	if c.ReputationLockTTL <= 0 {
		return fmt.Errorf("reputation_lock_ttl must be > 0; got %s", c.ReputationLockTTL)
	}
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return fmt.Errorf("trusted_proxies: invalid CIDR %q: %w", cidr, err)
		}
	}
	for name, u := range map[string]string{
		"abuseipdb_base_url": c.AbuseIPDBBaseURL,
		"ipqs_base_url":      c.IPQSBaseURL,
	} {
		if u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return fmt.Errorf("%s must start with http:// or https://; got %q", name, u)
		}
	}
	return nil
}

// TrustedProxyNets parses TrustedProxies into net.IPNet values. Callers
// should only invoke this after Validate has succeeded.
func (c *Config) TrustedProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, cidr := range c.TrustedProxies {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, err
		}
		nets = append(nets, n)
	}
	return nets, nil
}

// RefillRate returns tokens per second: refillTokens ÷ refillInterval, the
// formula, rather than treating the configured token count as a rate
// directly.
func (c *Config) RefillRate() float64 {
	return c.DefaultRefillTokens / c.DefaultRefillInterval.Seconds()
}

func injectFileSecrets(k *koanf.Koanf) error {
	for _, key := range []string{"redis_url", "admin_token", "abuseipdb_api_key", "ipqs_api_key", "jwt_public_key"} {
		filePath := k.String(key + "_file")
		if filePath == "" {
			continue
		}
		raw, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("reading secret file for %s (%s): %w", key, filePath, err)
		}
		if err := k.Set(key, strings.TrimSpace(string(raw))); err != nil {
			return fmt.Errorf("setting %s from file: %w", key, err)
		}
	}
	return nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// rawProvider implements koanf.Provider for a map[string]interface{}.
type rawProvider struct {
	data map[string]interface{}
}

func (r *rawProvider) Read() (map[string]interface{}, error) { return r.data, nil }
func (r *rawProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("rawProvider does not support ReadBytes")
}
