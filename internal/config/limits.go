package config

import (
	"strings"
	"time"
)

// RateLimitConfig drives the Redis token bucket in front of the API.
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"RATE_LIMIT_ENABLED"`
	Capacity       int           `mapstructure:"RATE_LIMIT_CAPACITY"`
	RefillTokens   int           `mapstructure:"RATE_LIMIT_REFILL_TOKENS"`
	RefillInterval time.Duration `mapstructure:"RATE_LIMIT_REFILL_INTERVAL"`
	TTL            time.Duration `mapstructure:"RATE_LIMIT_TTL"`
	KeyStrategy    string        `mapstructure:"RATE_LIMIT_KEY_STRATEGY"`
	Prefix         string        `mapstructure:"RATE_LIMIT_PREFIX"`
	Debug          bool          `mapstructure:"RATE_LIMIT_DEBUG"`
}

func (c *RateLimitConfig) normalize() {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	// keys must outlive a full refill or the bucket resets early
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
}

// CacheConfig defines settings for the response cache middleware.  Only
// read-only document and template endpoints are cached; bed availability
// is never served from cache.
type CacheConfig struct {
	Enabled      bool            `mapstructure:"CACHE_ENABLED"`
	Methods      map[string]bool `mapstructure:"-"`
	TTL          time.Duration   `mapstructure:"CACHE_TTL"`
	KeyStrategy  string          `mapstructure:"CACHE_KEY_STRATEGY"`
	Prefix       string          `mapstructure:"CACHE_PREFIX"`
	MaxBodyBytes int             `mapstructure:"CACHE_MAX_BODY_BYTES"`
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
