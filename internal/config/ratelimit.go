package config

import (
	"strconv"
	"time"
)

// RateLimitConfig drives the token-bucket middleware guarding the hold and
// confirm endpoints.  Disabled (or left without a Redis client) it becomes a
// pass-through.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int           // bucket size, i.e. allowed burst
	RefillTokens   int           // tokens added per interval
	RefillInterval time.Duration // refill cadence
	TTL            time.Duration // idle bucket expiry in Redis
	Prefix         string        // key namespace
}

// LoadRateLimitConfig reads the RATE_LIMIT_* variables with sane floors: at
// least one token per refill and a TTL long enough to outlive several refill
// intervals.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envIntDef("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envIntDef("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envSeconds("RATE_LIMIT_REFILL_INTERVAL_SECONDS", 1),
		TTL:            envSeconds("RATE_LIMIT_TTL_SECONDS", 600),
		Prefix:         getenv("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if min := 5 * cfg.RefillInterval; cfg.TTL < min {
		cfg.TTL = min
	}
	return cfg
}

func envIntDef(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
