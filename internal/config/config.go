package config // package config loads application configuration from environment variables

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to an
// environment variable; defaults are chosen so the service runs standalone
// with an in-memory catalog and lock backend when nothing is configured.
type Config struct {
	Env             string         // application environment (e.g. "dev", "prod")
	Port            string         // HTTP port to listen on
	HoldTTL         time.Duration  // lifetime of an unrefreshed seat hold
	CleanupInterval time.Duration  // reaper tick; kept strictly below HoldTTL
	AdminToken      string         // plaintext admin capability token (optional)
	AdminTokenHash  string         // bcrypt hash of the admin token (optional)
	JWTSecret       string         // HS256 secret for admin capability JWTs (optional)
	SeatsJSONPath   string         // catalog bootstrap file produced by the ingestion step
	TierPrices      map[string]int // tier name -> price used when admin sets a tier without a price
	DBUser          string         // MySQL username; durable store disabled when DBHost is empty
	DBPass          string         // MySQL password (optional)
	DBHost          string         // MySQL host
	DBPort          string         // MySQL port
	DBName          string         // MySQL database name
	EnableRedis     bool           // select the Redis lock backend instead of the in-process one
}

// defaultTierPrices mirrors the pricing table the seating chart ingestion uses.
var defaultTierPrices = map[string]int{
	"VIP": 1680,
	"A":   1280,
	"B":   880,
	"C":   580,
	"E":   380,
}

// Load reads configuration values from environment variables and returns a
// Config.  Every value has a default; the cleanup interval is clamped below
// the hold TTL so expired holds are reclaimed within one TTL window.
func Load() Config {
	cfg := Config{
		Env:             getenv("APP_ENV", "dev"),
		Port:            getenv("APP_PORT", "8000"),
		HoldTTL:         envSeconds("SEAT_HOLD_TTL_SECONDS", 120),
		CleanupInterval: envSeconds("SEAT_CLEANUP_INTERVAL_SECONDS", 5),
		AdminToken:      os.Getenv("ADMIN_TOKEN"),
		AdminTokenHash:  os.Getenv("ADMIN_TOKEN_HASH"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		SeatsJSONPath:   getenv("SEATS_JSON_PATH", "data/seats.json"),
		TierPrices:      parseTierPrices(os.Getenv("TIER_PRICE_MAP")),
		DBUser:          os.Getenv("DB_USER"),
		DBPass:          os.Getenv("DB_PASS"),
		DBHost:          os.Getenv("DB_HOST"),
		DBPort:          getenv("DB_PORT", "3306"),
		DBName:          os.Getenv("DB_NAME"),
		EnableRedis:     envBool("ENABLE_REDIS", false),
	}
	if cfg.HoldTTL < time.Second {
		cfg.HoldTTL = time.Second
	}
	if cfg.CleanupInterval < time.Second {
		cfg.CleanupInterval = time.Second
	}
	if cfg.CleanupInterval >= cfg.HoldTTL {
		cfg.CleanupInterval = cfg.HoldTTL / 2
		if cfg.CleanupInterval < time.Second {
			cfg.CleanupInterval = time.Second
		}
	}
	return cfg
}

// PriceForTier returns the configured price for a tier, or zero when the tier
// is nil or unknown.
func (c Config) PriceForTier(tier *string) int {
	if tier == nil || *tier == "" {
		return 0
	}
	return c.TierPrices[*tier]
}

// DBEnabled reports whether a durable MySQL store should be opened.
func (c Config) DBEnabled() bool { return c.DBHost != "" && c.DBName != "" }

// parseTierPrices accepts either a JSON object ({"VIP":1680}) or a
// comma-separated list of key=value pairs (VIP=1680,A=1280).  Malformed input
// falls back to the default table.
func parseTierPrices(raw string) map[string]int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultTierPrices
	}
	out := map[string]int{}
	if strings.HasPrefix(raw, "{") {
		if err := json.Unmarshal([]byte(raw), &out); err != nil || len(out) == 0 {
			return defaultTierPrices
		}
		return out
	}
	for _, part := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			continue
		}
		out[strings.TrimSpace(key)] = n
	}
	if len(out) == 0 {
		return defaultTierPrices
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envSeconds(key string, def int) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(def) * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return time.Duration(def) * time.Second
	}
	return time.Duration(n) * time.Second
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}
