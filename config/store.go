package config

import (
	"fmt"
	"strings"
	"time"
)

// CookieBackendKind selects the implementation of the expiring
// (cookie-like) credential store backend.
type CookieBackendKind string

const (
	// CookieBackendFile keeps the expiring entries in a local jar file.
	CookieBackendFile CookieBackendKind = "file"
	// CookieBackendRedis keeps them in Redis with native TTLs, for setups
	// sharing credentials across processes on the same device.
	CookieBackendRedis CookieBackendKind = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for CookieBackendKind.
func (k *CookieBackendKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "file", "redis":
		*k = CookieBackendKind(v)
		return nil
	default:
		return fmt.Errorf("invalid cookie backend: %q (valid options: file, redis)", v)
	}
}

// RedisConfig contains connection settings for the Redis backend.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// StoreConfig contains credential store configuration.
type StoreConfig struct {
	// Dir is the directory holding the durable store and the cookie jar.
	// Empty means the per-user config directory resolved at wiring time.
	Dir string `env:"DIR" envDefault:""`

	// CookieTTL is the expiry window for the cookie-like backend.
	CookieTTL time.Duration `env:"COOKIE_TTL" envDefault:"168h"`

	// CookieDomain, when set, adds domain-qualified variants to cookie
	// writes and clears (the domain itself plus its registrable domain).
	CookieDomain string `env:"COOKIE_DOMAIN" envDefault:""`

	// CookieBackend selects the expiring backend implementation.
	CookieBackend CookieBackendKind `env:"COOKIE_BACKEND" envDefault:"file"`

	// Redis configuration (used when CookieBackend=redis).
	Redis RedisConfig `envPrefix:"REDIS_"`
}

// Sanitize applies guardrails to store configuration values.
func (s *StoreConfig) Sanitize() {
	if s.CookieTTL <= 0 {
		s.CookieTTL = 168 * time.Hour
	}
	if s.CookieBackend == "" {
		s.CookieBackend = CookieBackendFile
	}
}
