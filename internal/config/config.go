// Package config provides centralized configuration management for the console.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Catalog  CatalogConfig
	Console  ConsoleConfig
	Cache    CacheConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// CatalogConfig points the console at the remote catalog API.
type CatalogConfig struct {
	// BaseURL is the API root, without a trailing slash
	BaseURL string `env:"CATALOG_API_URL" envAlt:"API_BASE_URL" default:"https://api.escuelajs.co/api/v1"`

	// Timeout bounds a single API request (default: 10s)
	Timeout time.Duration `env:"CATALOG_API_TIMEOUT" default:"10s"`

	// MaxConcurrent caps API requests in flight across sessions (default: 16)
	MaxConcurrent int `env:"CATALOG_API_MAX_CONCURRENT" default:"16"`

	// MaxWait is how long a request waits for a free slot (default: 5s)
	MaxWait time.Duration `env:"CATALOG_API_MAX_WAIT" default:"5s"`
}

// ConsoleConfig holds per-session view settings.
type ConsoleConfig struct {
	// PageSize is the page size of a new session (default: 10)
	PageSize int `env:"CONSOLE_PAGE_SIZE" default:"10"`

	// PageSizes are the sizes offered in the page size picker
	PageSizes []int `env:"CONSOLE_PAGE_SIZES" default:"5,10,20,25,50"`

	// MaxPageSize caps any requested page size (default: 100)
	MaxPageSize int `env:"CONSOLE_MAX_PAGE_SIZE" default:"100"`

	// SessionTTL is how long an idle session is kept (default: 30m)
	SessionTTL time.Duration `env:"CONSOLE_SESSION_TTL" default:"30m"`

	// SweepInterval is how often expired sessions are dropped (default: 1m)
	SweepInterval time.Duration `env:"CONSOLE_SESSION_SWEEP_INTERVAL" default:"1m"`

	// CookieSecure marks the session cookie Secure; enable behind HTTPS
	CookieSecure bool `env:"CONSOLE_COOKIE_SECURE" default:"false"`
}

// CacheConfig holds category cache settings.
type CacheConfig struct {
	// RedisURL enables the shared Redis cache when set (redis://host:port/db).
	// Empty means an in-process cache.
	RedisURL string `env:"CATEGORY_CACHE_REDIS_URL" envAlt:"REDIS_URL"`

	// TTL is how long the category list is cached (default: 10m)
	TTL time.Duration `env:"CATEGORY_CACHE_TTL" default:"10m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// MutationLimit is requests per minute for save and create (default: 30)
	MutationLimit int `env:"RATE_LIMIT_MUTATIONS" default:"30"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// CORSOrigins are the origins allowed to call /api (default: none)
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS"`

	// RequireAPIKey guards the /api routes with X-API-Key (default: false)
	RequireAPIKey bool `env:"API_REQUIRE_KEY" default:"false"`

	// APIKeys are the accepted X-API-Key values
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ClampPageSize returns size when it is usable, otherwise the default.
func (c *ConsoleConfig) ClampPageSize(size int) int {
	if size <= 0 || size > c.MaxPageSize {
		return c.PageSize
	}
	return size
}
