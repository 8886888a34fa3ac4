// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Store    StoreConfig
	Session  SessionConfig
	Database DatabaseConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// StorageConfig holds settings for imported spreadsheet files.
type StorageConfig struct {
	// DataDir holds one directory per session with its backing file (default: ./data)
	DataDir string `env:"STORAGE_DATA_DIR" default:"./data"`

	// MaxFileSize is the maximum accepted import size in bytes (default: 100MB)
	MaxFileSize int64 `env:"STORAGE_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrentImports is the number of imports decoded in parallel (default: 4)
	MaxConcurrentImports int `env:"STORAGE_MAX_CONCURRENT_IMPORTS" default:"4"`

	// ImportWaitTime is how long an import waits for a free slot (default: 30s)
	ImportWaitTime time.Duration `env:"STORAGE_IMPORT_WAIT_TIME" default:"30s"`

	// LockTimeout bounds the wait for the backing file lock (default: 5s)
	LockTimeout time.Duration `env:"STORAGE_LOCK_TIMEOUT" default:"5s"`
}

// StoreConfig holds record store settings.
type StoreConfig struct {
	// KeyColumn is the unique key column of imported spreadsheets (default: CODE LOCAL)
	KeyColumn string `env:"STORE_KEY_COLUMN" default:"CODE LOCAL"`
}

// SessionConfig holds editing session settings.
type SessionConfig struct {
	// IndexPath is the bbolt file recording live sessions (default: ./data/sessions.db)
	IndexPath string `env:"SESSION_INDEX_PATH" default:"./data/sessions.db"`

	// CookieName names the session cookie (default: sheetedit_session)
	CookieName string `env:"SESSION_COOKIE_NAME" default:"sheetedit_session"`

	// CookieSecure sets the Secure flag on the session cookie (default: false)
	CookieSecure bool `env:"SESSION_COOKIE_SECURE" default:"false"`

	// CookieMaxAge is the session cookie lifetime (default: 720h)
	CookieMaxAge time.Duration `env:"SESSION_COOKIE_MAX_AGE" default:"720h"`
}

// DatabaseConfig holds the optional import history database settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty disables import history.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 5)
	MaxConns int `env:"DB_MAX_CONNS" default:"5"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether import history is configured.
func (c *DatabaseConfig) Enabled() bool { return c.URL != "" }

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// ImportLimit is requests per minute for the import endpoint (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects /api routes with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
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
	return c.Host + ":" + strconv.Itoa(c.Port)
}
