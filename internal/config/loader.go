package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load builds the sheetedit configuration from the process environment.
// Every field of Config names its variable in an `env` tag (SERVER_PORT,
// STORAGE_DATA_DIR, STORE_KEY_COLUMN, SESSION_COOKIE_NAME and so on) and
// its fallback in a `default` tag. A .env file, if any, must already have
// been applied to the environment by the caller.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := fill(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

// fill walks the setting groups of Config (Server, Storage, Store, Session
// and the rest) and assigns each tagged field from its variable.
func fill(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		dst := v.Field(i)
		if !dst.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != timeType {
			if err := fill(dst); err != nil {
				return err
			}
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}

		raw, err := lookup(field.Tag)
		if err != nil {
			return err
		}
		if raw == "" {
			continue
		}
		if err := assign(dst, raw); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", name, raw, err)
		}
	}

	return nil
}

// lookup returns the raw text for one setting. The `envAlt` variable is
// read when the primary is unset, so DB_URL works in place of
// DATABASE_URL. An unset `required` setting is an error; any other unset
// setting takes its `default`, which may be empty.
func lookup(tag reflect.StructTag) (string, error) {
	name := tag.Get("env")
	if v := os.Getenv(name); v != "" {
		return v, nil
	}
	if alt := tag.Get("envAlt"); alt != "" {
		if v := os.Getenv(alt); v != "" {
			return v, nil
		}
	}
	if tag.Get("required") == "true" {
		return "", fmt.Errorf("required environment variable %s is not set", name)
	}
	return tag.Get("default"), nil
}

// assign parses raw into dst. Timeouts such as STORAGE_LOCK_TIMEOUT take Go
// durations ("5s", "720h"); list settings such as TRUSTED_PROXIES and
// API_KEYS are comma separated, with blanks dropped.
func assign(dst reflect.Value, raw string) error {
	switch {
	case dst.Type() == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		dst.SetInt(int64(d))

	case dst.Kind() == reflect.String:
		dst.SetString(raw)

	case dst.Kind() == reflect.Int || dst.Kind() == reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		dst.SetInt(n)

	case dst.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		dst.SetBool(b)

	case dst.Kind() == reflect.Slice && dst.Type().Elem().Kind() == reflect.String:
		dst.Set(reflect.ValueOf(splitList(raw)))

	default:
		return fmt.Errorf("unsupported field type: %s", dst.Type())
	}

	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every invalid setting at once, one per line, so a
// misconfigured server or sheetctl run can be fixed in a single pass.
func (c *Config) Validate() error {
	var errs []string
	errs = append(errs, c.Server.problems()...)
	errs = append(errs, c.Storage.problems()...)
	errs = append(errs, c.Store.problems()...)
	errs = append(errs, c.Session.problems()...)
	errs = append(errs, c.Database.problems()...)
	errs = append(errs, c.Rate.problems()...)
	errs = append(errs, c.Security.problems()...)
	errs = append(errs, c.Logging.problems()...)

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (s *ServerConfig) problems() []string {
	var errs []string
	if s.Port <= 0 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", s.Port))
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if s.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	return errs
}

// problems checks the settings that bound imports and the backing file
// lock. Zero would mean no import could ever be accepted.
func (s *StorageConfig) problems() []string {
	var errs []string
	if s.DataDir == "" {
		errs = append(errs, "STORAGE_DATA_DIR is required")
	}
	if s.MaxFileSize <= 0 {
		errs = append(errs, "STORAGE_MAX_FILE_SIZE must be positive")
	}
	if s.MaxConcurrentImports <= 0 {
		errs = append(errs, "STORAGE_MAX_CONCURRENT_IMPORTS must be positive")
	}
	if s.ImportWaitTime <= 0 {
		errs = append(errs, "STORAGE_IMPORT_WAIT_TIME must be positive")
	}
	if s.LockTimeout <= 0 {
		errs = append(errs, "STORAGE_LOCK_TIMEOUT must be positive")
	}
	return errs
}

func (s *StoreConfig) problems() []string {
	if strings.TrimSpace(s.KeyColumn) == "" {
		return []string{"STORE_KEY_COLUMN must not be blank"}
	}
	return nil
}

func (s *SessionConfig) problems() []string {
	var errs []string
	if s.CookieName == "" {
		errs = append(errs, "SESSION_COOKIE_NAME is required")
	}
	if s.CookieMaxAge <= 0 {
		errs = append(errs, "SESSION_COOKIE_MAX_AGE must be positive")
	}
	return errs
}

// problems checks the pool sizes only when import history is enabled; an
// unset DATABASE_URL is valid.
func (d *DatabaseConfig) problems() []string {
	if !d.Enabled() {
		return nil
	}
	var errs []string
	if d.MaxConns < d.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", d.MaxConns, d.MinConns))
	}
	if d.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if d.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	return errs
}

func (r *RateLimitConfig) problems() []string {
	if !r.Enabled {
		return nil
	}
	var errs []string
	if r.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if r.ImportLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_IMPORT must be positive when rate limiting is enabled")
	}
	return errs
}

func (s *SecurityConfig) problems() []string {
	if s.RequireAPIKey && len(s.APIKeys) == 0 {
		return []string{"REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth"}
	}
	return nil
}

func (l *LoggingConfig) problems() []string {
	var errs []string
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", l.Level))
	}
	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", l.Format))
	}
	return errs
}

// String describes the loaded settings for the startup log line. The
// database URL and API keys are never printed; only whether history is
// configured and how many keys exist.
func (c *Config) String() string {
	dbURL := "[UNSET]"
	if c.Database.Enabled() {
		dbURL = "[MASKED]"
	}

	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Storage: {DataDir: %q, MaxFileSize: %d, MaxConcurrentImports: %d}, ",
		c.Storage.DataDir, c.Storage.MaxFileSize, c.Storage.MaxConcurrentImports)
	fmt.Fprintf(&b, "Store: {KeyColumn: %q}, ", c.Store.KeyColumn)
	fmt.Fprintf(&b, "Session: {IndexPath: %q, CookieName: %q}, ", c.Session.IndexPath, c.Session.CookieName)
	fmt.Fprintf(&b, "Database: {URL: %s, MaxConns: %d}, ", dbURL, c.Database.MaxConns)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d, ImportLimit: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.ImportLimit)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: %d}, ", c.Security.RequireAPIKey, len(c.Security.APIKeys))
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
