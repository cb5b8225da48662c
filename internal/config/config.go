// Package config provides centralized configuration management for the service.
// It loads configuration from environment variables (optionally backed by a
// YAML file) with sensible defaults and validates all settings on startup to
// fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Catalog  CatalogConfig
	Ingest   IngestConfig
	Cache    CacheConfig
	Rate     RateLimitConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8000)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8000"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including the active run (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`

	// TrustedProxies is a comma-separated list of proxy CIDRs or IPs whose
	// X-Real-IP and X-Forwarded-For headers are honored (default: none)
	TrustedProxies string `env:"TRUSTED_PROXIES"`
}

// ProxyList splits TrustedProxies into its non-empty entries.
func (c *ServerConfig) ProxyList() []string {
	return splitList(c.TrustedProxies)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DatabaseConfig holds entity store settings.
type DatabaseConfig struct {
	// URL selects the store: postgres:// or postgresql:// for PostgreSQL,
	// sqlite: for an embedded SQLite file (default: sqlite:catalog.db)
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" default:"sqlite:catalog.db"`

	// MaxConns is the maximum number of pooled PostgreSQL connections (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Store drivers returned by DatabaseConfig.Driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Driver reports which store URL selects, or "" when the scheme is unknown.
func (c *DatabaseConfig) Driver() string {
	switch {
	case strings.HasPrefix(c.URL, "postgres://"), strings.HasPrefix(c.URL, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(c.URL, "sqlite:"):
		return DriverSQLite
	}
	return ""
}

// SQLiteDSN returns the file path of a sqlite: URL. Both "sqlite:path" and
// "sqlite:///path" are accepted; "sqlite:////abs/path" is absolute.
func (c *DatabaseConfig) SQLiteDSN() string {
	dsn := strings.TrimPrefix(c.URL, "sqlite:")
	if rest, ok := strings.CutPrefix(dsn, "//"); ok {
		dsn = strings.TrimPrefix(rest, "/")
	}
	return dsn
}

// CatalogConfig holds read API settings.
type CatalogConfig struct {
	// DefaultLimit is the page size when none is requested (default: 10)
	DefaultLimit int `env:"CATALOG_DEFAULT_LIMIT" default:"10"`

	// MaxLimit is the largest page size a client may request (default: 100)
	MaxLimit int `env:"CATALOG_MAX_LIMIT" default:"100"`
}

// IngestConfig holds catalog ingestion settings.
type IngestConfig struct {
	// Enabled turns the periodic scheduler on (default: true)
	Enabled bool `env:"INGEST_ENABLED" default:"true"`

	// SourceURL is a Google Drive share link to the catalog document
	SourceURL string `env:"GOOGLE_DRIVE_URL" envAlt:"INGEST_SOURCE_URL"`

	// SourceFile is a local catalog document, read in place when SourceURL is unset
	SourceFile string `env:"CSV_FILE_PATH" envAlt:"INGEST_SOURCE_FILE"`

	// StagingDir receives downloads; empty uses the system temp dir
	StagingDir string `env:"INGEST_STAGING_DIR"`

	// Interval is the time between runs (default: 24h)
	Interval time.Duration `env:"INGEST_INTERVAL" default:"24h"`

	// RunOnStart runs once at startup before the first interval (default: true)
	RunOnStart bool `env:"INGEST_RUN_ON_START" default:"true"`

	// Timeout bounds a single run (default: 10m)
	Timeout time.Duration `env:"INGEST_TIMEOUT" default:"10m"`

	// FetchTimeout bounds the download request (default: 2m)
	FetchTimeout time.Duration `env:"INGEST_FETCH_TIMEOUT" default:"2m"`

	// MaxFileSize caps a download in bytes (default: 100MB)
	MaxFileSize int64 `env:"INGEST_MAX_FILE_SIZE" default:"104857600"`

	// GateWait is how long a scheduled run waits for an active run (default: 30s)
	GateWait time.Duration `env:"INGEST_GATE_WAIT" default:"30s"`

	// Encoding is the text encoding of CSV documents (default: utf-8)
	Encoding string `env:"INGEST_ENCODING" default:"utf-8"`

	// Delimiter is the CSV field separator (default: ,)
	Delimiter string `env:"INGEST_DELIMITER" default:","`

	// HistorySize is how many run records are kept in memory (default: 20)
	HistorySize int `env:"INGEST_HISTORY_SIZE" default:"20"`

	// APIKeys is a comma-separated list of keys accepted by POST /ingest/run;
	// empty leaves the trigger open
	APIKeys string `env:"INGEST_API_KEYS"`
}

// KeyList splits APIKeys into its non-empty entries.
func (c *IngestConfig) KeyList() []string {
	return splitList(c.APIKeys)
}

// HasSource reports whether a catalog source is configured.
func (c *IngestConfig) HasSource() bool {
	return c.SourceURL != "" || c.SourceFile != ""
}

// Comma returns the delimiter as a rune.
func (c *IngestConfig) Comma() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

// CacheConfig holds the optional Redis page cache settings.
type CacheConfig struct {
	// RedisAddr enables the page cache when set (host:port)
	RedisAddr string `env:"REDIS_ADDR"`

	// RedisPassword authenticates to Redis
	RedisPassword string `env:"REDIS_PASSWORD"`

	// RedisDB selects the Redis database (default: 0)
	RedisDB int `env:"REDIS_DB" default:"0"`

	// TTL bounds how long a cached page lives (default: 5m)
	TTL time.Duration `env:"CACHE_TTL" default:"5m"`

	// Prefix namespaces cache keys (default: catalog)
	Prefix string `env:"CACHE_PREFIX" default:"catalog"`
}

// RateLimitConfig holds per-client rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the sustained rate per client IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// Burst is how many requests a client may make at once (default: 20)
	Burst int `env:"RATE_LIMIT_BURST" default:"20"`

	// IngestPerMinute limits manual ingestion triggers per client IP (default: 2)
	IngestPerMinute int `env:"RATE_LIMIT_INGEST" default:"2"`
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
