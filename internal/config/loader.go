package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileEnv names the optional YAML file with fallback values. The file holds
// flat ENV_NAME: value pairs; the environment always wins over it.
const FileEnv = "CONFIG_FILE"

// Load reads configuration from environment variables, falling back to the
// file named by CONFIG_FILE and then to defaults, and validates the result.
func Load() (*Config, error) {
	fileValues, err := readFile(os.Getenv(FileEnv))
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	cfg := &Config{}
	l := loader{file: fileValues}
	if err := l.loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// readFile parses a YAML file of scalar values keyed by variable name.
func readFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("parse %s: %s must be a scalar", path, k)
		case nil:
			continue
		}
		values[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return values, nil
}

type loader struct {
	file map[string]string
}

func (l loader) lookup(name string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return l.file[name]
}

// loadStruct recursively populates struct fields from the environment.
func (l loader) loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := l.loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary name, then alternate
		value := l.lookup(envName)
		if value == "" && envAlt != "" {
			value = l.lookup(envAlt)
		}

		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	switch c.Database.Driver() {
	case DriverPostgres:
		if c.Database.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
		if c.Database.MinConns < 0 {
			errs = append(errs, "DB_MIN_CONNS must be non-negative")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
				c.Database.MaxConns, c.Database.MinConns))
		}
	case DriverSQLite:
		if c.Database.SQLiteDSN() == "" {
			errs = append(errs, "DATABASE_URL sqlite: URL has no path")
		}
	default:
		errs = append(errs, "DATABASE_URL must start with postgres://, postgresql:// or sqlite:")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Catalog validation
	if c.Catalog.MaxLimit <= 0 {
		errs = append(errs, "CATALOG_MAX_LIMIT must be positive")
	}
	if c.Catalog.DefaultLimit <= 0 || c.Catalog.DefaultLimit > c.Catalog.MaxLimit {
		errs = append(errs, fmt.Sprintf("CATALOG_DEFAULT_LIMIT (%d) must be 1-%d",
			c.Catalog.DefaultLimit, c.Catalog.MaxLimit))
	}

	// Ingest validation
	if c.Ingest.Interval <= 0 {
		errs = append(errs, "INGEST_INTERVAL must be positive")
	}
	if c.Ingest.Timeout < 0 {
		errs = append(errs, "INGEST_TIMEOUT must be non-negative")
	}
	if c.Ingest.GateWait <= 0 {
		errs = append(errs, "INGEST_GATE_WAIT must be positive")
	}
	if c.Ingest.MaxFileSize <= 0 {
		errs = append(errs, "INGEST_MAX_FILE_SIZE must be positive")
	}
	if len([]rune(c.Ingest.Delimiter)) != 1 {
		errs = append(errs, fmt.Sprintf("INGEST_DELIMITER (%q) must be a single character", c.Ingest.Delimiter))
	}

	// Rate limit validation
	if c.Rate.Enabled {
		if c.Rate.RequestsPerMinute <= 0 {
			errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
		}
		if c.Rate.Burst <= 0 {
			errs = append(errs, "RATE_LIMIT_BURST must be positive when rate limiting is enabled")
		}
		if c.Rate.IngestPerMinute <= 0 {
			errs = append(errs, "RATE_LIMIT_INGEST must be positive when rate limiting is enabled")
		}
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Credentials in the database URL and the Redis password are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Database: {Driver: %s, URL: [MASKED], MaxConns: %d}, ",
		c.Database.Driver(), c.Database.MaxConns))
	b.WriteString(fmt.Sprintf("Catalog: {DefaultLimit: %d, MaxLimit: %d}, ",
		c.Catalog.DefaultLimit, c.Catalog.MaxLimit))
	b.WriteString(fmt.Sprintf("Ingest: {Enabled: %v, Interval: %s, Encoding: %q}, ",
		c.Ingest.Enabled, c.Ingest.Interval, c.Ingest.Encoding))
	b.WriteString(fmt.Sprintf("Cache: {Enabled: %v}, ", c.Cache.RedisAddr != ""))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
