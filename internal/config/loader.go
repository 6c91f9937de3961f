package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables, applies defaults
// for unset values and validates the result. Every missing or malformed
// variable is reported in the one returned error.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// LoadInto populates a single config section, such as a *DatabaseConfig,
// without validating the rest of the configuration. Tools that need one
// section use it so unrelated required variables need not be set.
func LoadInto(section any) error {
	v := reflect.ValueOf(section)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config load: want pointer to struct, got %T", section)
	}
	if err := loadStruct(v.Elem()); err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	return nil
}

// envField is the parsed form of a field's struct tags.
type envField struct {
	name       string // env
	alt        string // envAlt
	defaultVal string // default
	required   bool   // required:"true"
}

func parseTags(f reflect.StructField) (envField, bool) {
	name := f.Tag.Get("env")
	if name == "" {
		return envField{}, false
	}
	return envField{
		name:       name,
		alt:        f.Tag.Get("envAlt"),
		defaultVal: f.Tag.Get("default"),
		required:   f.Tag.Get("required") == "true",
	}, true
}

// value returns the raw setting: the primary variable, then the alternate,
// then the default. A blank variable counts as unset.
func (e envField) value() (string, error) {
	for _, name := range []string{e.name, e.alt} {
		if name == "" {
			continue
		}
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, nil
		}
	}
	if e.required {
		return "", fmt.Errorf("required environment variable %s is not set", e.name)
	}
	return e.defaultVal, nil
}

var timeType = reflect.TypeOf(time.Time{})

// loadStruct populates v from the environment, descending into nested
// section structs. It keeps going after a bad field so every problem is
// reported together.
func loadStruct(v reflect.Value) error {
	var errs []error
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != timeType {
			if err := loadStruct(fv); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		tags, ok := parseTags(field)
		if !ok {
			continue
		}
		raw, err := tags.value()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if raw == "" {
			continue
		}
		if err := setField(fv, raw); err != nil {
			errs = append(errs, fmt.Errorf("invalid value for %s=%q: %w", tags.name, raw, err))
		}
	}

	return errors.Join(errs...)
}

// setField parses value into the field's type.
func setField(field reflect.Value, value string) error {
	switch p := field.Addr().Interface().(type) {
	case *string:
		*p = value
	case *time.Duration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		*p = d
	case *int:
		i, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		*p = i
	case *int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		*p = i
	case *bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		*p = b
	case *[]string:
		// Comma-separated; blank items are dropped.
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*p = items
	default:
		return fmt.Errorf("unsupported field type: %s", field.Type())
	}
	return nil
}

// problems collects validation failures across sections.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(p, "\n  - "))
}

// Validate checks every section and returns one error listing all failures.
func (c *Config) Validate() error {
	var p problems
	c.Server.validate(&p)
	c.Database.validate(&p)
	c.Import.validate(&p)
	if c.Bulk.MaxAssets <= 0 {
		p.addf("BULK_MAX_ASSETS must be positive")
	}
	if c.History.Limit <= 0 {
		p.addf("HISTORY_LIMIT must be positive")
	}
	c.Auth.validate(&p)
	c.Rate.validate(&p)
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		p.addf("METRICS_PATH (%q) must start with /", c.Metrics.Path)
	}
	c.Logging.validate(&p)
	return p.err()
}

func (s ServerConfig) validate(p *problems) {
	if s.Port <= 0 || s.Port > 65535 {
		p.addf("SERVER_PORT (%d) must be 1-65535", s.Port)
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.IdleTimeout < 0 || s.RequestTimeout < 0 {
		p.addf("SERVER_*_TIMEOUT values must be non-negative")
	}
	if s.ShutdownTimeout <= 0 {
		p.addf("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
}

func (d DatabaseConfig) validate(p *problems) {
	if d.URL == "" {
		p.addf("DATABASE_URL is required")
	}
	if d.MaxConns <= 0 {
		p.addf("DB_MAX_CONNS must be positive")
	}
	if d.MinConns < 0 {
		p.addf("DB_MIN_CONNS must be non-negative")
	}
	if d.MaxConns < d.MinConns {
		p.addf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", d.MaxConns, d.MinConns)
	}
}

func (i ImportConfig) validate(p *problems) {
	if i.MaxFileSize <= 0 {
		p.addf("IMPORT_MAX_FILE_SIZE must be positive")
	}
	if i.MaxRows <= 0 {
		p.addf("IMPORT_MAX_ROWS must be positive")
	}
	if i.MaxConcurrent <= 0 {
		p.addf("IMPORT_MAX_CONCURRENT must be positive")
	}
	if i.MaxWaitTime <= 0 {
		p.addf("IMPORT_MAX_WAIT_TIME must be positive")
	}
}

func (a AuthConfig) validate(p *problems) {
	if len(a.Secret) < minSecretLength {
		p.addf("JWT_SECRET must be at least %d characters", minSecretLength)
	}
	if a.TokenTTL <= 0 {
		p.addf("JWT_TOKEN_TTL must be positive")
	}
}

func (r RateLimitConfig) validate(p *problems) {
	if !r.Enabled {
		return
	}
	if r.RequestsPerMinute <= 0 {
		p.addf("RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if r.ImportLimit <= 0 {
		p.addf("RATE_LIMIT_IMPORT must be positive when rate limiting is enabled")
	}
}

func (l LoggingConfig) validate(p *problems) {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		p.addf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		p.addf("LOG_FORMAT (%q) must be one of: text, json", l.Format)
	}
}

// minSecretLength is the shortest JWT_SECRET accepted.
const minSecretLength = 16

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs and the signing secret are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Database: {URL: [MASKED], MaxConns: %d, MinConns: %d, AutoMigrate: %v}, ",
		c.Database.MaxConns, c.Database.MinConns, c.Database.AutoMigrate)
	fmt.Fprintf(&b, "Import: {MaxFileSize: %d, MaxRows: %d, MaxConcurrent: %d}, ",
		c.Import.MaxFileSize, c.Import.MaxRows, c.Import.MaxConcurrent)
	fmt.Fprintf(&b, "Bulk: {MaxAssets: %d}, History: {Limit: %d}, ", c.Bulk.MaxAssets, c.History.Limit)
	fmt.Fprintf(&b, "Auth: {Secret: [MASKED], Issuer: %q, TokenTTL: %s}, ", c.Auth.Issuer, c.Auth.TokenTTL)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d, ImportLimit: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.ImportLimit)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
