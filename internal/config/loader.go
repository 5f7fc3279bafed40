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

// LookupFunc resolves an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Load reads configuration from the process environment, applies defaults
// and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom is Load with an explicit variable source. Every unparsable
// variable is reported, not just the first.
func LoadFrom(lookup LookupFunc) (*Config, error) {
	cfg := &Config{}

	d := decoder{lookup: lookup}
	d.decode(reflect.ValueOf(cfg).Elem())
	if err := errors.Join(d.errs...); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// decoder fills struct fields tagged `env:"NAME"`. Supported tags:
//
//	env      primary variable name
//	envAlt   fallback variable name
//	default  value used when neither variable is set or both are empty
//	required "true" to fail when no value is found
type decoder struct {
	lookup LookupFunc
	errs   []error
}

func (d *decoder) decode(v reflect.Value) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			d.decode(fv)
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}
		raw, ok := d.value(name, field.Tag.Get("envAlt"))
		if !ok {
			if field.Tag.Get("required") == "true" {
				d.errs = append(d.errs, fmt.Errorf("required environment variable %s is not set", name))
				continue
			}
			raw = field.Tag.Get("default")
		}
		if raw == "" {
			continue
		}

		if err := parseInto(fv, raw); err != nil {
			d.errs = append(d.errs, fmt.Errorf("invalid value for %s=%q: %w", name, raw, err))
		}
	}
}

// value returns the first non-empty of name and alt.
func (d *decoder) value(name, alt string) (string, bool) {
	for _, key := range []string{name, alt} {
		if key == "" {
			continue
		}
		if v, ok := d.lookup(key); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

var durationType = reflect.TypeOf(time.Duration(0))

// parseInto converts raw to fv's type and stores it.
func parseInto(fv reflect.Value, raw string) error {
	if fv.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		fv.SetInt(int64(d))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		fv.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		fv.SetBool(b)
	case reflect.Slice:
		if fv.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", fv.Type().Elem())
		}
		fv.Set(reflect.ValueOf(splitList(raw)))
	default:
		return fmt.Errorf("unsupported field type: %s", fv.Type())
	}
	return nil
}

// splitList splits a comma-separated list, dropping blank items.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// problems collects validation failures.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

// Validate checks the loaded values and reports every failure at once.
func (c *Config) Validate() error {
	var p problems

	switch strings.ToLower(c.Store.Driver) {
	case StorePostgres:
		if c.Database.URL == "" {
			p.addf("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
		if c.Database.MaxConns <= 0 {
			p.addf("DB_MAX_CONNS must be positive")
		}
		if c.Database.MinConns < 0 {
			p.addf("DB_MIN_CONNS must be non-negative")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			p.addf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Database.MaxConns, c.Database.MinConns)
		}
	case StoreMemory:
	default:
		p.addf("STORE_DRIVER (%q) must be one of: postgres, memory", c.Store.Driver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		p.addf("SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		p.addf("SERVER_READ_TIMEOUT, SERVER_WRITE_TIMEOUT and SERVER_IDLE_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		p.addf("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout < 0 {
		p.addf("SERVER_REQUEST_TIMEOUT must be non-negative")
	}

	if c.Upload.MaxFileSize <= 0 {
		p.addf("UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxConcurrent <= 0 {
		p.addf("UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.Upload.MaxWaitTime <= 0 {
		p.addf("UPLOAD_MAX_WAIT_TIME must be positive")
	}

	if c.Rate.Enabled {
		if c.Rate.RequestsPerMinute <= 0 {
			p.addf("RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
		}
		if c.Rate.UploadLimit <= 0 {
			p.addf("RATE_LIMIT_UPLOAD must be positive when rate limiting is enabled")
		}
	}

	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		p.addf("REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one owner:key pair or disable auth")
	}
	if _, err := c.Security.KeyOwners(); err != nil {
		p.addf("%v", err)
	}
	if !c.Security.RequireAPIKey && strings.TrimSpace(c.Security.DefaultOwner) == "" {
		p.addf("DEFAULT_OWNER must be set when REQUIRE_API_KEY is false")
	}

	if c.Audit.Retention < 0 {
		p.addf("AUDIT_RETENTION must not be negative")
	}
	if c.Audit.Retention > 0 && c.Audit.PruneInterval <= 0 {
		p.addf("AUDIT_PRUNE_INTERVAL must be positive when AUDIT_RETENTION is set")
	}

	if len(c.Display.Currency) != 3 {
		p.addf("DISPLAY_CURRENCY (%q) must be a three-letter ISO 4217 code", c.Display.Currency)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		p.addf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		p.addf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)
	}

	if len(p) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(p, "\n  - "))
	}
	return nil
}

// String summarizes the config for logging. The database URL and API keys
// are never printed.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Server: %s, Store: %s, Database: [MASKED] (max %d conns), "+
		"Upload: {MaxFileSize: %d, MaxConcurrent: %d, MaxWaitTime: %s}, "+
		"Rate: {Enabled: %t, RequestsPerMinute: %d}, "+
		"Security: {RequireAPIKey: %t, APIKeys: %d [MASKED], DefaultOwner: %q}, "+
		"Audit: {Retention: %s}, Logging: {Level: %q, Format: %q}}",
		c.Server.Addr(), c.Store.Driver, c.Database.MaxConns,
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent, c.Upload.MaxWaitTime,
		c.Rate.Enabled, c.Rate.RequestsPerMinute,
		c.Security.RequireAPIKey, len(c.Security.APIKeys), c.Security.DefaultOwner,
		c.Audit.Retention, c.Logging.Level, c.Logging.Format)
}
