package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	Timezone           string
	DraftTTL           time.Duration
	DraftLockTTL       time.Duration
	CatalogCacheTTL    time.Duration
	SettingsCacheTTL   time.Duration
	ReportCacheTTL     time.Duration
	IdempotencyTTL     time.Duration
	IdempotencyPending time.Duration
	RateLimitInvoices  string
	InvoiceStartNumber int64
	DefaultPageLimit   int
	MaxPageLimit       int
	MigrateOnStart     bool
	WorkerConcurrency  int
	WorkerMetricsAddr  string
	Obs                Observability
}

// Observability groups the OBS_* settings.
type Observability struct {
	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	MetricsEnabled   bool
	TracingEnabled   bool
	TracingExporter  string
	OTLPEndpoint     string
	SamplingRatio    float64
	HTTPBucketsMs    string
}

// Load reads configuration from environment variables and optional .env files.
// Malformed values are reported together rather than replaced by defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	e := &envReader{k: k}

	cfg := &Config{
		AppEnv:             e.str("APP_ENV", "development"),
		Port:               e.str("PORT", "8080"),
		DatabaseURL:        e.str("DATABASE_URL", ""),
		RedisURL:           e.str("REDIS_URL", ""),
		CORSAllowedOrigins: e.list("CORS_ALLOWED_ORIGINS"),
		Timezone:           e.str("APP_TIMEZONE", "America/Bogota"),
		DraftTTL:           e.duration("DRAFT_TTL", 12*time.Hour),
		DraftLockTTL:       e.duration("DRAFT_LOCK_TTL", 5*time.Second),
		CatalogCacheTTL:    e.duration("CATALOG_CACHE_TTL", 5*time.Minute),
		SettingsCacheTTL:   e.duration("SETTINGS_CACHE_TTL", time.Minute),
		ReportCacheTTL:     e.duration("REPORT_CACHE_TTL", 10*time.Minute),
		IdempotencyTTL:     e.duration("IDEMPOTENCY_TTL", 24*time.Hour),
		IdempotencyPending: e.duration("IDEMPOTENCY_PENDING_TTL", 30*time.Second),
		RateLimitInvoices:  e.str("RATE_LIMIT_INVOICES", "60-M"),
		InvoiceStartNumber: int64(e.integer("INVOICE_START_NUMBER", 10000)),
		DefaultPageLimit:   e.integer("PAGINATION_DEFAULT_LIMIT", 20),
		MaxPageLimit:       e.integer("PAGINATION_MAX_LIMIT", 100),
		MigrateOnStart:     e.boolean("MIGRATE_ON_START", true),
		WorkerConcurrency:  e.integer("WORKER_CONCURRENCY", 5),
		WorkerMetricsAddr:  e.str("WORKER_METRICS_ADDR", ""),
		Obs: Observability{
			LogFormat:        e.str("OBS_LOG_FORMAT", "json"),
			LogLevel:         e.str("OBS_LOG_LEVEL", "info"),
			MetricsNamespace: e.str("OBS_METRICS_NAMESPACE", "lavado"),
			MetricsEnabled:   e.boolean("OBS_ENABLE_PROMETHEUS", true),
			TracingEnabled:   e.boolean("OBS_ENABLE_TRACING", false),
			TracingExporter:  e.str("OBS_TRACING_EXPORTER", "otlp"),
			OTLPEndpoint:     e.str("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio:    e.float("OBS_TRACING_SAMPLING_RATIO", 1),
			HTTPBucketsMs:    e.str("OBS_HTTP_BUCKETS_MS", ""),
		},
	}

	if cfg.DatabaseURL == "" {
		e.fail("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		e.fail("REDIS_URL is required")
	}
	if _, err := cfg.Location(); err != nil {
		e.fail("APP_TIMEZONE: %v", err)
	}
	if cfg.InvoiceStartNumber <= 0 {
		e.fail("INVOICE_START_NUMBER must be positive")
	}
	if cfg.DefaultPageLimit <= 0 || cfg.MaxPageLimit < cfg.DefaultPageLimit {
		e.fail("PAGINATION_MAX_LIMIT must be at least PAGINATION_DEFAULT_LIMIT (> 0)")
	}
	if err := errors.Join(e.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location resolves APP_TIMEZONE. Report days and promotion windows use it.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// envReader reads trimmed koanf values, falling back to a default when the
// variable is unset and recording an error when it is set but unparsable.
type envReader struct {
	k    *koanf.Koanf
	errs []error
}

func (e *envReader) fail(format string, args ...any) {
	e.errs = append(e.errs, fmt.Errorf(format, args...))
}

func (e *envReader) raw(key string) string {
	return strings.TrimSpace(e.k.String(key))
}

func (e *envReader) str(key, fallback string) string {
	if v := e.raw(key); v != "" {
		return v
	}
	return fallback
}

func (e *envReader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(e.raw(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (e *envReader) duration(key string, fallback time.Duration) time.Duration {
	v := e.raw(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		e.fail("%s: invalid duration %q", key, v)
		return fallback
	}
	return d
}

func (e *envReader) integer(key string, fallback int) int {
	v := e.raw(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail("%s: invalid integer %q", key, v)
		return fallback
	}
	return n
}

func (e *envReader) float(key string, fallback float64) float64 {
	v := e.raw(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail("%s: invalid number %q", key, v)
		return fallback
	}
	return f
}

func (e *envReader) boolean(key string, fallback bool) bool {
	switch v := strings.ToLower(e.raw(key)); v {
	case "":
		return fallback
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		e.fail("%s: invalid boolean %q", key, v)
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests runs Load with the given variables set, restoring the previous
// environment afterwards. An empty value unsets the variable.
func LoadForTests(vars map[string]string) (*Config, error) {
	type saved struct {
		value string
		set   bool
	}
	previous := make(map[string]saved, len(vars))
	for key, value := range vars {
		old, ok := os.LookupEnv(key)
		previous[key] = saved{old, ok}
		if err := setEnv(key, value, value != ""); err != nil {
			return nil, err
		}
	}
	defer func() {
		for key, p := range previous {
			_ = setEnv(key, p.value, p.set)
		}
	}()
	return Load()
}

func setEnv(key, value string, set bool) error {
	if !set {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}
