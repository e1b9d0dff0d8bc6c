// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the
// HTTP server, logging, the SQLite store, webhook authentication, the
// ingestion gates (IP allow-list, rate limiting), CORS and observability.
package config

import (
	"errors"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

// Prune strategies accepted by RATE_LIMIT_PRUNE.
const (
	PruneLazy  = "lazy"
	PruneSweep = "sweep"
)

// DefaultAllowedIPs are the Google Apps Script egress ranges used by the
// spreadsheet automation that feeds the webhook.
var DefaultAllowedIPs = []string{
	"64.18.0.0/20",
	"64.233.160.0/19",
	"66.102.0.0/20",
	"66.249.80.0/20",
	"72.14.192.0/18",
	"74.125.0.0/16",
	"108.177.8.0/21",
	"173.194.0.0/16",
	"207.126.144.0/20",
	"209.85.128.0/17",
	"216.58.192.0/19",
	"216.239.32.0/19",
}

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
	AllowAll       bool // ALLOW_ALL_ORIGINS
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// WebhookConfig holds the shared secrets and the IP gate for ingestion.
type WebhookConfig struct {
	Secret      string         // WEBHOOK_SECRET (HMAC key)
	AdminSecret string         // ADMIN_SECRET (X-Admin-Secret for deletes)
	AllowedIPs  []netip.Prefix // ALLOWED_IPS, literals become /32 or /128
	AllowAllIPs bool           // ALLOW_ALL_IPS, local development only
}

// RateLimitConfig configures the per-address sliding window limiter.
type RateLimitConfig struct {
	Max    int           // RATE_LIMIT_MAX
	Window time.Duration // RATE_LIMIT_WINDOW
	Prune  string        // RATE_LIMIT_PRUNE: lazy|sweep
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	ShutdownTimeout   time.Duration // e.g. 10s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBPath string // SQLite path

	// Request bounds
	MaxBodyBytes    int64         // cap on request bodies
	RequestTimeout  time.Duration // deadline for non-stream API requests
	StreamHeartbeat time.Duration // SSE keep-alive comment interval

	Webhook   WebhookConfig
	RateLimit RateLimitConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// Addr returns the listen address for http.Server.
func (c Config) Addr() string { return ":" + c.Port }

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "5000"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// Storage
		DBPath: getenv("DB_PATH", "database.sqlite"),

		// Request bounds
		MaxBodyBytes:    int64(getint("MAX_BODY_BYTES", 64<<10)),
		RequestTimeout:  getdur("REQUEST_TIMEOUT", 10*time.Second),
		StreamHeartbeat: getdur("STREAM_HEARTBEAT", 25*time.Second),

		RateLimit: RateLimitConfig{
			Max:    getint("RATE_LIMIT_MAX", 100),
			Window: getdur("RATE_LIMIT_WINDOW", 15*time.Minute),
			Prune:  strings.ToLower(strings.TrimSpace(getenv("RATE_LIMIT_PRUNE", PruneLazy))),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
			AllowAll:       getbool("ALLOW_ALL_ORIGINS", false),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "realty-dashboard"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	cfg.Webhook = WebhookConfig{
		Secret:      os.Getenv("WEBHOOK_SECRET"),
		AdminSecret: os.Getenv("ADMIN_SECRET"),
		AllowAllIPs: getbool("ALLOW_ALL_IPS", false),
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.MaxBodyBytes <= 0 {
		return cfg, errors.New("MAX_BODY_BYTES must be > 0")
	}
	if cfg.RequestTimeout <= 0 {
		return cfg, errors.New("REQUEST_TIMEOUT must be > 0")
	}
	if cfg.StreamHeartbeat <= 0 {
		return cfg, errors.New("STREAM_HEARTBEAT must be > 0")
	}
	if strings.TrimSpace(cfg.Webhook.Secret) == "" {
		return cfg, errors.New("WEBHOOK_SECRET must not be empty")
	}
	if cfg.RateLimit.Max < 1 {
		return cfg, errors.New("RATE_LIMIT_MAX must be >= 1")
	}
	if cfg.RateLimit.Window <= 0 {
		return cfg, errors.New("RATE_LIMIT_WINDOW must be > 0")
	}
	switch cfg.RateLimit.Prune {
	case PruneLazy, PruneSweep:
	default:
		return cfg, errors.New("RATE_LIMIT_PRUNE must be one of: lazy, sweep")
	}
	if !cfg.Webhook.AllowAllIPs {
		entries := splitCSV(getenv("ALLOWED_IPS", ""))
		if len(entries) == 0 {
			entries = DefaultAllowedIPs
		}
		prefixes, err := ParseAllowedIPs(entries)
		if err != nil {
			return cfg, err
		}
		cfg.Webhook.AllowedIPs = prefixes
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ParseAllowedIPs parses IPv4/IPv6 literals and CIDR prefixes. A literal
// address becomes a single-address prefix. Empty entries are skipped.
func ParseAllowedIPs(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, raw := range entries {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if strings.Contains(s, "/") {
			p, err := netip.ParsePrefix(s)
			if err != nil {
				return nil, errors.New("ALLOWED_IPS: invalid CIDR " + strconv.Quote(s))
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, errors.New("ALLOWED_IPS: invalid IP address " + strconv.Quote(s))
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
