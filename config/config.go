package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Crawler   CrawlerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Webhook   WebhookConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 3001, PORT is honored
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Chromium process and its sessions.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the upstream proxy for all browser traffic.
	Proxy string

	// UserDataDir is purged before launch and removed on shutdown.
	UserDataDir string // default: $TMPDIR/mirror-chromium

	ViewportWidth  int // default: 1920
	ViewportHeight int // default: 1080

	// BlockedResourceTypes lists resource types failed by the request hijacker.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string

	// BlockAds fails requests to known ad and analytics hosts.
	BlockAds bool // default: true

	// LocatorTimeout bounds each DOM lookup during extraction.
	LocatorTimeout time.Duration // default: 2s
}

// CrawlerConfig controls the crawl session orchestrator.
type CrawlerConfig struct {
	// DefaultTimeout applies when a request carries none.
	DefaultTimeout time.Duration // default: 30s

	// MaxTimeout caps the client-supplied timeout.
	MaxTimeout time.Duration // default: 120s

	// MaxRetries is the number of extra navigation attempts.
	MaxRetries int // default: 1

	// MaxSettleDelay caps the per-platform settle delay after DOM ready.
	MaxSettleDelay time.Duration // default: 3s

	// HintTimeout bounds the best-effort wait for a strategy's hint selector.
	HintTimeout time.Duration // default: 5s

	// ResolveGrace is added to the hard guard of 2*timeout.
	ResolveGrace time.Duration // default: 2s

	// BatchConcurrency limits parallel crawls within one batch.
	BatchConcurrency int // default: 10
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key or client IP.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size.
	Burst int // default: 10
}

// CacheConfig controls the /crawl response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached results held in memory.
	MaxEntries int // default: 1000

	// TTL is how long any entry is kept, whatever max_age a request asks for.
	TTL time.Duration // default: 1h

	// RedisURL, when set, stores results in Redis instead of process memory
	// so several instances share one cache. e.g. "redis://localhost:6379/0"
	RedisURL string

	// KeyPrefix namespaces Redis keys.
	KeyPrefix string // default: "mirror:crawl:"
}

// WebhookConfig controls batch completion delivery.
type WebhookConfig struct {
	Timeout    time.Duration // default: 10s
	MaxRetries int           // default: 3
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"

	// File, when set, also receives logs through a rotating writer.
	File       string
	MaxSizeMB  int // default: 100
	MaxBackups int // default: 3
	MaxAgeDays int // default: 28
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool // default: true
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("MIRROR_HOST", "0.0.0.0"),
			Port: envIntOr("MIRROR_PORT", envIntOr("PORT", 3001)),
			Mode: envOr("MIRROR_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:             envBoolOr("MIRROR_HEADLESS", true),
			NoSandbox:            envBoolOr("MIRROR_NO_SANDBOX", false),
			BrowserBin:           os.Getenv("MIRROR_BROWSER_BIN"),
			Proxy:                os.Getenv("MIRROR_PROXY"),
			UserDataDir:          envOr("MIRROR_USER_DATA_DIR", filepath.Join(os.TempDir(), "mirror-chromium")),
			ViewportWidth:        envIntOr("MIRROR_VIEWPORT_WIDTH", 1920),
			ViewportHeight:       envIntOr("MIRROR_VIEWPORT_HEIGHT", 1080),
			BlockedResourceTypes: envSliceOr("MIRROR_BLOCKED_RESOURCES", []string{"Font", "Media"}),
			BlockAds:             envBoolOr("MIRROR_BLOCK_ADS", true),
			LocatorTimeout:       envDurationOr("MIRROR_LOCATOR_TIMEOUT", 2*time.Second),
		},
		Crawler: CrawlerConfig{
			DefaultTimeout:   envDurationOr("MIRROR_DEFAULT_TIMEOUT", 30*time.Second),
			MaxTimeout:       envDurationOr("MIRROR_MAX_TIMEOUT", 120*time.Second),
			MaxRetries:       envIntOr("MIRROR_NAV_RETRIES", 1),
			MaxSettleDelay:   envDurationOr("MIRROR_SETTLE_DELAY", 3*time.Second),
			HintTimeout:      envDurationOr("MIRROR_HINT_TIMEOUT", 5*time.Second),
			ResolveGrace:     envDurationOr("MIRROR_RESOLVE_GRACE", 2*time.Second),
			BatchConcurrency: envIntOr("MIRROR_BATCH_CONCURRENCY", 10),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("MIRROR_AUTH_ENABLED", false),
			APIKeys: envSliceOr("MIRROR_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("MIRROR_RATE_RPS", 5.0),
			Burst:             envIntOr("MIRROR_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("MIRROR_CACHE_MAX_ENTRIES", 1000),
			TTL:        envDurationOr("MIRROR_CACHE_TTL", time.Hour),
			RedisURL:   os.Getenv("MIRROR_CACHE_REDIS_URL"),
			KeyPrefix:  envOr("MIRROR_CACHE_KEY_PREFIX", "mirror:crawl:"),
		},
		Webhook: WebhookConfig{
			Timeout:    envDurationOr("MIRROR_WEBHOOK_TIMEOUT", 10*time.Second),
			MaxRetries: envIntOr("MIRROR_WEBHOOK_RETRIES", 3),
		},
		Log: LogConfig{
			Level:      envOr("MIRROR_LOG_LEVEL", "info"),
			Format:     envOr("MIRROR_LOG_FORMAT", "json"),
			File:       os.Getenv("MIRROR_LOG_FILE"),
			MaxSizeMB:  envIntOr("MIRROR_LOG_MAX_SIZE_MB", 100),
			MaxBackups: envIntOr("MIRROR_LOG_MAX_BACKUPS", 3),
			MaxAgeDays: envIntOr("MIRROR_LOG_MAX_AGE_DAYS", 28),
		},
		Metrics: MetricsConfig{
			Enabled: envBoolOr("MIRROR_METRICS_ENABLED", true),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
