// Package config loads application configuration from environment
// variables with sane defaults, following the layered Config struct
// pattern used across this codebase.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserPoolConfig
	Queue     QueueConfig
	Scraper   ScraperConfig
	Crawler   CrawlerConfig
	Memory    MemoryConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Fetch     FetchConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserPoolConfig controls BrowserPool (spec.md §4.1).
type BrowserPoolConfig struct {
	Headless   bool   // default: true
	NoSandbox  bool   // default: false
	BrowserBin string // override Chromium binary path

	MaxContexts        int           // default: 20
	MinContexts        int           // default: 2
	MaxPagesPerContext int           // default: 10
	PageTimeout        time.Duration // default: 30s
	NavigationTimeout  time.Duration // default: 30s
	AcquireTimeout     time.Duration // default: 30s
	IdleTimeout        time.Duration // default: 60s
	SoftIdle           time.Duration // default: 30s
	MetricsInterval    time.Duration // default: 10s
	RestartThreshold   int64         // default: 1000 pages

	// PagePoolSize is the capacity of the fast-path warm page pool.
	PagePoolSize int // default: 10

	// BlockedResourceFamilies is loaded from the environment but not read
	// by the pool: the resource filter in browserpool/hijack.go aborts
	// requests using its own fixed substring list.
	BlockedResourceFamilies []string
}

// QueueConfig controls RequestQueue (spec.md §4.2).
type QueueConfig struct {
	MaxConcurrent  int           // default: 50
	RequestTimeout time.Duration // default: 60s
	QueueTimeout   time.Duration // default: 120s
}

// ScraperConfig controls PageScraper (spec.md §4.3).
type ScraperConfig struct {
	MaxRetries int // default: 1 (additional attempts)

	StabilityDelay time.Duration // default: 500ms
	ScrollByPixels int           // default: 250
	ScrollInterval time.Duration // default: 100ms
	MaxScrollTime  time.Duration // default: 10s

	EmailScanLimit   int // default: 15000 runes
	FooterCharLimit  int // default: 1000 chars
	MaxEmailContacts int // default: 5
	MaxInternalLinks int // default: 50
	MaxExternalLinks int // default: 30
}

// CrawlerConfig controls WebsiteCrawler (spec.md §4.4).
type CrawlerConfig struct {
	DefaultSubpagesCount   int           // default: 5
	DefaultMaxDepth        int           // default: 2
	MaxConcurrentSubpages  int           // default: 10
	SubpageRequestTimeout  time.Duration // default: 15s
	MemoryCheckRSSBytes    int64         // default: 1.2GB, triggers extra ReleaseUnusedContexts mid-crawl
	SimhashDedupeThreshold int           // default: 3 (Hamming distance)
}

// MemoryConfig controls MemoryController (spec.md §4.5).
type MemoryConfig struct {
	MetricsInterval time.Duration // default: 10s
	IdleInterval    time.Duration // default: 5m
	IdleRSSBytes    int64         // default: 500MB
}

// AuthConfig controls the API-key authentication boundary (external to the
// core per spec.md §1/§6; the core only ever sees authorized requests).
type AuthConfig struct {
	Enabled bool
	APIKeys []string
}

// RateLimitConfig controls the per-identity rate-limit boundary.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 5
	Burst             int     // default: 10
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	MaxEntries int // default: 1000
	MaxAgeMs   int // default: 0 (disabled)
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// FetchConfig controls the multi-engine fast-path dispatcher.
type FetchConfig struct {
	EnableMultiEngine bool
	EscalationDelays  []time.Duration // default: [0s, 2s, 5s]
	HTTPTimeout       time.Duration   // default: 5s
	DomainMemoryTTL   time.Duration   // default: 24h
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("SCRAPE_HOST", "0.0.0.0"),
			Port: envIntOr("SCRAPE_PORT", 8080),
			Mode: envOr("SCRAPE_MODE", "release"),
		},
		Browser: BrowserPoolConfig{
			Headless:           envBoolOr("SCRAPE_HEADLESS", true),
			NoSandbox:          envBoolOr("SCRAPE_NO_SANDBOX", false),
			BrowserBin:         os.Getenv("SCRAPE_BROWSER_BIN"),
			MaxContexts:        envIntOr("SCRAPE_MAX_CONTEXTS", 20),
			MinContexts:        envIntOr("SCRAPE_MIN_CONTEXTS", 2),
			MaxPagesPerContext: envIntOr("SCRAPE_MAX_PAGES_PER_CONTEXT", 10),
			PageTimeout:        envDurationOr("SCRAPE_PAGE_TIMEOUT_MS", 30*time.Second),
			NavigationTimeout:  envDurationOr("SCRAPE_NAV_TIMEOUT_MS", 30*time.Second),
			AcquireTimeout:     envDurationOr("SCRAPE_ACQUIRE_TIMEOUT_MS", 30*time.Second),
			IdleTimeout:        envDurationOr("SCRAPE_IDLE_TIMEOUT_MS", 60*time.Second),
			SoftIdle:           envDurationOr("SCRAPE_SOFT_IDLE_MS", 30*time.Second),
			MetricsInterval:    envDurationOr("SCRAPE_POOL_METRICS_INTERVAL_MS", 10*time.Second),
			RestartThreshold:   int64(envIntOr("SCRAPE_RESTART_THRESHOLD", 1000)),
			PagePoolSize:       envIntOr("SCRAPE_PAGE_POOL_SIZE", 10),
			BlockedResourceFamilies: envSliceOr("SCRAPE_BLOCKED_FAMILIES", []string{
				"onetrust", "cookielaw", "cookie-consent", "cookie-policy",
				"privacy-policy", "gdpr",
			}),
		},
		Queue: QueueConfig{
			MaxConcurrent:  envIntOr("SCRAPE_MAX_CONCURRENT_REQUESTS", 50),
			RequestTimeout: envDurationOr("SCRAPE_REQUEST_TIMEOUT_MS", 60*time.Second),
			QueueTimeout:   envDurationOr("SCRAPE_QUEUE_TIMEOUT_MS", 120*time.Second),
		},
		Scraper: ScraperConfig{
			MaxRetries:       envIntOr("SCRAPE_MAX_RETRIES", 1),
			StabilityDelay:   envDurationOr("SCRAPE_STABILITY_DELAY_MS", 500*time.Millisecond),
			ScrollByPixels:   envIntOr("SCRAPE_SCROLL_PIXELS", 250),
			ScrollInterval:   envDurationOr("SCRAPE_SCROLL_INTERVAL_MS", 100*time.Millisecond),
			MaxScrollTime:    envDurationOr("SCRAPE_MAX_SCROLL_TIME_MS", 10*time.Second),
			EmailScanLimit:   envIntOr("SCRAPE_EMAIL_SCAN_LIMIT", 15000),
			FooterCharLimit:  envIntOr("SCRAPE_FOOTER_CHAR_LIMIT", 1000),
			MaxEmailContacts: envIntOr("SCRAPE_MAX_EMAIL_CONTACTS", 5),
			MaxInternalLinks: envIntOr("SCRAPE_MAX_INTERNAL_LINKS", 50),
			MaxExternalLinks: envIntOr("SCRAPE_MAX_EXTERNAL_LINKS", 30),
		},
		Crawler: CrawlerConfig{
			DefaultSubpagesCount:   envIntOr("SCRAPE_DEFAULT_SUBPAGES_COUNT", 5),
			DefaultMaxDepth:        envIntOr("SCRAPE_DEFAULT_MAX_DEPTH", 2),
			MaxConcurrentSubpages:  envIntOr("SCRAPE_MAX_CONCURRENT_SUBPAGE_REQUESTS", 10),
			SubpageRequestTimeout:  envDurationOr("SCRAPE_SUBPAGE_REQUEST_TIMEOUT_MS", 15*time.Second),
			MemoryCheckRSSBytes:    int64(envIntOr("SCRAPE_CRAWL_RSS_CHECK_BYTES", 1200*1024*1024)),
			SimhashDedupeThreshold: envIntOr("SCRAPE_SIMHASH_DEDUPE_THRESHOLD", 3),
		},
		Memory: MemoryConfig{
			MetricsInterval: envDurationOr("SCRAPE_MEM_METRICS_INTERVAL_MS", 10*time.Second),
			IdleInterval:    envDurationOr("SCRAPE_MEM_IDLE_INTERVAL_MS", 5*time.Minute),
			IdleRSSBytes:    int64(envIntOr("SCRAPE_MEM_IDLE_RSS_BYTES", 500*1024*1024)),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SCRAPE_AUTH_ENABLED", true),
			APIKeys: envSliceOr("SCRAPE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SCRAPE_RATE_RPS", 5.0),
			Burst:             envIntOr("SCRAPE_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("SCRAPE_CACHE_MAX_ENTRIES", 1000),
			MaxAgeMs:   envIntOr("SCRAPE_CACHE_MAX_AGE_MS", 0),
		},
		Log: LogConfig{
			Level:  envOr("SCRAPE_LOG_LEVEL", "info"),
			Format: envOr("SCRAPE_LOG_FORMAT", "json"),
		},
		Fetch: FetchConfig{
			EnableMultiEngine: envBoolOr("SCRAPE_MULTI_ENGINE", true),
			EscalationDelays:  envDurationSliceOr("SCRAPE_ESCALATION_DELAYS", []time.Duration{0, 2 * time.Second, 5 * time.Second}),
			HTTPTimeout:       envDurationOr("SCRAPE_HTTP_TIMEOUT_MS", 5*time.Second),
			DomainMemoryTTL:   envDurationOr("SCRAPE_DOMAIN_MEMORY_TTL_MS", 24*time.Hour),
		},
	}
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

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

// envDurationOr reads an env var as milliseconds (matching the *_MS naming
// used throughout this config) and falls back to the given duration.
func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
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
