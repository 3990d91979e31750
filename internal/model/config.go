package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the complete runtime configuration.
// Field tags serve both viper (mapstructure) and `config show` (yaml).
type Config struct {
	Source       SourceConfig    `yaml:"source" mapstructure:"source"`
	Browser      BrowserConfig   `yaml:"browser" mapstructure:"browser"`
	HTTP         HTTPConfig      `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig     `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Lookup       LookupConfig    `yaml:"lookup" mapstructure:"lookup"`
	Output       OutputConfig    `yaml:"output" mapstructure:"output"`
	Log          LogConfig       `yaml:"log" mapstructure:"log"`
}

// SourceConfig points at the encyclopedia instance
type SourceConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// Engine names a document driver implementation
type Engine string

const (
	EngineBrowser Engine = "browser" // Chromium through Playwright
	EngineHTTP    Engine = "http"    // Plain HTTP fetch + XPath over parsed HTML
)

// BrowserConfig controls the document session
type BrowserConfig struct {
	Engine            Engine        `yaml:"engine" mapstructure:"engine"`
	Headless          bool          `yaml:"headless" mapstructure:"headless"`
	InstallDrivers    bool          `yaml:"install_drivers" mapstructure:"install_drivers"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" mapstructure:"navigation_timeout"`
	SettleTimeout     time.Duration `yaml:"settle_timeout" mapstructure:"settle_timeout"`
	PollInterval      time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
}

// HTTPConfig applies to the http engine and robots.txt lookups
type HTTPConfig struct {
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries   int           `yaml:"max_retries" mapstructure:"max_retries"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	// RespectRobots makes the http engine refuse pages robots.txt disallows.
	// Wikipedia disallows its search paths, so interactive search stops working.
	RespectRobots bool `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// CacheConfig controls the page cache used by the http engine
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RateLimitConfig paces navigations per host
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// LookupConfig tunes the strategy chain
type LookupConfig struct {
	// SearchEngineFallback enables the "feeling lucky" strategy. Off by default:
	// the upstream engine answers automated sessions with a challenge page.
	SearchEngineFallback bool   `yaml:"search_engine_fallback" mapstructure:"search_engine_fallback"`
	SearchEngineURL      string `yaml:"search_engine_url" mapstructure:"search_engine_url"`
}

// OutputConfig controls presentation
type OutputConfig struct {
	Format  string `yaml:"format" mapstructure:"format"` // text or json
	Pager   bool   `yaml:"pager" mapstructure:"pager"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// LogConfig controls diagnostic logging
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	cacheDir := filepath.Join(os.TempDir(), "scientia-cache")
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".scientia", "cache")
	}

	return &Config{
		Source: SourceConfig{
			BaseURL: "https://en.wikipedia.org",
		},
		Browser: BrowserConfig{
			Engine:            EngineBrowser,
			Headless:          true,
			InstallDrivers:    true,
			NavigationTimeout: 30 * time.Second,
			SettleTimeout:     60 * time.Second,
			PollInterval:      100 * time.Millisecond,
		},
		HTTP: HTTPConfig{
			UserAgent:     "Scientia/0.1 (+https://github.com/ppiankov/scientia)",
			Timeout:       20 * time.Second,
			MaxBodyBytes:  4_000_000,
			MaxRetries:    2,
			RespectRobots: false,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       cacheDir,
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         2,
		},
		Lookup: LookupConfig{
			SearchEngineFallback: false,
			SearchEngineURL:      "https://www.google.com/search",
		},
		Output: OutputConfig{
			Format: "text",
			Pager:  true,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}
