// Package config defines FeedHawk's configuration surface and presets,
// following the teacher's viper+mapstructure pattern.
package config

import "time"

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for a crawl (spec §6 "Configuration
// options").
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"  yaml:"engine"`
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Spider  SpiderConfig  `mapstructure:"spider"  yaml:"spider"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// EngineConfig controls the crawl engine's scheduling and limits.
type EngineConfig struct {
	Concurrency           int           `mapstructure:"concurrency"             yaml:"concurrency"`
	TotalTimeout          time.Duration `mapstructure:"total_timeout"           yaml:"total_timeout"`
	RequestTimeout        time.Duration `mapstructure:"request_timeout"         yaml:"request_timeout"`
	MaxContentLength      int64         `mapstructure:"max_content_length"      yaml:"max_content_length"`
	MaxDepth              int           `mapstructure:"max_depth"               yaml:"max_depth"`
	AllowedSchemes        []string      `mapstructure:"allowed_schemes"         yaml:"allowed_schemes"`
	MaxRetries            int           `mapstructure:"max_retries"             yaml:"max_retries"`
	MaxCallbackRecursion  int           `mapstructure:"max_callback_recursion"  yaml:"max_callback_recursion"`
	Delay                 time.Duration `mapstructure:"delay"                   yaml:"delay"`
}

// FetcherConfig controls the shared HTTP client/session.
type FetcherConfig struct {
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
	SSL       bool   `mapstructure:"ssl"        yaml:"ssl"`
}

// SpiderConfig controls feed-discovery-specific behavior.
type SpiderConfig struct {
	FullCrawl      bool `mapstructure:"full_crawl"      yaml:"full_crawl"`
	TryURLs        bool `mapstructure:"try_urls"        yaml:"try_urls"`
	FaviconDataURI bool `mapstructure:"favicon_data_uri" yaml:"favicon_data_uri"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Concurrency:          8,
			TotalTimeout:         60 * time.Second,
			RequestTimeout:       10 * time.Second,
			MaxContentLength:     10 * 1024 * 1024,
			MaxDepth:             3,
			AllowedSchemes:       []string{"http", "https"},
			MaxRetries:           3,
			MaxCallbackRecursion: 16,
			Delay:                0,
		},
		Fetcher: FetcherConfig{
			UserAgent: "FeedHawk/" + Version + " (+https://github.com/feedhawk/feedhawk)",
			SSL:       true,
		},
		Spider: SpiderConfig{
			FullCrawl:      false,
			TryURLs:        true,
			FaviconDataURI: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ShallowPreset is setup_type=1: a fast, shallow crawl (spec §6).
func ShallowPreset() *Config {
	cfg := DefaultConfig()
	cfg.Engine.Concurrency = 4
	cfg.Engine.MaxDepth = 2
	cfg.Engine.TotalTimeout = 20 * time.Second
	cfg.Spider.TryURLs = true
	cfg.Spider.FullCrawl = false
	return cfg
}

// DeepPreset is setup_type=2: a deep, exhaustive crawl (spec §6).
func DeepPreset() *Config {
	cfg := DefaultConfig()
	cfg.Engine.Concurrency = 16
	cfg.Engine.MaxDepth = 5
	cfg.Engine.TotalTimeout = 120 * time.Second
	cfg.Spider.TryURLs = true
	cfg.Spider.FullCrawl = true
	return cfg
}

// Preset resolves a CLI setup_type integer to a Config (spec §6).
func Preset(setupType int) (*Config, bool) {
	switch setupType {
	case 1:
		return ShallowPreset(), true
	case 2:
		return DeepPreset(), true
	default:
		return nil, false
	}
}
