package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from an optional YAML file layered over
// defaults and FEEDHAWK_*-prefixed environment variables (highest
// priority: env > file > defaults), following the teacher's
// viper-based loader convention.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix("FEEDHAWK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("engine.concurrency", cfg.Engine.Concurrency)
	v.SetDefault("engine.total_timeout", cfg.Engine.TotalTimeout)
	v.SetDefault("engine.request_timeout", cfg.Engine.RequestTimeout)
	v.SetDefault("engine.max_content_length", cfg.Engine.MaxContentLength)
	v.SetDefault("engine.max_depth", cfg.Engine.MaxDepth)
	v.SetDefault("engine.allowed_schemes", cfg.Engine.AllowedSchemes)
	v.SetDefault("engine.max_retries", cfg.Engine.MaxRetries)
	v.SetDefault("engine.max_callback_recursion", cfg.Engine.MaxCallbackRecursion)
	v.SetDefault("engine.delay", cfg.Engine.Delay)

	v.SetDefault("fetcher.user_agent", cfg.Fetcher.UserAgent)
	v.SetDefault("fetcher.ssl", cfg.Fetcher.SSL)

	v.SetDefault("spider.full_crawl", cfg.Spider.FullCrawl)
	v.SetDefault("spider.try_urls", cfg.Spider.TryURLs)
	v.SetDefault("spider.favicon_data_uri", cfg.Spider.FaviconDataURI)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}
