package config

import "fmt"

// Validate checks the configuration for invalid values, matching the
// teacher's defensive-config-validation convention.
func Validate(cfg *Config) error {
	if cfg.Engine.Concurrency < 1 {
		return fmt.Errorf("engine.concurrency must be >= 1, got %d", cfg.Engine.Concurrency)
	}
	if cfg.Engine.TotalTimeout <= 0 {
		return fmt.Errorf("engine.total_timeout must be > 0")
	}
	if cfg.Engine.RequestTimeout <= 0 {
		return fmt.Errorf("engine.request_timeout must be > 0")
	}
	if cfg.Engine.MaxContentLength <= 0 {
		return fmt.Errorf("engine.max_content_length must be > 0")
	}
	if cfg.Engine.MaxDepth < 0 {
		return fmt.Errorf("engine.max_depth must be >= 0 (0 = unlimited), got %d", cfg.Engine.MaxDepth)
	}
	if cfg.Engine.MaxRetries < 0 {
		return fmt.Errorf("engine.max_retries must be >= 0, got %d", cfg.Engine.MaxRetries)
	}
	if cfg.Engine.MaxCallbackRecursion < 1 {
		return fmt.Errorf("engine.max_callback_recursion must be >= 1, got %d", cfg.Engine.MaxCallbackRecursion)
	}
	if cfg.Engine.Delay < 0 {
		return fmt.Errorf("engine.delay must be >= 0")
	}
	for _, s := range cfg.Engine.AllowedSchemes {
		if s != "http" && s != "https" {
			return fmt.Errorf("engine.allowed_schemes: unsupported scheme %q", s)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}
