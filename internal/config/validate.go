package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOpenRouter(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateOpenRouter() error {
	parsed, err := url.Parse(c.OpenRouter.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("openrouter.base_url must be an absolute URL, got %q", c.OpenRouter.BaseURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("openrouter.base_url must use http or https, got %q", parsed.Scheme)
	}
	if c.OpenRouter.TimeoutSeconds < 0 {
		return errors.New("openrouter.timeout_seconds must be positive")
	}
	if c.OpenRouter.Temperature < 0 || c.OpenRouter.Temperature > 2 {
		return errors.New("openrouter.temperature must be between 0 and 2")
	}
	if c.OpenRouter.MaxTokens < 0 {
		return errors.New("openrouter.max_tokens must be zero or positive")
	}
	return nil
}

// RequireAPIKey reports a missing OpenRouter credential. Commands that do not
// talk to the API (config show, config validate) skip this check.
func (c *Config) RequireAPIKey() error {
	if c.OpenRouter.APIKey != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("openrouter.api_key is required. Set %s env var or edit %s (create with 'vibetravels config init')", openRouterKeyEnvVar, defaultPath)
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be at least 1")
	}
	if c.Retry.MaxAttempts > 10 {
		return errors.New("retry.max_attempts must be at most 10")
	}
	if c.Retry.BaseDelayMS < 0 {
		return errors.New("retry.base_delay_ms must be zero or positive")
	}
	if c.Retry.MaxJitterMS < 0 {
		return errors.New("retry.max_jitter_ms must be zero or positive")
	}
	if c.Retry.MaxDelaySeconds < 0 {
		return errors.New("retry.max_delay_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json", "auto":
	default:
		return fmt.Errorf("logging.format must be console, json or auto, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
