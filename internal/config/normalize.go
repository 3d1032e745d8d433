package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeOpenRouter()
	c.normalizeRetry()
	return c.normalizeLogging()
}

func (c *Config) normalizeOpenRouter() {
	c.OpenRouter.APIKey = strings.TrimSpace(c.OpenRouter.APIKey)
	if c.OpenRouter.APIKey == "" {
		if value, ok := os.LookupEnv(openRouterKeyEnvVar); ok {
			c.OpenRouter.APIKey = strings.TrimSpace(value)
		}
	}
	c.OpenRouter.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenRouter.BaseURL), "/")
	if c.OpenRouter.BaseURL == "" {
		c.OpenRouter.BaseURL = defaultOpenRouterBaseURL
	}
	c.OpenRouter.Model = strings.TrimSpace(c.OpenRouter.Model)
	if c.OpenRouter.Model == "" {
		c.OpenRouter.Model = defaultOpenRouterModel
	}
	c.OpenRouter.Referer = strings.TrimSpace(c.OpenRouter.Referer)
	c.OpenRouter.Title = strings.TrimSpace(c.OpenRouter.Title)
	if c.OpenRouter.TimeoutSeconds == 0 {
		c.OpenRouter.TimeoutSeconds = defaultTimeoutSeconds
	}
}

func (c *Config) normalizeRetry() {
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = defaultMaxAttempts
	}
	if c.Retry.MaxDelaySeconds == 0 {
		c.Retry.MaxDelaySeconds = defaultMaxDelaySeconds
	}
}

func (c *Config) normalizeLogging() error {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level

	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = ""
		return nil
	}
	dir, err := expandPath(strings.TrimSpace(c.Logging.Dir))
	if err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	c.Logging.Dir = dir
	return nil
}
