package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"vibetravels/internal/config"
	"vibetravels/internal/logging"
	"vibetravels/internal/services/openrouter"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	// clientOptions are appended when building the OpenRouter client.
	clientOptions []openrouter.Option
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil {
			if level := strings.ToLower(strings.TrimSpace(*c.logLevelFlag)); level != "" {
				cfg.Logging.Level = level
				if err := cfg.Validate(); err != nil {
					c.configErr = err
					return
				}
			}
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// openRouterClient builds a client from the loaded configuration. The API key
// is only required here so config commands work without one.
func (c *commandContext) openRouterClient() (*openrouter.Client, *slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("init logging: %w", err)
	}
	opts := append([]openrouter.Option{
		openrouter.WithRetryPolicy(retryPolicyFromConfig(cfg)),
		openrouter.WithLogger(logger),
	}, c.clientOptions...)
	client, err := openrouter.NewClient(clientConfigFromConfig(cfg), opts...)
	if err != nil {
		return nil, nil, err
	}
	return client, logger, nil
}

func clientConfigFromConfig(cfg *config.Config) openrouter.Config {
	settings := cfg.GetOpenRouter()
	clientCfg := openrouter.Config{
		APIKey:         settings.APIKey,
		BaseURL:        settings.BaseURL,
		Model:          settings.Model,
		Referer:        settings.Referer,
		Title:          settings.Title,
		TimeoutSeconds: settings.TimeoutSeconds,
	}
	if settings.HasSamplingDefaults() {
		clientCfg.DefaultSampling = &openrouter.SamplingParameters{
			Temperature: settings.Temperature,
			MaxTokens:   settings.MaxTokens,
		}
	}
	return clientCfg
}

func retryPolicyFromConfig(cfg *config.Config) openrouter.RetryPolicy {
	settings := cfg.GetRetry()
	return openrouter.RetryPolicy{
		MaxAttempts: settings.MaxAttempts,
		BaseDelay:   settings.BaseDelay,
		MaxJitter:   settings.MaxJitter,
		MaxDelay:    settings.MaxDelay,
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
