package config

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "openai/gpt-4o-mini"
	defaultOpenRouterReferer = "https://vibetravels.app"
	defaultOpenRouterTitle   = "VibeTravels"
	defaultTimeoutSeconds    = 60
	defaultMaxAttempts       = 3
	defaultBaseDelayMS       = 1000
	defaultMaxJitterMS       = 1000
	defaultMaxDelaySeconds   = 60
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		OpenRouter: OpenRouter{
			BaseURL:        defaultOpenRouterBaseURL,
			Model:          defaultOpenRouterModel,
			Referer:        defaultOpenRouterReferer,
			Title:          defaultOpenRouterTitle,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Retry: Retry{
			MaxAttempts:     defaultMaxAttempts,
			BaseDelayMS:     defaultBaseDelayMS,
			MaxJitterMS:     defaultMaxJitterMS,
			MaxDelaySeconds: defaultMaxDelaySeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
