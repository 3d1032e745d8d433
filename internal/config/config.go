package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

const (
	defaultConfigPath   = "~/.config/vibetravels/config.toml"
	projectConfigName   = "vibetravels.toml"
	openRouterKeyEnvVar = "OPENROUTER_API_KEY"
)

// OpenRouter contains connection settings for the chat completions endpoint.
type OpenRouter struct {
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	Referer        string  `toml:"referer"`
	Title          string  `toml:"title"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
}

// Retry bounds how often a failed call is re-sent.
type Retry struct {
	MaxAttempts     int `toml:"max_attempts"`
	BaseDelayMS     int `toml:"base_delay_ms"`
	MaxJitterMS     int `toml:"max_jitter_ms"`
	MaxDelaySeconds int `toml:"max_delay_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for vibetravels.
//
// Configuration sections:
//   - OpenRouter: endpoint, credentials, model and default sampling
//   - Retry: attempt count and backoff bounds
//   - Logging: log format, level and optional file directory
type Config struct {
	OpenRouter OpenRouter `toml:"openrouter"`
	Retry      Retry      `toml:"retry"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config
// has env fallbacks applied and paths expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Marshal renders the configuration back to TOML. The API key is masked.
func (c *Config) Marshal() ([]byte, error) {
	clone := *c
	clone.OpenRouter.APIKey = MaskSecret(clone.OpenRouter.APIKey)
	data, err := toml.Marshal(clone)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// MaskSecret keeps the last four characters of a credential.
func MaskSecret(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

// OpenRouterSettings is the connection view of the [openrouter] section.
type OpenRouterSettings struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
	Temperature    float64
	MaxTokens      int
}

// HasSamplingDefaults reports whether any default sampling parameter is set.
func (s OpenRouterSettings) HasSamplingDefaults() bool {
	return s.Temperature != 0 || s.MaxTokens != 0
}

// GetOpenRouter returns the trimmed connection settings.
func (c *Config) GetOpenRouter() OpenRouterSettings {
	return OpenRouterSettings{
		APIKey:         strings.TrimSpace(c.OpenRouter.APIKey),
		BaseURL:        strings.TrimSpace(c.OpenRouter.BaseURL),
		Model:          strings.TrimSpace(c.OpenRouter.Model),
		Referer:        strings.TrimSpace(c.OpenRouter.Referer),
		Title:          strings.TrimSpace(c.OpenRouter.Title),
		TimeoutSeconds: c.OpenRouter.TimeoutSeconds,
		Temperature:    c.OpenRouter.Temperature,
		MaxTokens:      c.OpenRouter.MaxTokens,
	}
}

// RetrySettings is the [retry] section converted to durations.
type RetrySettings struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration
	MaxDelay    time.Duration
}

// GetRetry returns the retry bounds as durations.
func (c *Config) GetRetry() RetrySettings {
	return RetrySettings{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   time.Duration(c.Retry.BaseDelayMS) * time.Millisecond,
		MaxJitter:   time.Duration(c.Retry.MaxJitterMS) * time.Millisecond,
		MaxDelay:    time.Duration(c.Retry.MaxDelaySeconds) * time.Second,
	}
}
