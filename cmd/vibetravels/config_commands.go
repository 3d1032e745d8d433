package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vibetravels/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set openrouter.api_key (or export OPENROUTER_API_KEY) before calling the API.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if !ctx.configSeen {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			if err := cfg.RequireAPIKey(); err != nil {
				fmt.Fprintln(out, renderStatusLine("API key", statusWarn, "missing; chat, health and plan commands will fail", colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("API key", statusOK, "set", colorize))
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	var asTOML bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, environment fallbacks and
normalization have been applied. The API key is masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			if asTOML {
				data, err := cfg.Marshal()
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}
			fmt.Fprintln(out, renderTable([]string{"Key", "Value"}, configRows(cfg), []columnAlignment{alignLeft, alignLeft}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asTOML, "toml", false, "Print as TOML instead of a table")
	return cmd
}

func configRows(cfg *config.Config) [][]string {
	settings := cfg.GetOpenRouter()
	retry := cfg.GetRetry()
	apiKey := config.MaskSecret(settings.APIKey)
	if apiKey == "" {
		apiKey = "(not set)"
	}
	logDir := cfg.Logging.Dir
	if logDir == "" {
		logDir = "(stderr only)"
	}
	return [][]string{
		{"openrouter.base_url", settings.BaseURL},
		{"openrouter.api_key", apiKey},
		{"openrouter.model", settings.Model},
		{"openrouter.referer", settings.Referer},
		{"openrouter.title", settings.Title},
		{"openrouter.timeout_seconds", strconv.Itoa(settings.TimeoutSeconds)},
		{"openrouter.sampling_defaults", yesNo(settings.HasSamplingDefaults())},
		{"retry.max_attempts", strconv.Itoa(retry.MaxAttempts)},
		{"retry.base_delay", retry.BaseDelay.String()},
		{"retry.max_jitter", retry.MaxJitter.String()},
		{"retry.max_delay", retry.MaxDelay.String()},
		{"logging.format", cfg.Logging.Format},
		{"logging.level", cfg.Logging.Level},
		{"logging.dir", logDir},
	}
}
