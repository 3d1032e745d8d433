package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vibetravels/internal/services/openrouter"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the configured API key and model respond",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			settings := cfg.GetOpenRouter()
			fmt.Fprintln(out, renderStatusLine("Endpoint", statusInfo, settings.BaseURL, colorize))
			fmt.Fprintln(out, renderStatusLine("Model", statusInfo, settings.Model, colorize))

			client, _, err := ctx.openRouterClient()
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("API key", statusError, "not configured", colorize))
				return err
			}

			reqCtx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				reqCtx, cancel = context.WithTimeout(reqCtx, timeout)
				defer cancel()
			}
			started := time.Now()
			if err := client.HealthCheck(reqCtx); err != nil {
				fmt.Fprintln(out, renderStatusLine("OpenRouter", statusError, openrouter.KindOf(err).String(), colorize))
				return err
			}
			elapsed := time.Since(started).Round(time.Millisecond)
			fmt.Fprintln(out, renderStatusLine("OpenRouter", statusOK, fmt.Sprintf("responded in %s", elapsed), colorize))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall deadline across all attempts")
	return cmd
}
