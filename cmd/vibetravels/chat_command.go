package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"vibetravels/internal/config"
	"vibetravels/internal/services/openrouter"
)

func newChatCommand(ctx *commandContext) *cobra.Command {
	var (
		systemMessage string
		userMessage   string
		model         string
		schemaPath    string
		strict        bool
		temperature   float64
		maxTokens     int
		showPrompt    bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Send one chat completion and print the AI content",
		Long: `Send a single chat completion through the retrying OpenRouter client.

With --schema the response is requested as structured output and validated
against the JSON Schema file before it is printed. JSON content is printed
indented; anything else is printed as-is.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := ctx.openRouterClient()
			if err != nil {
				return err
			}

			req := openrouter.ChatRequest{
				SystemMessage: systemMessage,
				UserMessage:   userMessage,
				Model:         model,
			}
			if cmd.Flags().Changed("temperature") || cmd.Flags().Changed("max-tokens") {
				req.Sampling = &openrouter.SamplingParameters{Temperature: temperature, MaxTokens: maxTokens}
			}
			if strings.TrimSpace(schemaPath) != "" {
				schema, err := loadSchemaFile(schemaPath, strict)
				if err != nil {
					return err
				}
				req.Schema = schema
			}

			if showPrompt {
				writeSection(cmd.ErrOrStderr(), "System Message", systemMessage)
				writeSection(cmd.ErrOrStderr(), "User Message", userMessage)
			}

			content, err := client.Complete(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeContent(cmd.OutOrStdout(), content)
		},
	}

	cmd.Flags().StringVarP(&systemMessage, "system", "s", "You are a helpful travel assistant.", "System message")
	cmd.Flags().StringVarP(&userMessage, "user", "u", "", "User message")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model override (defaults to openrouter.model)")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "JSON Schema file for structured output")
	cmd.Flags().BoolVar(&strict, "strict", true, "Request strict schema adherence from the provider")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Sampling temperature")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Maximum tokens to generate")
	cmd.Flags().BoolVar(&showPrompt, "show-prompt", false, "Echo the prompt to stderr before sending")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func loadSchemaFile(path string, strict bool) (*openrouter.ResponseSchema, error) {
	expanded, err := config.ExpandPath(strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("resolve schema path: %w", err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("schema %s is not valid JSON", expanded)
	}
	name := strings.TrimSuffix(filepath.Base(expanded), filepath.Ext(expanded))
	return &openrouter.ResponseSchema{
		Name:   name,
		Body:   json.RawMessage(bytes.TrimSpace(data)),
		Strict: strict,
	}, nil
}

func writeContent(w io.Writer, content string) error {
	trimmed := strings.TrimSpace(content)
	if json.Valid([]byte(trimmed)) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(trimmed), "", "  "); err == nil {
			_, err = fmt.Fprintln(w, buf.String())
			return err
		}
	}
	_, err := fmt.Fprintln(w, trimmed)
	return err
}

func writeSection(w io.Writer, title, body string) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Section"
	}
	_, _ = fmt.Fprintln(w, title)
	_, _ = fmt.Fprintln(w, strings.Repeat("-", len(title)))
	body = strings.TrimSpace(body)
	if body == "" {
		_, _ = fmt.Fprintln(w, "(empty)")
		_, _ = fmt.Fprintln(w, "")
		return
	}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		_, _ = fmt.Fprintf(w, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w, "")
}
