package openrouter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	contentTypeJSON = "application/json"
	// FallbackModel is used when neither the request nor the config names a model.
	FallbackModel = "openai/gpt-4o-mini"

	roleSystem = "system"
	roleUser   = "user"

	responseFormatJSONSchema = "json_schema"
)

// SamplingParameters tunes generation. MaxTokens of zero is omitted from the payload.
type SamplingParameters struct {
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

// ResponseSchema asks the provider for structured output and drives the
// schema validation stage of response handling. Body is forwarded verbatim.
type ResponseSchema struct {
	Name   string
	Body   json.RawMessage
	Strict bool
}

// ChatRequest is one chat completion call.
type ChatRequest struct {
	SystemMessage string
	UserMessage   string
	// Model overrides the configured default model when non-empty.
	Model string
	// Sampling overrides the configured default sampling parameters when non-nil.
	Sampling *SamplingParameters
	Schema   *ResponseSchema
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *jsonSchemaSpec `json:"json_schema,omitempty"`
}

type jsonSchemaSpec struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

// BuiltRequest is the serialized payload produced by BuildRequestBody.
type BuiltRequest struct {
	Body        []byte
	ContentType string
	Model       string
}

// BuildRequestBody validates req and serializes it with the supplied defaults.
// Identical inputs always produce byte-identical output.
func BuildRequestBody(req ChatRequest, defaultModel string, defaultSampling *SamplingParameters) (BuiltRequest, error) {
	if strings.TrimSpace(req.SystemMessage) == "" {
		return BuiltRequest{}, fmt.Errorf("%w: system message required", ErrInvalidArgument)
	}
	if strings.TrimSpace(req.UserMessage) == "" {
		return BuiltRequest{}, fmt.Errorf("%w: user message required", ErrInvalidArgument)
	}

	payload := chatCompletionRequest{
		Model: resolveModel(req.Model, defaultModel),
		Messages: []chatMessage{
			{Role: roleSystem, Content: req.SystemMessage},
			{Role: roleUser, Content: req.UserMessage},
		},
	}
	if sampling := resolveSampling(req.Sampling, defaultSampling); sampling != nil {
		temperature := sampling.Temperature
		payload.Temperature = &temperature
		if sampling.MaxTokens > 0 {
			payload.MaxTokens = sampling.MaxTokens
		}
	}
	if req.Schema != nil {
		if len(bytes.TrimSpace(req.Schema.Body)) == 0 {
			return BuiltRequest{}, fmt.Errorf("%w: response schema body required", ErrInvalidArgument)
		}
		if !json.Valid(req.Schema.Body) {
			return BuiltRequest{}, fmt.Errorf("%w: response schema body is not valid JSON", ErrInvalidArgument)
		}
		payload.ResponseFormat = &responseFormat{
			Type: responseFormatJSONSchema,
			JSONSchema: &jsonSchemaSpec{
				Name:   schemaName(req.Schema),
				Strict: req.Schema.Strict,
				Schema: req.Schema.Body,
			},
		}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(payload); err != nil {
		return BuiltRequest{}, fmt.Errorf("encode request body: %w", err)
	}
	return BuiltRequest{
		Body:        bytes.TrimRight(buf.Bytes(), "\n"),
		ContentType: contentTypeJSON,
		Model:       payload.Model,
	}, nil
}

func resolveModel(explicit, configured string) string {
	if model := strings.TrimSpace(explicit); model != "" {
		return model
	}
	if model := strings.TrimSpace(configured); model != "" {
		return model
	}
	return FallbackModel
}

func resolveSampling(explicit, configured *SamplingParameters) *SamplingParameters {
	if explicit != nil {
		return explicit
	}
	return configured
}

func schemaName(schema *ResponseSchema) string {
	if schema == nil {
		return ""
	}
	if name := strings.TrimSpace(schema.Name); name != "" {
		return name
	}
	return "response"
}
