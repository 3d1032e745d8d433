package openrouter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// transportResponse is one attempt's raw result. It is never retained past
// the attempt that produced it.
type transportResponse struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      chatCompletionMessage `json:"message"`
		FinishReason string                `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

type chatCompletionMessage struct {
	Content *string `json:"content"`
	Refusal string  `json:"refusal"`
}

// checkStatus is stage one: any non-2xx response becomes a classified error.
func checkStatus(op string, resp transportResponse) *Error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	return classifyStatus(op, resp.StatusCode, resp.Body, resp.Header)
}

// extractContent runs the envelope parse and content extraction stages on a
// 2xx response and returns the AI-generated content string.
func extractContent(op string, resp transportResponse) (string, *Error) {
	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 {
		return "", &Error{
			Kind:       KindGeneric,
			Op:         op,
			Message:    "empty response body",
			StatusCode: resp.StatusCode,
		}
	}
	var envelope chatCompletionResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", &Error{
			Kind:       KindGeneric,
			Op:         op,
			Message:    "decode response envelope",
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Cause:      err,
		}
	}
	if envelope.Error != nil {
		return "", &Error{
			Kind:       KindGeneric,
			Op:         op,
			Message:    fmt.Sprintf("api error: %s", strings.TrimSpace(envelope.Error.Message)),
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}
	if len(envelope.Choices) == 0 {
		return "", &Error{
			Kind:       KindGeneric,
			Op:         op,
			Message:    "empty choices",
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}
	first := envelope.Choices[0]
	if first.Message.Content == nil || strings.TrimSpace(*first.Message.Content) == "" {
		return "", &Error{
			Kind:       KindGeneric,
			Op:         op,
			Message:    fmt.Sprintf("empty content (finish_reason=%q, refusal=%q)", strings.TrimSpace(first.FinishReason), strings.TrimSpace(first.Message.Refusal)),
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}
	return *first.Message.Content, nil
}

// validateStage is the optional schema stage. It is a no-op without a schema.
func validateStage(op string, schema *ResponseSchema, content string) *Error {
	if schema == nil {
		return nil
	}
	violations, err := validateContent(schema, content)
	if err != nil {
		return &Error{
			Kind:    KindSchemaViolation,
			Op:      op,
			Message: fmt.Sprintf("schema %q could not be used for validation", schemaName(schema)),
			Content: content,
			Cause:   err,
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return &Error{
		Kind:       KindSchemaViolation,
		Op:         op,
		Message:    fmt.Sprintf("content failed schema %q", schemaName(schema)),
		Content:    content,
		Violations: violations,
	}
}

// decodeStage deserializes validated content into T. A JSON null is rejected
// because it would otherwise produce a silent zero value.
func decodeStage[T any](op, content string) (T, *Error) {
	var out T
	trimmed := strings.TrimSpace(content)
	if trimmed == "null" {
		return out, &Error{
			Kind:    KindGeneric,
			Op:      op,
			Message: "decoded content is null",
			Content: content,
		}
	}
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		var zero T
		return zero, &Error{
			Kind:    KindGeneric,
			Op:      op,
			Message: fmt.Sprintf("decode content (snippet: %s)", summarizePayloadSnippet(trimmed)),
			Content: content,
			Cause:   err,
		}
	}
	return out, nil
}

// stripCodeFenceBlock unwraps a ```json fenced block; models add them even
// when asked for bare JSON.
func stripCodeFenceBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
		body = strings.TrimLeft(body, " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	clean := replacer.Replace(trimmed)
	clean = strings.Join(strings.Fields(clean), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
