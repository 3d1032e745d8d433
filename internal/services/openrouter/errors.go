package openrouter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vibetravels/internal/services"
)

// Kind is the closed set of failure classifications produced by the client.
type Kind int

const (
	// KindGeneric covers unexpected status codes and unusable 2xx payloads.
	KindGeneric Kind = iota
	// KindAuth is a 401/403 from the upstream.
	KindAuth
	// KindRateLimit is a 429 from the upstream.
	KindRateLimit
	// KindServerError is a 500/502/503/504 from the upstream.
	KindServerError
	// KindTimeout is a per-attempt transport timeout.
	KindTimeout
	// KindSchemaViolation means the AI content did not match the response schema.
	KindSchemaViolation
	// KindTransport is a network-level failure before a response arrived.
	KindTransport
	// KindCanceled means the caller's context ended the call.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate_limit"
	case KindServerError:
		return "server_error"
	case KindTimeout:
		return "timeout"
	case KindSchemaViolation:
		return "schema_violation"
	case KindTransport:
		return "transport"
	case KindCanceled:
		return "canceled"
	default:
		return "generic"
	}
}

// Retryable reports whether a failure of this kind may succeed on another attempt.
func (k Kind) Retryable() bool {
	switch k {
	case KindServerError, KindRateLimit, KindTransport, KindTimeout:
		return true
	default:
		return false
	}
}

// ErrInvalidArgument is returned when a ChatRequest is rejected before any I/O.
var ErrInvalidArgument = fmt.Errorf("%w: invalid argument", services.ErrValidation)

// Error is the classified failure returned by SendChat and friends.
//
// StatusCode and Body carry the upstream response when one was received.
// Content holds the AI-generated content for decode and schema failures.
type Error struct {
	Kind       Kind
	Op         string
	Message    string
	StatusCode int
	Body       string
	Content    string
	RetryAfter time.Duration
	// HasRetryAfter is set when the upstream sent a usable Retry-After header,
	// including an explicit zero.
	HasRetryAfter bool
	Violations    []string
	Cause         error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (http %d)", e.StatusCode)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	if len(e.Violations) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Violations, "; "))
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	if e.Body != "" && e.Kind != KindSchemaViolation {
		b.WriteString(" (body: ")
		b.WriteString(summarizePayloadSnippet(e.Body))
		b.WriteString(")")
	}
	return b.String()
}

// Retryable reports whether another attempt may succeed. Any 5xx qualifies,
// even when its status is not one of the listed server errors.
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	return e.Kind.Retryable() || retryableStatus(e.StatusCode)
}

func retryableStatus(status int) bool {
	return status >= http.StatusInternalServerError
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is maps the classification onto the shared service error markers so callers
// can branch with errors.Is without importing this package.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindAuth:
		return target == services.ErrConfiguration
	case KindRateLimit, KindServerError, KindTransport:
		return target == services.ErrTransient
	case KindTimeout:
		return target == services.ErrTimeout || target == services.ErrTransient
	case KindSchemaViolation, KindGeneric:
		return target == services.ErrExternalTool
	case KindCanceled:
		return target == services.ErrCanceled
	}
	return false
}

// AsError extracts the classified error from err.
func AsError(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// KindOf returns the classification of err, or KindGeneric for foreign errors.
func KindOf(err error) Kind {
	if ce, ok := AsError(err); ok {
		return ce.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	return KindGeneric
}

// classifyStatus maps a non-2xx response onto an Error.
func classifyStatus(op string, status int, body []byte, header http.Header) *Error {
	ce := &Error{
		Op:         op,
		StatusCode: status,
		Body:       strings.TrimSpace(string(body)),
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		ce.Kind = KindAuth
		ce.Message = "authentication failed; check the api key and its permissions"
	case http.StatusTooManyRequests:
		ce.Kind = KindRateLimit
		ce.Message = "rate limit exceeded"
		if header != nil {
			if d, ok := parseRetryAfter(header.Get("Retry-After")); ok {
				ce.RetryAfter = d
				ce.HasRetryAfter = true
			}
		}
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		ce.Kind = KindServerError
		ce.Message = "upstream server error"
	default:
		ce.Kind = KindGeneric
		ce.Message = fmt.Sprintf("request failed with status %d", status)
	}
	return ce
}
