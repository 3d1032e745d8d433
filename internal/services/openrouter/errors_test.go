package openrouter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"vibetravels/internal/services"
)

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindAuth},
		{http.StatusTooManyRequests, KindRateLimit},
		{http.StatusInternalServerError, KindServerError},
		{http.StatusBadGateway, KindServerError},
		{http.StatusServiceUnavailable, KindServerError},
		{http.StatusGatewayTimeout, KindServerError},
		{http.StatusBadRequest, KindGeneric},
		{http.StatusRequestTimeout, KindGeneric},
		{http.StatusNotImplemented, KindGeneric},
	}
	for _, tc := range cases {
		got := classifyStatus(opChat, tc.status, []byte(" body "), nil)
		if got.Kind != tc.want {
			t.Errorf("status %d: got %s want %s", tc.status, got.Kind, tc.want)
		}
		if got.StatusCode != tc.status || got.Body != "body" {
			t.Errorf("status %d: expected status and body to be retained, got %+v", tc.status, got)
		}
	}
}

func TestClassifyStatusParsesRetryAfter(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "7")
	got := classifyStatus(opChat, http.StatusTooManyRequests, nil, header)
	if got.RetryAfter != 7*time.Second {
		t.Fatalf("expected 7s retry-after, got %s", got.RetryAfter)
	}
}

func TestKindRetryable(t *testing.T) {
	retryable := map[Kind]bool{
		KindGeneric:         false,
		KindAuth:            false,
		KindRateLimit:       true,
		KindServerError:     true,
		KindTimeout:         true,
		KindSchemaViolation: false,
		KindTransport:       true,
		KindCanceled:        false,
	}
	for kind, want := range retryable {
		if kind.Retryable() != want {
			t.Errorf("%s: Retryable() = %v, want %v", kind, kind.Retryable(), want)
		}
	}
}

func TestErrorRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		want bool
	}{
		{"nil", nil, false},
		{"server error", classifyStatus(opChat, http.StatusServiceUnavailable, nil, nil), true},
		{"unlisted 5xx", classifyStatus(opChat, http.StatusInsufficientStorage, nil, nil), true},
		{"not implemented", classifyStatus(opChat, http.StatusNotImplemented, nil, nil), true},
		{"client error", classifyStatus(opChat, http.StatusBadRequest, nil, nil), false},
		{"auth", classifyStatus(opChat, http.StatusUnauthorized, nil, nil), false},
		{"schema", &Error{Kind: KindSchemaViolation, StatusCode: http.StatusOK}, false},
	}
	for _, tc := range cases {
		if got := tc.err.Retryable(); got != tc.want {
			t.Errorf("%s: Retryable() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestClassifyStatusRetryAfterZero(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "0")
	got := classifyStatus(opChat, http.StatusTooManyRequests, nil, header)
	if !got.HasRetryAfter || got.RetryAfter != 0 {
		t.Fatalf("expected explicit zero retry-after, got %s (present=%v)", got.RetryAfter, got.HasRetryAfter)
	}
	if missing := classifyStatus(opChat, http.StatusTooManyRequests, nil, http.Header{}); missing.HasRetryAfter {
		t.Fatal("expected no retry-after without the header")
	}
}

func TestErrorMatchesServiceMarkers(t *testing.T) {
	cases := []struct {
		kind   Kind
		marker error
		status int
	}{
		{KindAuth, services.ErrConfiguration, http.StatusInternalServerError},
		{KindRateLimit, services.ErrTransient, http.StatusServiceUnavailable},
		{KindServerError, services.ErrTransient, http.StatusServiceUnavailable},
		{KindTransport, services.ErrTransient, http.StatusServiceUnavailable},
		{KindTimeout, services.ErrTimeout, http.StatusServiceUnavailable},
		{KindSchemaViolation, services.ErrExternalTool, http.StatusInternalServerError},
		{KindGeneric, services.ErrExternalTool, http.StatusInternalServerError},
		{KindCanceled, services.ErrCanceled, services.StatusClientClosedRequest},
	}
	for _, tc := range cases {
		err := fmt.Errorf("planner: %w", &Error{Kind: tc.kind, Op: opChat})
		if !errors.Is(err, tc.marker) {
			t.Errorf("%s: expected match against %v", tc.kind, tc.marker)
		}
		if got := services.HTTPStatus(err); got != tc.status {
			t.Errorf("%s: HTTPStatus = %d, want %d", tc.kind, got, tc.status)
		}
	}
}

func TestErrorMessageIncludesDetail(t *testing.T) {
	err := &Error{
		Kind:       KindServerError,
		Op:         opChat,
		Message:    "upstream server error",
		StatusCode: http.StatusBadGateway,
		Body:       "bad\ngateway",
	}
	msg := err.Error()
	for _, fragment := range []string{"openrouter chat", "server_error", "http 502", "bad gateway"} {
		if !strings.Contains(msg, fragment) {
			t.Errorf("expected %q in %q", fragment, msg)
		}
	}
}

func TestKindOfForeignErrors(t *testing.T) {
	if KindOf(errors.New("boom")) != KindGeneric {
		t.Fatal("expected foreign error to be generic")
	}
	if KindOf(context.Canceled) != KindCanceled {
		t.Fatal("expected context cancellation to be canceled")
	}
}
