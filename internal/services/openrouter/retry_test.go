package openrouter

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestRetryPolicyBackoff(t *testing.T) {
	policy := DefaultRetryPolicy()
	cases := []struct {
		attempt int
		jitter  time.Duration
		want    time.Duration
	}{
		{1, 0, 2 * time.Second},
		{2, 0, 4 * time.Second},
		{2, 500 * time.Millisecond, 4500 * time.Millisecond},
		{0, 0, 2 * time.Second},
		{10, 0, 60 * time.Second},
		{10, time.Second, 60 * time.Second},
	}
	for _, tc := range cases {
		if got := policy.Backoff(tc.attempt, tc.jitter); got != tc.want {
			t.Errorf("Backoff(%d, %s) = %s, want %s", tc.attempt, tc.jitter, got, tc.want)
		}
	}
}

func TestRetryPolicyWithoutCap(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
	if got := policy.Backoff(7, 0); got != 128*time.Second {
		t.Fatalf("expected uncapped 128s, got %s", got)
	}
}

func TestRetryPolicyAttempts(t *testing.T) {
	if got := (RetryPolicy{}).attempts(); got != 1 {
		t.Fatalf("expected zero policy to allow a single attempt, got %d", got)
	}
	if got := DefaultRetryPolicy().attempts(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestDefaultJitterBounds(t *testing.T) {
	if got := defaultJitter(0); got != 0 {
		t.Fatalf("expected no jitter for zero limit, got %s", got)
	}
	for range 100 {
		got := defaultJitter(time.Second)
		if got < 0 || got > time.Second {
			t.Fatalf("jitter %s outside [0, 1s]", got)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("2"); !ok || d != 2*time.Second {
		t.Fatalf("expected 2s, got %s %v", d, ok)
	}
	if _, ok := parseRetryAfter("-1"); ok {
		t.Fatal("expected negative seconds to be rejected")
	}
	if _, ok := parseRetryAfter("soon"); ok {
		t.Fatal("expected garbage to be rejected")
	}
	if _, ok := parseRetryAfter(""); ok {
		t.Fatal("expected empty value to be rejected")
	}
	future := time.Now().Add(30 * time.Second).UTC().Format(http.TimeFormat)
	d, ok := parseRetryAfter(future)
	if !ok {
		t.Fatal("expected HTTP-date to parse")
	}
	if d <= 25*time.Second || d > 30*time.Second {
		t.Fatalf("unexpected HTTP-date delay %s", d)
	}
	past := time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)
	if _, ok := parseRetryAfter(past); ok {
		t.Fatal("expected past HTTP-date to be rejected")
	}
}

func TestSleepHonoursContext(t *testing.T) {
	client := &Client{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.sleep(ctx, time.Hour); err == nil {
		t.Fatal("expected canceled context to abort sleep")
	}
	if err := client.sleep(context.Background(), 0); err != nil {
		t.Fatalf("expected zero sleep to succeed, got %v", err)
	}
}
