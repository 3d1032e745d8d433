package openrouter

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxJitter = 1 * time.Second
	defaultRetryMaxDelay  = 60 * time.Second
)

// RetryPolicy bounds the attempts made for one call. It is a value type;
// the client copies it at construction and never mutates it.
type RetryPolicy struct {
	// MaxAttempts includes the first attempt. Values <= 1 disable retries.
	MaxAttempts int
	// BaseDelay is multiplied by 2^attempt, so the first retry waits 2*BaseDelay.
	BaseDelay time.Duration
	// MaxJitter bounds the random delay added to exponential backoff.
	MaxJitter time.Duration
	// MaxDelay caps every wait, including Retry-After hints. Zero disables the cap.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns three attempts with 2s/4s waits plus up to 1s jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: defaultRetryAttempts,
		BaseDelay:   defaultRetryBaseDelay,
		MaxJitter:   defaultRetryMaxJitter,
		MaxDelay:    defaultRetryMaxDelay,
	}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// Backoff returns the exponential wait before retry number attempt (1-based)
// with the supplied jitter added.
func (p RetryPolicy) Backoff(attempt int, jitter time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := p.BaseDelay
	if base < 0 {
		base = 0
	}
	delay := base
	for i := 0; i < attempt; i++ {
		if p.MaxDelay > 0 && delay > p.MaxDelay/2 {
			delay = p.MaxDelay
			break
		}
		delay *= 2
	}
	if jitter > 0 {
		delay += jitter
	}
	return p.capDelay(delay)
}

func (p RetryPolicy) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// retryDelay decides whether the failure of attempt warrants another try and
// how long to wait before it.
func (c *Client) retryDelay(ctx context.Context, failure *Error, attempt, maxAttempts int) (time.Duration, bool) {
	if failure == nil || attempt >= maxAttempts {
		return 0, false
	}
	if ctx.Err() != nil {
		return 0, false
	}
	if !failure.Retryable() {
		return 0, false
	}
	if failure.Kind == KindRateLimit && failure.HasRetryAfter {
		return c.policy.capDelay(failure.RetryAfter), true
	}
	return c.policy.Backoff(attempt, c.jitter(c.policy.MaxJitter)), true
}

func defaultJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return rand.N(limit + 1)
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// classifyTransportError maps a failed send or body read. The caller's
// context wins over everything so cancellation is never reported as a
// transport failure; a timeout is only reported while the context is live.
func classifyTransportError(ctx context.Context, op string, err error) *Error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return canceledError(op, ctxErr)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{
			Kind:    KindTimeout,
			Op:      op,
			Message: "request timed out",
			Cause:   err,
		}
	}
	return &Error{
		Kind:    KindTransport,
		Op:      op,
		Message: "request failed before a response was received",
		Cause:   err,
	}
}

func canceledError(op string, cause error) *Error {
	return &Error{
		Kind:    KindCanceled,
		Op:      op,
		Message: "call canceled",
		Cause:   cause,
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
