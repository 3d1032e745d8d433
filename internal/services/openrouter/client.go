package openrouter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"vibetravels/internal/logging"
	"vibetravels/internal/services"
)

const (
	// DefaultBaseURL is the OpenRouter API root.
	DefaultBaseURL         = "https://openrouter.ai/api/v1"
	chatCompletionsPath    = "chat/completions"
	defaultHTTPTimeout     = 60 * time.Second
	opChat                 = "openrouter chat"
	opHealth               = "openrouter health"
	eventAttemptFailed     = "openrouter_attempt_failed"
	eventResponseUnusable  = "openrouter_response_unusable"
	eventRetriesExhausted  = "openrouter_retries_exhausted"
	hintCheckUpstream      = "check OpenRouter status and the configured model"
	hintCheckAPIKey        = "check openrouter.api_key or OPENROUTER_API_KEY"
	hintCheckSchemaContent = "inspect the logged content against the response schema"
)

// Config captures the runtime settings required to talk to OpenRouter.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Referer         string
	Title           string
	TimeoutSeconds  int
	DefaultSampling *SamplingParameters
}

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client wraps the OpenRouter chat completion API with classification and
// retries. It holds no per-call state and is safe for concurrent use when its
// Doer is.
type Client struct {
	cfg      Config
	endpoint string
	doer     Doer
	timeout  time.Duration
	policy   RetryPolicy
	logger   *slog.Logger
	sleeper  func(time.Duration)
	jitter   func(time.Duration) time.Duration
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.doer = client
			c.timeout = client.Timeout
		}
	}
}

// WithDoer swaps the transport for any request sender.
func WithDoer(doer Doer) Option {
	return func(c *Client) {
		if doer != nil {
			c.doer = doer
		}
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// WithLogger sets the logger used for attempt and retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSleeper overrides how retry waits are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithJitter overrides the jitter source; it receives the policy's MaxJitter.
func WithJitter(jitter func(time.Duration) time.Duration) Option {
	return func(c *Client) {
		if jitter != nil {
			c.jitter = jitter
		}
	}
}

// NewClient constructs a client. BaseURL and APIKey are required.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: openrouter base url required", services.ErrConfiguration)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openrouter api key required", services.ErrConfiguration)
	}
	endpoint, err := chatEndpoint(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: openrouter base url: %w", services.ErrConfiguration, err)
	}
	if cfg.DefaultSampling != nil {
		sampling := *cfg.DefaultSampling
		cfg.DefaultSampling = &sampling
	}

	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:      cfg,
		endpoint: endpoint,
		doer:     &http.Client{Timeout: timeout},
		timeout:  timeout,
		policy:   DefaultRetryPolicy(),
		jitter:   defaultJitter,
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "openrouter")
	return client, nil
}

func chatEndpoint(base string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("%q is not an absolute url", base)
	}
	if strings.HasSuffix(strings.TrimRight(parsed.Path, "/"), "/"+chatCompletionsPath) {
		return parsed.String(), nil
	}
	return url.JoinPath(base, chatCompletionsPath)
}

// Completer returns the validated AI content for a chat request.
type Completer interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// SendChat runs req through c and decodes the AI-generated content into T.
// Every failure is an *Error carrying its classification.
func SendChat[T any](ctx context.Context, c Completer, req ChatRequest) (T, error) {
	var zero T
	content, err := c.Complete(ctx, req)
	if err != nil {
		return zero, err
	}
	out, decodeErr := decodeStage[T](opChat, content)
	if decodeErr != nil {
		if client, ok := c.(*Client); ok {
			client.logUnusable(ctx, decodeErr)
		}
		return zero, decodeErr
	}
	return out, nil
}

// Complete builds, sends (with retries), and validates a chat request and
// returns the AI-generated content string. When req carries a schema the
// content has already been validated against it.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	return c.complete(ctx, opChat, req)
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	content, err := c.complete(ctx, opHealth, ChatRequest{
		SystemMessage: "You must respond with JSON only.",
		UserMessage:   `Respond with {"ok":true}`,
		Sampling:      &SamplingParameters{Temperature: 0},
	})
	if err != nil {
		return err
	}
	parsed, decodeErr := decodeStage[struct {
		OK bool `json:"ok"`
	}](opHealth, content)
	if decodeErr != nil {
		return decodeErr
	}
	if !parsed.OK {
		return &Error{Kind: KindGeneric, Op: opHealth, Message: "unexpected response", Content: content}
	}
	return nil
}

func (c *Client) complete(ctx context.Context, op string, req ChatRequest) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	built, err := BuildRequestBody(req, c.cfg.Model, c.cfg.DefaultSampling)
	if err != nil {
		return "", err
	}

	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
		ctx = services.WithRequestID(ctx, requestID)
	}
	logger := logging.WithContext(ctx, c.logger).With(logging.String(logging.FieldModel, built.Model))
	logger.Debug("chat request built",
		logging.Int("body_bytes", len(built.Body)),
		logging.Bool("schema", req.Schema != nil),
	)

	resp, failure := c.execute(ctx, op, built, logger)
	if failure != nil {
		return "", failure
	}

	content, failure := extractContent(op, resp)
	if failure == nil {
		content = stripCodeFenceBlock(content)
		failure = validateStage(op, req.Schema, content)
	}
	if failure != nil {
		logUnusable(logger, failure)
		return "", failure
	}
	if req.Schema != nil {
		logger.Debug("content matched response schema", logging.String("schema_name", schemaName(req.Schema)))
	}
	return content, nil
}

// execute is the retry executor: strictly sequential attempts, each one
// classified, with waits between them driven by the retry policy.
func (c *Client) execute(ctx context.Context, op string, built BuiltRequest, logger *slog.Logger) (transportResponse, *Error) {
	maxAttempts := c.policy.attempts()
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return transportResponse{}, canceledError(op, err)
		}
		started := time.Now()
		resp, failure := c.sendOnce(ctx, op, built)
		if failure == nil {
			failure = checkStatus(op, resp)
		}
		if failure == nil {
			logger.Info("chat completion received",
				logging.Int(logging.FieldAttempt, attempt),
				logging.Int(logging.FieldStatusCode, resp.StatusCode),
				logging.Duration("latency", time.Since(started)),
			)
			return resp, nil
		}
		if failure.Kind == KindCanceled {
			logger.Info("chat completion canceled", logging.Int(logging.FieldAttempt, attempt))
			return transportResponse{}, failure
		}

		delay, retry := c.retryDelay(ctx, failure, attempt, maxAttempts)
		attrs := []logging.Attr{
			logging.Int(logging.FieldAttempt, attempt),
			logging.Int("max_attempts", maxAttempts),
			logging.String(logging.FieldClassification, failure.Kind.String()),
			logging.Int(logging.FieldStatusCode, failure.StatusCode),
			logging.Duration(logging.FieldWait, delay),
			logging.Bool("retry", retry),
			logging.Error(failure),
		}
		if !retry {
			msg := "chat attempt failed; not retrying"
			if failure.Retryable() {
				msg = "chat attempts exhausted"
				attrs = append(attrs, logging.String(logging.FieldEventType, eventRetriesExhausted))
			}
			logging.ErrorWithContext(logger, msg, eventAttemptFailed, append(attrs, logging.String(logging.FieldErrorHint, hintFor(failure.Kind)))...)
			return transportResponse{}, failure
		}
		logging.WarnWithContext(logger, "chat attempt failed; retrying", eventAttemptFailed,
			append(attrs,
				logging.String(logging.FieldErrorHint, hintFor(failure.Kind)),
				logging.String(logging.FieldImpact, "call delayed by backoff"),
			)...,
		)
		if err := c.sleep(ctx, delay); err != nil {
			logger.Info("chat completion canceled during backoff", logging.Int(logging.FieldAttempt, attempt))
			return transportResponse{}, canceledError(op, err)
		}
	}
}

func (c *Client) sendOnce(ctx context.Context, op string, built BuiltRequest) (transportResponse, *Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(built.Body))
	if err != nil {
		return transportResponse{}, &Error{Kind: KindTransport, Op: op, Message: "new request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", built.ContentType)
	req.Header.Set("Accept", contentTypeJSON)
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
		req.Header.Set("Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}
	resp, err := c.doer.Do(req)
	if err != nil {
		return transportResponse{}, classifyTransportError(ctx, op, fmt.Errorf("http error (timeout=%s): %w", c.timeout, err))
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		failure := classifyTransportError(ctx, op, fmt.Errorf("read body (timeout=%s): %w", c.timeout, err))
		failure.StatusCode = resp.StatusCode
		return transportResponse{}, failure
	}
	return transportResponse{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header,
	}, nil
}

func (c *Client) logUnusable(ctx context.Context, failure *Error) {
	logUnusable(logging.WithContext(ctx, c.logger), failure)
}

func logUnusable(logger *slog.Logger, failure *Error) {
	attrs := []logging.Attr{
		logging.String(logging.FieldClassification, failure.Kind.String()),
		logging.Int(logging.FieldStatusCode, failure.StatusCode),
		logging.String(logging.FieldErrorHint, hintFor(failure.Kind)),
		logging.Error(failure),
	}
	if failure.Content != "" {
		attrs = append(attrs, logging.String("content_snippet", summarizePayloadSnippet(failure.Content)))
	} else if failure.Body != "" {
		attrs = append(attrs, logging.String("response_snippet", summarizePayloadSnippet(failure.Body)))
	}
	logging.ErrorWithContext(logger, "chat response unusable", eventResponseUnusable, attrs...)
}

func hintFor(kind Kind) string {
	switch kind {
	case KindAuth:
		return hintCheckAPIKey
	case KindSchemaViolation:
		return hintCheckSchemaContent
	default:
		return hintCheckUpstream
	}
}
