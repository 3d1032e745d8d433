package logging

import (
	"context"
	"log/slog"

	"vibetravels/internal/services"
)

// Field keys shared by every component.
const (
	FieldComponent     = "component"
	FieldCorrelationID = "request_id"
	FieldModel         = "model"
	// FieldAttempt is 1-based within one call.
	FieldAttempt        = "attempt"
	FieldClassification = "classification"
	// FieldWait is the backoff before the next attempt.
	FieldWait = "wait"
	// FieldStatusCode is zero when no response was received.
	FieldStatusCode = "status_code"
	FieldEventType  = "event_type"
	FieldErrorHint  = "error_hint"
	FieldImpact     = "impact"
	// FieldAlert marks failures an operator has to fix.
	FieldAlert = "alert"
)

// ContextFields returns the logging attributes carried by ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		return []slog.Attr{slog.String(FieldCorrelationID, rid)}
	}
	return nil
}

// WithContext adds the request id from ctx, when present, to logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, len(fields))
	for i, field := range fields {
		args[i] = field
	}
	return logger.With(args...)
}
