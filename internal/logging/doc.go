// Package logging builds the slog loggers used by the CLI and the OpenRouter
// client.
//
// Two handlers are available: a console handler that prints one line per
// record with the request id and component promoted into the prefix and the
// retry fields (attempt, classification, wait, status_code) first, and the
// stdlib JSON handler with a UTC "ts" key. "auto" picks console for terminals.
package logging
