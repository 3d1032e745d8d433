// Package services defines shared utilities consumed by the AI client and the
// callers built on top of it.
//
// Key responsibilities:
//   - Context helpers that stamp correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper, and HTTPStatus which turns
//     a marked error into the status a user-facing handler should return.
//
// Subpackages hold the external integrations (see openrouter).
package services
