package main

import (
	"fmt"

	"vibetravels/internal/services"
	"vibetravels/internal/services/openrouter"
)

// failureHint describes a classified client failure the way a user-facing
// service would report it. Unclassified errors produce no hint.
func failureHint(err error) string {
	ce, ok := openrouter.AsError(err)
	if !ok {
		return ""
	}
	hint := fmt.Sprintf("classification: %s (service status %d)", ce.Kind, services.HTTPStatus(err))
	if services.IsOperatorFault(err) {
		hint += "; operator action required: check openrouter.api_key"
	}
	if len(ce.Violations) > 0 {
		hint += fmt.Sprintf("; %d schema violation(s)", len(ce.Violations))
	}
	return hint
}
