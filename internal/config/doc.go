// Package config loads, normalizes, and validates vibetravels configuration data.
//
// It supplies repository defaults, reads TOML files, expands user paths, and
// honours the OPENROUTER_API_KEY environment fallback. Accessors convert the
// raw sections into the settings the OpenRouter client and its retry policy
// are built from.
package config
