// Package main hosts the vibetravels CLI entrypoint and command graph.
//
// The Cobra-based command tree loads configuration, builds the OpenRouter
// client with its retry policy, and exposes raw chat calls, a health probe,
// and travel plan proposals. Classified client failures are reported with the
// status a user-facing service would answer with.
package main
