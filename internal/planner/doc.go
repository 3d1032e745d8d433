// Package planner turns a travel note and the traveller's preferences into
// exactly three AI-generated plan proposals.
//
// It owns the prompts and the travelPlanResponse schema, resolves the budget
// (explicit request first, then the profile), and relies on the openrouter
// client for transport, retries, and schema validation.
package planner
