package planner

import (
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"vibetravels/internal/services/openrouter"
)

const dateLayout = "2006-01-02"

const systemMessage = "You are a travel planning assistant. " +
	"Your task is to generate exactly 3 distinct travel plan proposals based on the user's details. " +
	"Each proposal must be a JSON object with a \"title\" (string) and \"content\" (string, e.g., a concise day-by-day itinerary or thematic overview). " +
	"Return a JSON object whose \"items\" array holds these 3 proposal objects. Do not include any other text or explanations outside the JSON."

// ProposalSchemaName names the structured-output schema sent with every request.
const ProposalSchemaName = "travelPlanResponse"

var proposalSchema = json.RawMessage(`{"type":"object","properties":{"items":{"type":"array","minItems":3,"maxItems":3,"items":{"type":"object","required":["title","content"],"properties":{"title":{"type":"string"},"content":{"type":"string"}},"additionalProperties":false}}},"required":["items"],"additionalProperties":false}`)

var budgetPrinter = message.NewPrinter(language.English)

// ProposalSchema returns the schema the AI content must satisfy.
func ProposalSchema() *openrouter.ResponseSchema {
	return &openrouter.ResponseSchema{
		Name:   ProposalSchemaName,
		Body:   proposalSchema,
		Strict: true,
	}
}

// SystemMessage returns the fixed instructions for proposal generation.
func SystemMessage() string {
	return systemMessage
}

// UserMessage renders the traveller's note, dates, budget and preferences.
func UserMessage(note string, start, end time.Time, budget float64, currency string, prefs Preferences) string {
	var b strings.Builder
	b.WriteString("**Destination Idea & Notes:**\n")
	b.WriteString(strings.TrimSpace(note))
	b.WriteString("\n\n**Travel Dates:**\n")
	b.WriteString("Start Date: " + start.Format(dateLayout) + "\n")
	b.WriteString("End Date: " + end.Format(dateLayout) + "\n")
	b.WriteString("\n**Budget:**\n")
	b.WriteString(formatBudget(budget, currency) + "\n")
	b.WriteString("\n**User Preferences:**\n")
	if style := strings.TrimSpace(prefs.TravelStyle); style != "" {
		b.WriteString("- Travel Style: " + style + "\n")
	}
	if intensity := strings.TrimSpace(prefs.Intensity); intensity != "" {
		b.WriteString("- Intensity: " + intensity + "\n")
	}
	interests := cleanInterests(prefs.Interests)
	if len(interests) == 0 {
		b.WriteString("- Interests: Not specified\n")
	} else {
		b.WriteString("- Interests: " + strings.Join(interests, ", ") + "\n")
	}
	return b.String()
}

func formatBudget(amount float64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	return budgetPrinter.Sprintf("%.2f %s", amount, currency)
}

func cleanInterests(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
