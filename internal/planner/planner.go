package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"vibetravels/internal/logging"
	"vibetravels/internal/services"
	"vibetravels/internal/services/openrouter"
)

// DefaultCurrency is used when a request does not name one.
const DefaultCurrency = "PLN"

// StatusGenerated marks a proposal the traveller has not accepted or rejected yet.
const StatusGenerated = "generated"

const proposalCount = 3

var (
	// ErrInvalidDateRange is returned when the end date is not after the start date.
	ErrInvalidDateRange = fmt.Errorf("%w: end date must be after start date", services.ErrValidation)
	// ErrBudgetUnavailable is returned when neither the request nor the profile carries a budget.
	ErrBudgetUnavailable = fmt.Errorf("%w: budget not provided and no profile budget set", services.ErrValidation)
	// ErrEmptyNote is returned when the note has no content to plan from.
	ErrEmptyNote = fmt.Errorf("%w: note content required", services.ErrValidation)
)

// Preferences describe how the traveller likes to travel.
type Preferences struct {
	TravelStyle string
	Intensity   string
	Interests   []string
}

// Profile is the saved traveller profile consulted when a request omits a field.
type Profile struct {
	Budget      *float64
	Preferences Preferences
}

// Request asks for proposals for one note.
type Request struct {
	Note      string
	StartDate time.Time
	EndDate   time.Time
	// Budget overrides the profile budget when non-nil.
	Budget   *float64
	Currency string
	Profile  Profile
	// Model overrides the configured model when non-empty.
	Model string
}

// Proposal is one generated plan.
type Proposal struct {
	ID        string
	Status    string
	Title     string
	Content   string
	StartDate time.Time
	EndDate   time.Time
	Budget    float64
	Currency  string
	CreatedAt time.Time
}

type proposalItem struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type proposalResponse struct {
	Items []proposalItem `json:"items"`
}

// Planner generates plan proposals through an AI completer.
type Planner struct {
	completer openrouter.Completer
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// Option customizes the planner.
type Option func(*Planner)

// WithClock overrides the clock used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) {
		if now != nil {
			p.now = now
		}
	}
}

// New constructs a planner.
func New(completer openrouter.Completer, logger *slog.Logger, opts ...Option) *Planner {
	p := &Planner{
		completer: completer,
		logger:    logging.NewComponentLogger(logger, "planner"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Propose validates req, asks the AI for exactly three proposals, and returns them.
func (p *Planner) Propose(ctx context.Context, req Request) ([]Proposal, error) {
	if strings.TrimSpace(req.Note) == "" {
		return nil, ErrEmptyNote
	}
	start := truncateDay(req.StartDate)
	end := truncateDay(req.EndDate)
	if !end.After(start) {
		return nil, ErrInvalidDateRange
	}
	budget, err := resolveBudget(req.Budget, req.Profile.Budget)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	logger := logging.WithContext(ctx, p.logger)
	userMessage := UserMessage(req.Note, start, end, budget, currency, req.Profile.Preferences)
	logger.Debug("plan proposal prompt built", logging.String("user_message", userMessage))

	resp, err := openrouter.SendChat[proposalResponse](ctx, p.completer, openrouter.ChatRequest{
		SystemMessage: SystemMessage(),
		UserMessage:   userMessage,
		Model:         req.Model,
		Schema:        ProposalSchema(),
	})
	if err != nil {
		logger.Error("plan proposal generation failed",
			logging.String(logging.FieldEventType, "plan_proposal_failed"),
			logging.String(logging.FieldClassification, openrouter.KindOf(err).String()),
			logging.Bool(logging.FieldAlert, services.IsOperatorFault(err)),
			logging.Error(err),
		)
		return nil, services.Wrap(services.ErrExternalTool, "planner", "propose", "AI service error", err)
	}
	if err := checkItems(resp.Items); err != nil {
		logging.WarnWithContext(logger, "AI returned unusable proposals", "plan_proposal_unusable",
			logging.Int("count", len(resp.Items)),
			logging.String(logging.FieldErrorHint, "retry the request or try another model"),
			logging.String(logging.FieldImpact, "no proposals returned"),
		)
		return nil, services.Wrap(services.ErrExternalTool, "planner", "propose", "AI service did not return exactly 3 valid plan proposals", err)
	}

	now := p.now().UTC()
	proposals := make([]Proposal, 0, len(resp.Items))
	for _, item := range resp.Items {
		proposals = append(proposals, Proposal{
			ID:        p.newID(),
			Status:    StatusGenerated,
			Title:     strings.TrimSpace(item.Title),
			Content:   strings.TrimSpace(item.Content),
			StartDate: start,
			EndDate:   end,
			Budget:    budget,
			Currency:  currency,
			CreatedAt: now,
		})
	}
	logger.Info("plan proposals generated", logging.Int("count", len(proposals)))
	return proposals, nil
}

func resolveBudget(explicit, profile *float64) (float64, error) {
	var budget float64
	switch {
	case explicit != nil:
		budget = *explicit
	case profile != nil:
		budget = *profile
	default:
		return 0, ErrBudgetUnavailable
	}
	if budget < 0 {
		return 0, fmt.Errorf("%w: budget must not be negative", services.ErrValidation)
	}
	return budget, nil
}

func checkItems(items []proposalItem) error {
	if len(items) != proposalCount {
		return fmt.Errorf("expected %d proposals, got %d", proposalCount, len(items))
	}
	var errs []error
	for i, item := range items {
		if strings.TrimSpace(item.Title) == "" {
			errs = append(errs, fmt.Errorf("proposal %d: empty title", i+1))
		}
		if strings.TrimSpace(item.Content) == "" {
			errs = append(errs, fmt.Errorf("proposal %d: empty content", i+1))
		}
	}
	return errors.Join(errs...)
}

// ParseDate parses a YYYY-MM-DD travel date.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q (want YYYY-MM-DD)", services.ErrValidation, value)
	}
	return parsed, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
