package planner_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"vibetravels/internal/planner"
	"vibetravels/internal/services"
	"vibetravels/internal/services/openrouter"
)

type fakeCompleter struct {
	content string
	err     error
	calls   int
	last    openrouter.ChatRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req openrouter.ChatRequest) (string, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

const threeProposals = `{"items":[{"title":"Coastal Lisbon","content":"Day 1: Belem"},{"title":"Food Lisbon","content":"Day 1: Time Out Market"},{"title":"Hills Lisbon","content":"Day 1: Alfama"}]}`

func floatPtr(v float64) *float64 { return &v }

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := planner.ParseDate(value)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", value, err)
	}
	return parsed
}

func baseRequest(t *testing.T) planner.Request {
	return planner.Request{
		Note:      "Lisbon in spring, tram 28, pastel de nata",
		StartDate: mustDate(t, "2026-04-10"),
		EndDate:   mustDate(t, "2026-04-13"),
		Budget:    floatPtr(1500),
		Profile: planner.Profile{
			Preferences: planner.Preferences{
				TravelStyle: "Comfort",
				Intensity:   "Relaxed",
				Interests:   []string{"Food", " ", "History"},
			},
		},
	}
}

func TestProposeReturnsThreeProposals(t *testing.T) {
	fake := &fakeCompleter{content: threeProposals}
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := planner.New(fake, nil, planner.WithClock(func() time.Time { return fixed }))

	proposals, err := p.Propose(context.Background(), baseRequest(t))
	if err != nil {
		t.Fatalf("Propose returned error: %v", err)
	}
	if len(proposals) != 3 {
		t.Fatalf("expected 3 proposals, got %d", len(proposals))
	}
	seen := map[string]bool{}
	for _, proposal := range proposals {
		if proposal.Status != planner.StatusGenerated {
			t.Fatalf("unexpected status %q", proposal.Status)
		}
		if proposal.Budget != 1500 || proposal.Currency != planner.DefaultCurrency {
			t.Fatalf("unexpected budget %v %s", proposal.Budget, proposal.Currency)
		}
		if !proposal.CreatedAt.Equal(fixed) {
			t.Fatalf("unexpected created at %s", proposal.CreatedAt)
		}
		if proposal.ID == "" || seen[proposal.ID] {
			t.Fatalf("expected unique ids, got %q", proposal.ID)
		}
		seen[proposal.ID] = true
	}
	if proposals[2].Title != "Hills Lisbon" {
		t.Fatalf("expected proposals in model order, got %q", proposals[2].Title)
	}

	if fake.last.Schema == nil || fake.last.Schema.Name != planner.ProposalSchemaName {
		t.Fatalf("expected proposal schema on request, got %+v", fake.last.Schema)
	}
	if fake.last.SystemMessage != planner.SystemMessage() {
		t.Fatal("expected fixed system message")
	}
	for _, fragment := range []string{"tram 28", "Start Date: 2026-04-10", "End Date: 2026-04-13", "PLN", "- Travel Style: Comfort", "- Intensity: Relaxed", "- Interests: Food, History"} {
		if !strings.Contains(fake.last.UserMessage, fragment) {
			t.Fatalf("expected %q in user message:\n%s", fragment, fake.last.UserMessage)
		}
	}
}

func TestProposeUsesProfileBudget(t *testing.T) {
	fake := &fakeCompleter{content: threeProposals}
	p := planner.New(fake, nil)
	req := baseRequest(t)
	req.Budget = nil
	req.Profile.Budget = floatPtr(900)
	req.Currency = "eur"

	proposals, err := p.Propose(context.Background(), req)
	if err != nil {
		t.Fatalf("Propose returned error: %v", err)
	}
	if proposals[0].Budget != 900 || proposals[0].Currency != "EUR" {
		t.Fatalf("expected profile budget in EUR, got %v %s", proposals[0].Budget, proposals[0].Currency)
	}
}

func TestProposeValidatesBeforeCallingAI(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*planner.Request)
		want   error
	}{
		{"missing budget", func(r *planner.Request) { r.Budget = nil }, planner.ErrBudgetUnavailable},
		{"same day", func(r *planner.Request) { r.EndDate = r.StartDate }, planner.ErrInvalidDateRange},
		{"reversed", func(r *planner.Request) { r.StartDate, r.EndDate = r.EndDate, r.StartDate }, planner.ErrInvalidDateRange},
		{"empty note", func(r *planner.Request) { r.Note = "  " }, planner.ErrEmptyNote},
		{"negative budget", func(r *planner.Request) { r.Budget = floatPtr(-1) }, services.ErrValidation},
	}
	for _, tc := range cases {
		fake := &fakeCompleter{content: threeProposals}
		req := baseRequest(t)
		tc.mutate(&req)
		_, err := planner.New(fake, nil).Propose(context.Background(), req)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if services.HTTPStatus(err) != http.StatusBadRequest {
			t.Errorf("%s: expected 400 mapping, got %d", tc.name, services.HTTPStatus(err))
		}
		if fake.calls != 0 {
			t.Errorf("%s: expected no AI call, got %d", tc.name, fake.calls)
		}
	}
}

func TestProposeRejectsWrongProposalCount(t *testing.T) {
	fake := &fakeCompleter{content: `{"items":[{"title":"Only","content":"one"}]}`}
	_, err := planner.New(fake, nil).Propose(context.Background(), baseRequest(t))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if services.HTTPStatus(err) != http.StatusInternalServerError {
		t.Fatalf("expected 500 mapping, got %d", services.HTTPStatus(err))
	}
}

func TestProposeRejectsBlankProposal(t *testing.T) {
	fake := &fakeCompleter{content: `{"items":[{"title":"A","content":"a"},{"title":" ","content":"b"},{"title":"C","content":"c"}]}`}
	_, err := planner.New(fake, nil).Propose(context.Background(), baseRequest(t))
	if err == nil || !strings.Contains(err.Error(), "proposal 2: empty title") {
		t.Fatalf("expected blank title error, got %v", err)
	}
}

func TestProposePreservesClassification(t *testing.T) {
	cases := []struct {
		kind   openrouter.Kind
		status int
	}{
		{openrouter.KindServerError, http.StatusServiceUnavailable},
		{openrouter.KindTimeout, http.StatusServiceUnavailable},
		{openrouter.KindSchemaViolation, http.StatusInternalServerError},
		{openrouter.KindAuth, http.StatusInternalServerError},
		{openrouter.KindCanceled, services.StatusClientClosedRequest},
	}
	for _, tc := range cases {
		fake := &fakeCompleter{err: &openrouter.Error{Kind: tc.kind, Op: "openrouter chat"}}
		_, err := planner.New(fake, nil).Propose(context.Background(), baseRequest(t))
		if openrouter.KindOf(err) != tc.kind {
			t.Errorf("%s: expected classification to survive wrapping, got %v", tc.kind, err)
		}
		if got := services.HTTPStatus(err); got != tc.status {
			t.Errorf("%s: HTTPStatus = %d, want %d", tc.kind, got, tc.status)
		}
	}
}

func TestUserMessageWithoutInterests(t *testing.T) {
	msg := planner.UserMessage("Kyoto", mustDate(t, "2026-11-01"), mustDate(t, "2026-11-05"), 1234.5, "jpy", planner.Preferences{})
	if !strings.Contains(msg, "- Interests: Not specified") {
		t.Fatalf("expected interests placeholder, got:\n%s", msg)
	}
	if strings.Contains(msg, "Travel Style") {
		t.Fatalf("expected travel style to be omitted, got:\n%s", msg)
	}
	if !strings.Contains(msg, "JPY") {
		t.Fatalf("expected currency code, got:\n%s", msg)
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	if _, err := planner.ParseDate("10/04/2026"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
