package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vibetravels/internal/config"
	"vibetravels/internal/planner"
)

var labelCaser = cases.Title(language.Und)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Travel plan tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newPlanProposeCommand(ctx))
	return cmd
}

type planProposeFlags struct {
	note          string
	noteFile      string
	start         string
	end           string
	budget        float64
	profileBudget float64
	currency      string
	style         string
	intensity     string
	interests     []string
	model         string
	asJSON        bool
}

func newPlanProposeCommand(ctx *commandContext) *cobra.Command {
	var flags planProposeFlags

	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Generate three travel plan proposals from a note",
		Long: `Generate exactly three travel plan proposals for a note.

The budget comes from --budget when given, otherwise from --profile-budget.
Dates use YYYY-MM-DD and the end date must be after the start date.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(cmd)
			if err != nil {
				return err
			}
			client, logger, err := ctx.openRouterClient()
			if err != nil {
				return err
			}
			proposals, err := planner.New(client, logger).Propose(cmd.Context(), req)
			if err != nil {
				return err
			}
			if flags.asJSON {
				return writeJSON(cmd, proposalsJSON(proposals))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderProposals(proposals))
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.note, "note", "", "Note content describing the trip idea")
	cmd.Flags().StringVar(&flags.noteFile, "note-file", "", "Read note content from a file")
	cmd.Flags().StringVar(&flags.start, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.end, "end", "", "End date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&flags.budget, "budget", 0, "Budget for this trip")
	cmd.Flags().Float64Var(&flags.profileBudget, "profile-budget", 0, "Default budget from the traveller profile")
	cmd.Flags().StringVar(&flags.currency, "currency", planner.DefaultCurrency, "Budget currency code")
	cmd.Flags().StringVar(&flags.style, "style", "", "Travel style (e.g. comfort, backpacking)")
	cmd.Flags().StringVar(&flags.intensity, "intensity", "", "Trip intensity (e.g. relaxed, intense)")
	cmd.Flags().StringSliceVar(&flags.interests, "interest", nil, "Interest (repeatable or comma separated)")
	cmd.Flags().StringVarP(&flags.model, "model", "m", "", "Model override (defaults to openrouter.model)")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "Print proposals as JSON")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	cmd.MarkFlagsMutuallyExclusive("note", "note-file")
	return cmd
}

func (f planProposeFlags) request(cmd *cobra.Command) (planner.Request, error) {
	note := f.note
	if strings.TrimSpace(f.noteFile) != "" {
		path, err := config.ExpandPath(strings.TrimSpace(f.noteFile))
		if err != nil {
			return planner.Request{}, fmt.Errorf("resolve note path: %w", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return planner.Request{}, fmt.Errorf("read note: %w", err)
		}
		note = string(data)
	}
	if strings.TrimSpace(note) == "" {
		return planner.Request{}, errors.New("a note is required (use --note or --note-file)")
	}
	start, err := planner.ParseDate(f.start)
	if err != nil {
		return planner.Request{}, err
	}
	end, err := planner.ParseDate(f.end)
	if err != nil {
		return planner.Request{}, err
	}

	req := planner.Request{
		Note:      note,
		StartDate: start,
		EndDate:   end,
		Currency:  f.currency,
		Model:     f.model,
		Profile: planner.Profile{
			Preferences: planner.Preferences{
				TravelStyle: labelCaser.String(strings.TrimSpace(f.style)),
				Intensity:   labelCaser.String(strings.TrimSpace(f.intensity)),
				Interests:   titleAll(f.interests),
			},
		},
	}
	if cmd.Flags().Changed("budget") {
		budget := f.budget
		req.Budget = &budget
	}
	if cmd.Flags().Changed("profile-budget") {
		budget := f.profileBudget
		req.Profile.Budget = &budget
	}
	return req, nil
}

func titleAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, labelCaser.String(v))
		}
	}
	return out
}

func renderProposals(proposals []planner.Proposal) string {
	rows := make([][]string, 0, len(proposals))
	for i, p := range proposals {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			p.Title,
			p.Content,
			labelCaser.String(p.Status),
		})
	}
	var b strings.Builder
	if len(proposals) > 0 {
		first := proposals[0]
		fmt.Fprintf(&b, "%s to %s, budget %.2f %s\n",
			first.StartDate.Format("2006-01-02"),
			first.EndDate.Format("2006-01-02"),
			first.Budget,
			first.Currency,
		)
	}
	b.WriteString(renderTable(
		[]string{"#", "Title", "Proposal", "Status"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignWrap, alignLeft},
	))
	return b.String()
}

type proposalOutput struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Budget    float64 `json:"budget"`
	Currency  string  `json:"currency"`
	CreatedAt string  `json:"created_at"`
}

func proposalsJSON(proposals []planner.Proposal) []proposalOutput {
	out := make([]proposalOutput, 0, len(proposals))
	for _, p := range proposals {
		out = append(out, proposalOutput{
			ID:        p.ID,
			Status:    p.Status,
			Title:     p.Title,
			Content:   p.Content,
			StartDate: p.StartDate.Format("2006-01-02"),
			EndDate:   p.EndDate.Format("2006-01-02"),
			Budget:    p.Budget,
			Currency:  p.Currency,
			CreatedAt: p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
