package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/smartspend/internal/model"
	"github.com/shopspring/decimal"
)

const narratorSystemPrompt = "You are a friendly personal finance assistant. Write plain text without markdown headings."

// Narrator implements service.Narrator.
type Narrator struct {
	client Client
}

// NewNarrator creates a narrator backed by client.
func NewNarrator(client Client) *Narrator {
	return &Narrator{client: client}
}

// ComposeNarrative returns a short paragraph describing the snapshot.
func (n *Narrator) ComposeNarrative(ctx context.Context, snapshot *model.FinancialSnapshot) (string, error) {
	if snapshot == nil {
		return "", fmt.Errorf("no snapshot to describe")
	}

	content, err := n.client.Complete(ctx, Request{
		System:    narratorSystemPrompt,
		Prompt:    buildNarrativePrompt(snapshot),
		MaxTokens: 400,
	})
	if err != nil {
		return "", fmt.Errorf("failed to compose narrative: %w", err)
	}

	text := strings.TrimSpace(content)
	if text == "" {
		return "", fmt.Errorf("empty narrative")
	}
	return text, nil
}

func buildNarrativePrompt(s *model.FinancialSnapshot) string {
	var b strings.Builder
	b.WriteString("Analyze the following spending data and provide a helpful summary for the user in at most three sentences.\n\n")
	fmt.Fprintf(&b, "Spent on this receipt: %s\n", model.FormatEuro(s.TotalSpend))
	b.WriteString("Cumulative spend by category:\n")
	s.CategoryTotals.Each(func(category string, amount decimal.Decimal) {
		fmt.Fprintf(&b, "- %s: %s\n", category, model.FormatEuro(amount))
	})
	if len(s.Alerts) > 0 {
		b.WriteString("Budget alerts:\n")
		for _, a := range s.Alerts {
			fmt.Fprintf(&b, "- %s\n", a.Message)
		}
	}
	return b.String()
}
