package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/model"
)

const itemSystemPrompt = "You extract line items from supermarket receipts. You MUST respond with ONLY a valid JSON array. Do not include any explanatory text, markdown formatting, or commentary before or after the JSON. Start your response directly with [ and end with ]."

// ItemExtractor implements service.ItemExtractor with an LLM.
type ItemExtractor struct {
	client Client
	logger *slog.Logger
}

// NewItemExtractor creates an extractor backed by client.
func NewItemExtractor(client Client, logger *slog.Logger) *ItemExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ItemExtractor{client: client, logger: logger}
}

// ExtractItems asks the model for the purchased items in rawText.
func (e *ItemExtractor) ExtractItems(ctx context.Context, rawText string) ([]model.RawLineItem, error) {
	if strings.TrimSpace(rawText) == "" {
		return []model.RawLineItem{}, nil
	}

	content, err := e.client.Complete(ctx, Request{
		System:    itemSystemPrompt,
		Prompt:    buildItemPrompt(rawText),
		MaxTokens: 2048,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrExtractionFailed, err)
	}

	items, err := parseItems(content)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("extracted receipt items", "count", len(items))
	return items, nil
}

func buildItemPrompt(rawText string) string {
	var b strings.Builder
	b.WriteString("Extract every purchased product from this receipt.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- name: the product text exactly as printed, without the price\n")
	b.WriteString("- price: the amount charged for the line as a number\n")
	b.WriteString("- quantity: the number of units, 1 if not printed\n")
	b.WriteString("- skip totals, subtotals, discounts summaries, payment and VAT lines\n\n")
	b.WriteString(`Respond as: [{"name": "BAP WIT", "price": 1.79, "quantity": 1}]`)
	b.WriteString("\n\nReceipt:\n")
	b.WriteString(rawText)
	return b.String()
}
