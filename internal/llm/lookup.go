package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/shopspring/decimal"
)

const lookupSystemPrompt = "You identify products from abbreviated Dutch supermarket receipt lines. You MUST respond with ONLY a valid JSON object. Start your response directly with { and end with }."

// ProductLookup implements service.ProductLookup by asking a model to expand
// receipt abbreviations. It only accepts answers in one of the known categories.
type ProductLookup struct {
	client     Client
	logger     *slog.Logger
	categories map[string]string
	names      []string
}

// NewProductLookup creates a lookup restricted to categories.
func NewProductLookup(client Client, categories []string, logger *slog.Logger) *ProductLookup {
	if logger == nil {
		logger = slog.Default()
	}
	known := make(map[string]string, len(categories))
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		if c == "" {
			continue
		}
		if _, dup := known[strings.ToLower(c)]; dup {
			continue
		}
		known[strings.ToLower(c)] = c
		names = append(names, c)
	}
	return &ProductLookup{client: client, logger: logger, categories: known, names: names}
}

type lookupResponse struct {
	Price    *float64 `json:"price"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Unknown  bool     `json:"unknown"`
	Bonus    bool     `json:"bonus"`
}

// LookupProduct implements service.ProductLookup.
func (l *ProductLookup) LookupProduct(ctx context.Context, name string) (model.Product, error) {
	if strings.TrimSpace(name) == "" || len(l.names) == 0 {
		return model.Product{}, fmt.Errorf("%w: %q", common.ErrNotFound, name)
	}

	content, err := l.client.Complete(ctx, Request{
		System:    lookupSystemPrompt,
		Prompt:    l.buildPrompt(name),
		MaxTokens: 256,
	})
	if err != nil {
		return model.Product{}, fmt.Errorf("product lookup for %q: %w", name, err)
	}

	var resp lookupResponse
	if err := json.Unmarshal([]byte(cleanMarkdownWrapper(content)), &resp); err != nil {
		return model.Product{}, fmt.Errorf("%w: %w", common.ErrMalformedResponse, err)
	}

	category, ok := l.categories[strings.ToLower(strings.TrimSpace(resp.Category))]
	if resp.Unknown || !ok {
		l.logger.Debug("model could not identify product", "name", name, "category", resp.Category)
		return model.Product{}, fmt.Errorf("%w: %q", common.ErrNotFound, name)
	}

	product := model.Product{
		Key:           name,
		Name:          strings.TrimSpace(resp.Name),
		Category:      category,
		IsPromotional: resp.Bonus,
	}
	if resp.Price != nil && *resp.Price >= 0 {
		product.Price = decimal.NewFromFloat(*resp.Price)
	}
	return product, nil
}

func (l *ProductLookup) buildPrompt(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Receipt line: %s\n\n", name)
	b.WriteString("Categories:\n")
	for _, c := range l.names {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	b.WriteString("\nIf you recognise the product, respond with ")
	b.WriteString(`{"name": "<full product name>", "category": "<one of the categories>", "price": <typical price in EUR or null>, "bonus": false}`)
	b.WriteString(". Otherwise respond with ")
	b.WriteString(`{"unknown": true}`)
	b.WriteString(".")
	return b.String()
}
