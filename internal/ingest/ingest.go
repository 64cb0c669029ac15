// Package ingest turns receipt files into raw line items.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/Veraticus/smartspend/internal/service"
)

// Ingestor reads a receipt source and extracts raw line items. Extraction
// failures degrade to an empty result; only configuration problems and
// unreadable sources are returned as errors.
type Ingestor struct {
	ocr       service.TextExtractor
	extractor service.ItemExtractor
	logger    *slog.Logger
}

// New creates an ingestor. ocr may be nil when only text receipts are
// processed. A nil extractor falls back to the rule-based LineParser.
func New(ocr service.TextExtractor, extractor service.ItemExtractor, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	if extractor == nil {
		extractor = NewLineParser()
	}
	return &Ingestor{ocr: ocr, extractor: extractor, logger: logger}
}

// Ingest reads source and returns the valid raw items found on it.
func (i *Ingestor) Ingest(ctx context.Context, source string) ([]model.RawLineItem, error) {
	if source == "" {
		return nil, fmt.Errorf("%w: no receipt source given", common.ErrInvalidConfig)
	}

	kind := KindFromPath(source)
	if kind == KindImage && i.ocr == nil {
		return nil, common.MissingConfig("image receipts", "an OCR provider (ocr.provider)")
	}

	data, err := os.ReadFile(source) //nolint:gosec // reading the user's receipt is the point
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt %s: %w", source, err)
	}

	mime := MIMEType(source)
	if kind == KindUnknown {
		kind, mime = KindFromContent(data)
		i.logger.Debug("detected receipt kind from content", "source", source, "kind", kind, "mime", mime)
		if kind == KindImage && i.ocr == nil {
			return nil, common.MissingConfig("image receipts", "an OCR provider (ocr.provider)")
		}
	}

	var text string
	if kind == KindImage {
		text, err = i.ocr.ExtractText(ctx, data, mime)
		if errors.Is(err, common.ErrNoText) {
			i.logger.Info("no text found on receipt", "source", source)
			return []model.RawLineItem{}, nil
		}
		if err != nil {
			i.logger.Warn("text extraction failed, treating receipt as empty",
				"source", source,
				"error", err)
			return []model.RawLineItem{}, nil
		}
	} else {
		text = string(data)
	}

	if strings.TrimSpace(text) == "" {
		i.logger.Info("no text found on receipt", "source", source)
		return []model.RawLineItem{}, nil
	}

	return i.ExtractItems(ctx, text), nil
}

// ExtractItems runs structured extraction over raw receipt text and keeps
// only valid items.
func (i *Ingestor) ExtractItems(ctx context.Context, text string) []model.RawLineItem {
	items, err := i.extractor.ExtractItems(ctx, text)
	if err != nil {
		i.logger.Warn("item extraction failed, treating receipt as empty", "error", err)
		return []model.RawLineItem{}
	}

	valid := make([]model.RawLineItem, 0, len(items))
	for _, item := range items {
		if !item.Valid() {
			i.logger.Debug("dropping invalid line item",
				"name", item.Name,
				"price", item.UnitPrice.String(),
				"quantity", item.Quantity)
			continue
		}
		valid = append(valid, item)
	}

	i.logger.Info("extracted receipt items", "count", len(valid), "dropped", len(items)-len(valid))
	return valid
}
