// Package resolver enriches raw receipt items with catalogue metadata.
package resolver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/Veraticus/smartspend/internal/service"
)

// Resolver maps raw items to resolved items. It never fails: any lookup
// error or miss produces the Uncategorized fallback for that item.
type Resolver struct {
	lookup service.ProductLookup
	logger *slog.Logger
}

// New creates a resolver. A nil lookup resolves every item to the fallback.
func New(lookup service.ProductLookup, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{lookup: lookup, logger: logger}
}

// Resolve returns one resolved item per raw item, in input order.
func (r *Resolver) Resolve(ctx context.Context, raw []model.RawLineItem) []model.ResolvedLineItem {
	resolved := make([]model.ResolvedLineItem, 0, len(raw))
	misses := 0

	for _, item := range raw {
		out, ok := r.resolveOne(ctx, item)
		if !ok {
			misses++
		}
		resolved = append(resolved, out)
	}

	if len(raw) > 0 {
		r.logger.Debug("resolved receipt items",
			"items", len(raw),
			"matched", len(raw)-misses,
			"fallback", misses)
	}
	return resolved
}

func (r *Resolver) resolveOne(ctx context.Context, item model.RawLineItem) (model.ResolvedLineItem, bool) {
	if r.lookup == nil {
		return model.Unresolved(item), false
	}

	product, err := r.lookup.LookupProduct(ctx, item.Name)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			r.logger.Warn("catalogue lookup failed, using fallback",
				"name", item.Name,
				"error", err)
		}
		return model.Unresolved(item), false
	}
	return model.Resolved(item, product), true
}
