package catalogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/Veraticus/smartspend/internal/service"
)

// Chain tries each lookup in order and returns the first match.
type Chain struct {
	logger  *slog.Logger
	lookups []service.ProductLookup
}

// NewChain creates a chain over lookups. Nil entries are skipped.
func NewChain(logger *slog.Logger, lookups ...service.ProductLookup) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chain{logger: logger}
	for _, l := range lookups {
		if l != nil {
			c.lookups = append(c.lookups, l)
		}
	}
	return c
}

// LookupProduct implements service.ProductLookup. A lookup that fails with an
// error other than ErrNotFound is logged and skipped.
func (c *Chain) LookupProduct(ctx context.Context, name string) (model.Product, error) {
	var lastErr error
	for i, lookup := range c.lookups {
		product, err := lookup.LookupProduct(ctx, name)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			c.logger.Warn("product lookup failed",
				"lookup", i,
				"name", name,
				"error", err)
			lastErr = err
		}
	}
	if lastErr != nil {
		return model.Product{}, fmt.Errorf("%w: %q (last error: %v)", common.ErrNotFound, name, lastErr)
	}
	return model.Product{}, fmt.Errorf("%w: %q", common.ErrNotFound, name)
}
