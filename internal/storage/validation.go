// Package storage persists the transaction log and budget limits.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/smartspend/internal/model"
	"github.com/shopspring/decimal"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrInvalidItem   = errors.New("invalid line item")
	ErrInvalidBudget = errors.New("invalid budget")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateItems validates a batch of resolved items before it is appended.
func validateItems(items []model.ResolvedLineItem) error {
	if items == nil {
		return fmt.Errorf("%w: items", ErrNilParameter)
	}
	for i := range items {
		if err := validateItem(&items[i]); err != nil {
			return fmt.Errorf("item at index %d: %w", i, err)
		}
	}
	return nil
}

func validateItem(item *model.ResolvedLineItem) error {
	if item.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidItem)
	}
	if item.Category == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidItem)
	}
	if item.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: negative price for %s", ErrInvalidItem, item.Name)
	}
	if item.Quantity < 1 {
		return fmt.Errorf("%w: quantity %d for %s", ErrInvalidItem, item.Quantity, item.Name)
	}
	return nil
}

func validateBudget(category string, limit decimal.Decimal) error {
	if err := validateString(category, "category"); err != nil {
		return err
	}
	if limit.IsNegative() {
		return fmt.Errorf("%w: negative limit for %s", ErrInvalidBudget, category)
	}
	return nil
}
