package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/smartspend/internal/budget"
	"github.com/Veraticus/smartspend/internal/catalogue"
	"github.com/Veraticus/smartspend/internal/config"
	"github.com/Veraticus/smartspend/internal/events"
	"github.com/Veraticus/smartspend/internal/finance"
	"github.com/Veraticus/smartspend/internal/ingest"
	"github.com/Veraticus/smartspend/internal/ledger"
	"github.com/Veraticus/smartspend/internal/llm"
	"github.com/Veraticus/smartspend/internal/ocr"
	"github.com/Veraticus/smartspend/internal/pipeline"
	"github.com/Veraticus/smartspend/internal/resolver"
	"github.com/Veraticus/smartspend/internal/service"
	"github.com/Veraticus/smartspend/internal/storage"
	"github.com/Veraticus/smartspend/internal/summary"
)

// app is the fully wired application for one command invocation.
type app struct {
	cfg        *config.Config
	store      storage.Storage
	ledger     *ledger.Ledger
	policy     *budget.Policy
	catalogue  *catalogue.Catalogue
	lookup     service.ProductLookup
	controller *pipeline.Controller
	closers    []func() error
}

// Close releases every resource in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openStore opens and migrates the configured storage.
func openStore(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return store, nil
}

// newPolicy merges built-in, configured, and stored limits, in that order.
func newPolicy(ctx context.Context, cfg *config.Config, budgets service.BudgetStore) (*budget.Policy, error) {
	limits := budget.DefaultLimits()
	for category, limit := range cfg.Budgets {
		limits[category] = limit
	}
	if budgets != nil {
		stored, err := budgets.Budgets(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load stored budgets: %w", err)
		}
		for category, limit := range stored {
			limits[category] = limit
		}
	}

	policy, err := budget.NewPolicy(limits)
	if err != nil {
		return nil, err
	}
	if err := policy.WithDefaultLimit(cfg.DefaultLimit); err != nil {
		return nil, err
	}
	return policy, nil
}

func loadCatalogue(cfg *config.Config) (*catalogue.Catalogue, error) {
	if cfg.Catalogue.Path == "" {
		return catalogue.Default(), nil
	}
	c, err := catalogue.LoadFile(cfg.Catalogue.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalogue: %w", err)
	}
	return c, nil
}

// wireMode selects which remote collaborators buildApp connects.
type wireMode int

const (
	// wireFull connects LLM, OCR, and alert publishers when configured.
	wireFull wireMode = iota
	// wireLocal uses storage and the catalogue only. Commands that never
	// run the pipeline use it to avoid dialing brokers.
	wireLocal
)

// buildApp wires storage, collaborators, and the pipeline controller.
func buildApp(ctx context.Context, cfg *config.Config, mode wireMode) (*app, error) {
	logger := slog.Default()
	a := &app{cfg: cfg}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	fail := func(err error) (*app, error) {
		_ = a.Close()
		return nil, err
	}

	a.ledger = ledger.New(store, logger)
	if a.policy, err = newPolicy(ctx, cfg, store); err != nil {
		return fail(err)
	}
	if a.catalogue, err = loadCatalogue(cfg); err != nil {
		return fail(err)
	}

	var completion llm.Client
	if mode == wireFull && cfg.LLM.Enabled() {
		fallback, llmErr := llm.NewFallbackFromConfigs(cfg.LLM.Endpoints, llm.FallbackOptions{
			Retry:     cfg.LLM.Retry,
			RateLimit: cfg.LLM.RateLimit,
		}, logger)
		if llmErr != nil {
			return fail(fmt.Errorf("failed to configure LLM: %w", llmErr))
		}
		completion = fallback
		a.closers = append(a.closers, fallback.Close)
	}

	a.lookup = a.catalogue
	if completion != nil && cfg.Catalogue.LLMFallback {
		cached := catalogue.NewCached(llm.NewProductLookup(completion, a.policy.Categories(), logger), cfg.Catalogue.CacheTTL)
		a.closers = append(a.closers, cached.Close)
		a.lookup = catalogue.NewChain(logger, a.catalogue, cached)
	}

	var extractor service.ItemExtractor
	if completion != nil {
		extractor = llm.NewItemExtractor(completion, logger)
	} else {
		extractor = ingest.NewLineParser()
	}

	var textExtractor service.TextExtractor
	if mode == wireFull {
		if textExtractor, err = newTextExtractor(ctx, cfg, completion, logger); err != nil {
			return fail(err)
		}
	}

	var narrator service.Narrator
	if completion != nil && cfg.LLM.Narrative {
		narrator = llm.NewNarrator(completion)
	}

	var publisher service.AlertPublisher
	if mode == wireFull {
		if publisher, err = events.New(cfg.Events, logger); err != nil {
			return fail(fmt.Errorf("failed to connect alert publisher: %w", err))
		}
		if publisher != nil {
			a.closers = append(a.closers, publisher.Close)
		}
	}

	a.controller, err = pipeline.New(pipeline.Deps{
		Ingestor:  ingest.New(textExtractor, extractor, logger),
		Resolver:  resolver.New(a.lookup, logger),
		Builder:   finance.NewBuilder(a.ledger, a.policy),
		Composer:  summary.NewComposer(narrator, logger),
		Ledger:    a.ledger,
		Policy:    a.policy,
		Budgets:   store,
		Publisher: publisher,
		Logger:    logger,
	})
	if err != nil {
		return fail(err)
	}
	return a, nil
}

// newTextExtractor prefers Cloud Vision OCR, then a multimodal LLM. It
// returns a nil interface when neither is configured.
func newTextExtractor(ctx context.Context, cfg *config.Config, completion llm.Client, logger *slog.Logger) (service.TextExtractor, error) {
	if cfg.OCR.APIKey != "" {
		client, err := ocr.New(ctx, cfg.OCR, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to configure OCR: %w", err)
		}
		return client, nil
	}
	if completion != nil && cfg.LLM.Vision {
		return llm.NewVisionExtractor(completion), nil
	}
	return nil, nil
}
