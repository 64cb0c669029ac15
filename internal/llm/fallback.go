package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/service"
)

// DefaultAttemptTimeout bounds a single call to one endpoint.
const DefaultAttemptTimeout = 30 * time.Second

// Endpoint is one entry in a FallbackClient's priority list.
type Endpoint struct {
	Client  Client
	Name    string
	Timeout time.Duration
}

// FallbackOptions configures a FallbackClient.
type FallbackOptions struct {
	Retry     service.RetryOptions
	RateLimit int
}

// FallbackClient tries endpoints in priority order. Each endpoint is retried
// according to the retry options, each attempt under the endpoint's timeout.
// When every endpoint fails the error wraps common.ErrAllEndpointsFailed.
type FallbackClient struct {
	logger      *slog.Logger
	rateLimiter *rateLimiter
	endpoints   []Endpoint
	retryOpts   service.RetryOptions
}

// NewFallbackClient creates a client over endpoints.
func NewFallbackClient(endpoints []Endpoint, opts FallbackOptions, logger *slog.Logger) (*FallbackClient, error) {
	if len(endpoints) == 0 {
		return nil, common.MissingConfig("llm", "at least one provider")
	}
	if logger == nil {
		logger = slog.Default()
	}

	eps := make([]Endpoint, len(endpoints))
	for i, ep := range endpoints {
		if ep.Client == nil {
			return nil, fmt.Errorf("%w: endpoint %d has no client", common.ErrInvalidConfig, i)
		}
		if ep.Timeout <= 0 {
			ep.Timeout = DefaultAttemptTimeout
		}
		if ep.Name == "" {
			ep.Name = fmt.Sprintf("endpoint-%d", i)
		}
		eps[i] = ep
	}

	retryOpts := opts.Retry
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 2
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}
	if retryOpts.MaxDelay == 0 {
		retryOpts.MaxDelay = 30 * time.Second
	}

	return &FallbackClient{
		endpoints:   eps,
		logger:      logger,
		retryOpts:   retryOpts,
		rateLimiter: newRateLimiter(opts.RateLimit),
	}, nil
}

// Complete implements Client.
func (f *FallbackClient) Complete(ctx context.Context, req Request) (string, error) {
	var errs []error

	for _, ep := range f.endpoints {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %w", common.ErrAllEndpointsFailed, err)
		}

		var out string
		err := common.WithRetry(ctx, func() error {
			if err := f.rateLimiter.wait(ctx); err != nil {
				return common.Permanent(err)
			}

			attemptCtx, cancel := context.WithTimeout(ctx, ep.Timeout)
			defer cancel()

			result, err := ep.Client.Complete(attemptCtx, req)
			if err != nil {
				return err
			}
			out = result
			return nil
		}, f.retryOpts)
		if err == nil {
			return out, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", ep.Name, err))
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", common.ErrAllEndpointsFailed, ctx.Err())
		}

		f.logger.Warn("LLM endpoint failed, trying next",
			"endpoint", ep.Name,
			"error", err)
	}

	return "", fmt.Errorf("%w: %w", common.ErrAllEndpointsFailed, errors.Join(errs...))
}

// Endpoints returns the endpoint names in priority order.
func (f *FallbackClient) Endpoints() []string {
	names := make([]string, len(f.endpoints))
	for i, ep := range f.endpoints {
		names[i] = ep.Name
	}
	return names
}

// Close stops the rate limiter.
func (f *FallbackClient) Close() error {
	f.rateLimiter.Close()
	return nil
}
