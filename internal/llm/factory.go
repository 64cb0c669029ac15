package llm

import (
	"fmt"
	"log/slog"
	"strings"
)

// NewClient creates a provider client from configuration.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIClient(cfg)
	case "anthropic":
		return newAnthropicClient(cfg)
	case "gemini", "google":
		return newGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// NewFallbackFromConfigs builds a FallbackClient over cfgs in priority order.
func NewFallbackFromConfigs(cfgs []Config, opts FallbackOptions, logger *slog.Logger) (*FallbackClient, error) {
	endpoints := make([]Endpoint, 0, len(cfgs))
	for _, cfg := range cfgs {
		client, err := NewClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
		}
		name := strings.ToLower(cfg.Provider)
		if cfg.Model != "" {
			name += "/" + cfg.Model
		}
		endpoints = append(endpoints, Endpoint{
			Name:    name,
			Client:  client,
			Timeout: cfg.Timeout,
		})
	}
	return NewFallbackClient(endpoints, opts, logger)
}
