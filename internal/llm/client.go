package llm

import (
	"context"
	"time"
)

// Client defines the interface for LLM providers.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is a single-turn completion request.
type Request struct {
	System    string
	Prompt    string
	Image     *Image
	MaxTokens int
}

// Image is an inline document attached to a request.
type Image struct {
	MIMEType string
	Data     []byte
}

// Config holds configuration for a single provider endpoint.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}
