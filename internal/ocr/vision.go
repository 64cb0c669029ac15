// Package ocr extracts text from receipt images with Google Cloud Vision.
package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/service"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

const (
	featureTextDetection     = "TEXT_DETECTION"
	featureDocumentDetection = "DOCUMENT_TEXT_DETECTION"
	maxPDFPages              = 5
)

// Config configures the Vision client.
type Config struct {
	APIKey   string
	Endpoint string
	// Document switches to DOCUMENT_TEXT_DETECTION for dense text.
	Document bool
	Retry    service.RetryOptions
}

// Client implements service.TextExtractor over the Vision REST API.
type Client struct {
	svc     *vision.Service
	logger  *slog.Logger
	feature string
	retry   service.RetryOptions
}

// New creates a Vision client authenticated with an API key.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, common.MissingConfig("vision OCR", "an API key (ocr.api_key or GOOGLE_API_KEY)")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision service: %w", err)
	}

	feature := featureTextDetection
	if cfg.Document {
		feature = featureDocumentDetection
	}

	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry.MaxAttempts = 3
	}

	return &Client{svc: svc, logger: logger, feature: feature, retry: retry}, nil
}

// ExtractText implements service.TextExtractor. A document without any
// detected text yields common.ErrNoText.
func (c *Client) ExtractText(ctx context.Context, document []byte, mimeHint string) (string, error) {
	if len(document) == 0 {
		return "", common.ErrNoText
	}

	content := base64.StdEncoding.EncodeToString(document)
	features := []*vision.Feature{{Type: c.feature}}

	var text string
	err := common.WithRetry(ctx, func() error {
		var err error
		if mimeHint == "application/pdf" {
			text, err = c.annotateFile(ctx, content, features)
		} else {
			text, err = c.annotateImage(ctx, content, features)
		}
		return err
	}, c.retry)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrExtractionFailed, err)
	}
	if text == "" {
		return "", common.ErrNoText
	}

	c.logger.Debug("vision OCR complete", "characters", len(text))
	return text, nil
}

func (c *Client) annotateImage(ctx context.Context, content string, features []*vision.Feature) (string, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: content},
			Features: features,
		}},
	}

	resp, err := c.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("images:annotate failed: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", nil
	}
	return responseText(resp.Responses[0])
}

func (c *Client) annotateFile(ctx context.Context, content string, features []*vision.Feature) (string, error) {
	pages := make([]int64, maxPDFPages)
	for i := range pages {
		pages[i] = int64(i + 1)
	}

	req := &vision.BatchAnnotateFilesRequest{
		Requests: []*vision.AnnotateFileRequest{{
			InputConfig: &vision.InputConfig{
				Content:  content,
				MimeType: "application/pdf",
			},
			Features: features,
			Pages:    pages,
		}},
	}

	resp, err := c.svc.Files.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("files:annotate failed: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", nil
	}

	var parts []string
	for _, page := range resp.Responses[0].Responses {
		text, err := responseText(page)
		if err != nil {
			return "", err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

func responseText(resp *vision.AnnotateImageResponse) (string, error) {
	if resp == nil {
		return "", nil
	}
	if resp.Error != nil && resp.Error.Code != 0 {
		return "", common.Permanent(fmt.Errorf("vision error %d: %s", resp.Error.Code, resp.Error.Message))
	}
	if resp.FullTextAnnotation != nil && resp.FullTextAnnotation.Text != "" {
		return strings.TrimSpace(resp.FullTextAnnotation.Text), nil
	}
	if len(resp.TextAnnotations) > 0 {
		return strings.TrimSpace(resp.TextAnnotations[0].Description), nil
	}
	return "", nil
}
