package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Veraticus/smartspend/internal/common"
)

const noTextMarker = "NO_TEXT"

// VisionExtractor implements service.TextExtractor with a multimodal model.
type VisionExtractor struct {
	client Client
}

// NewVisionExtractor creates a text extractor backed by client.
func NewVisionExtractor(client Client) *VisionExtractor {
	return &VisionExtractor{client: client}
}

// ExtractText transcribes the document. A blank document yields
// common.ErrNoText.
func (v *VisionExtractor) ExtractText(ctx context.Context, document []byte, mimeHint string) (string, error) {
	if len(document) == 0 {
		return "", common.ErrNoText
	}
	if mimeHint == "" {
		mimeHint = http.DetectContentType(document)
	}

	content, err := v.client.Complete(ctx, Request{
		System: "You transcribe receipts. Output only the text printed on the receipt, line by line.",
		Prompt: "Transcribe this receipt exactly as printed. If the image contains no text, respond with " + noTextMarker + ".",
		Image: &Image{
			MIMEType: mimeHint,
			Data:     document,
		},
		MaxTokens: 2048,
	})
	if err != nil {
		return "", fmt.Errorf("vision transcription failed: %w", err)
	}

	text := strings.TrimSpace(cleanMarkdownWrapper(content))
	if text == "" || text == noTextMarker {
		return "", common.ErrNoText
	}
	return text, nil
}
