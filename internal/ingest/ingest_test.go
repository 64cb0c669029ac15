package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOCR struct {
	err      error
	text     string
	gotMIME  string
	gotBytes []byte
	calls    int
}

func (f *fakeOCR) ExtractText(_ context.Context, document []byte, mimeHint string) (string, error) {
	f.calls++
	f.gotBytes = document
	f.gotMIME = mimeHint
	return f.text, f.err
}

type fakeExtractor struct {
	err     error
	items   []model.RawLineItem
	gotText string
	calls   int
}

func (f *fakeExtractor) ExtractItems(_ context.Context, rawText string) ([]model.RawLineItem, error) {
	f.calls++
	f.gotText = rawText
	return f.items, f.err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func item(name, price string, qty int) model.RawLineItem {
	return model.RawLineItem{Name: name, UnitPrice: decimal.RequireFromString(price), Quantity: qty}
}

func TestIngest_TextReceipt(t *testing.T) {
	path := writeFile(t, "receipt.txt", []byte("BAP WIT 1,79\nTOTAAL 1,79\n"))
	ocr := &fakeOCR{}

	items, err := New(ocr, nil, nil).Ingest(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "BAP WIT", items[0].Name)
	assert.Equal(t, 0, ocr.calls, "text receipts must not go through OCR")
}

func TestIngest_ImageReceipt(t *testing.T) {
	path := writeFile(t, "receipt.jpg", []byte{0xff, 0xd8, 0xff, 0xe0})
	ocr := &fakeOCR{text: "BAP WIT 1,79"}
	extractor := &fakeExtractor{items: []model.RawLineItem{item("BAP WIT", "1.79", 1)}}

	items, err := New(ocr, extractor, nil).Ingest(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "image/jpeg", ocr.gotMIME)
	assert.Equal(t, "BAP WIT 1,79", extractor.gotText)
}

func TestIngest_ImageWithoutOCRIsConfigurationError(t *testing.T) {
	_, err := New(nil, nil, nil).Ingest(context.Background(), "/does/not/matter.png")
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestIngest_SniffsUnknownExtension(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 16)...)
	path := writeFile(t, "scan.dat", png)

	_, err := New(nil, nil, nil).Ingest(context.Background(), path)
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	ocr := &fakeOCR{text: "COMMANDEUR 3,99"}
	items, err := New(ocr, nil, nil).Ingest(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "image/png", ocr.gotMIME)

	textPath := writeFile(t, "receipt", []byte("COMMANDEUR 3,99\n"))
	items, err = New(nil, nil, nil).Ingest(context.Background(), textPath)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestIngest_UnreadableSource(t *testing.T) {
	_, err := New(nil, nil, nil).Ingest(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrMissingConfig)

	_, err = New(nil, nil, nil).Ingest(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestIngest_DegradesToEmpty(t *testing.T) {
	image := writeFile(t, "receipt.png", []byte("not really a png"))
	text := writeFile(t, "receipt.txt", []byte("BAP WIT 1,79"))

	tests := []struct {
		name      string
		source    string
		ocr       *fakeOCR
		extractor *fakeExtractor
	}{
		{"ocr fails", image, &fakeOCR{err: errors.New("vision unavailable")}, &fakeExtractor{}},
		{"ocr finds no text", image, &fakeOCR{text: "  \n"}, &fakeExtractor{}},
		{"ocr reports no text", image, &fakeOCR{err: common.ErrNoText}, &fakeExtractor{}},
		{"extraction fails", text, &fakeOCR{}, &fakeExtractor{err: errors.New("timeout")}},
		{"malformed extraction", text, &fakeOCR{}, &fakeExtractor{err: common.ErrMalformedResponse}},
		{"no items", text, &fakeOCR{}, &fakeExtractor{items: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := New(tt.ocr, tt.extractor, nil).Ingest(context.Background(), tt.source)
			require.NoError(t, err)
			assert.NotNil(t, items)
			assert.Empty(t, items)
		})
	}
}

func TestIngest_EmptyTextFileSkipsExtraction(t *testing.T) {
	path := writeFile(t, "empty.txt", []byte("\n\n"))
	extractor := &fakeExtractor{}

	items, err := New(nil, extractor, nil).Ingest(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, extractor.calls)
}

func TestIngest_DropsInvalidItems(t *testing.T) {
	path := writeFile(t, "receipt.txt", []byte("anything"))
	extractor := &fakeExtractor{items: []model.RawLineItem{
		item("BAP WIT", "1.79", 1),
		item("", "1.00", 1),
		item("REFUND", "-2.00", 1),
		item("ZERO QTY", "1.00", 0),
		item("FREE SAMPLE", "0", 1),
	}}

	items, err := New(nil, extractor, nil).Ingest(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "BAP WIT", items[0].Name)
	assert.Equal(t, "FREE SAMPLE", items[1].Name)
}

func TestKindFromPath(t *testing.T) {
	assert.Equal(t, KindImage, KindFromPath("a/b/receipt.JPG"))
	assert.Equal(t, KindImage, KindFromPath("receipt.pdf"))
	assert.Equal(t, KindText, KindFromPath("receipt.txt"))
	assert.Equal(t, KindUnknown, KindFromPath("receipt"))
	assert.Equal(t, "image", KindImage.String())
	assert.Equal(t, "application/pdf", MIMEType("x.PDF"))
}
