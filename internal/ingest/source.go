package ingest

import (
	"net/http"
	"path/filepath"
	"strings"
)

// SourceKind classifies a receipt source.
type SourceKind int

// Source kinds.
const (
	KindUnknown SourceKind = iota
	KindText
	KindImage
)

func (k SourceKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".heic": "image/heic",
	".pdf":  "application/pdf",
}

var textExtensions = map[string]bool{
	".txt":  true,
	".text": true,
	".log":  true,
	".csv":  true,
}

// KindFromPath classifies a source by file extension. PDFs count as images
// since they go through OCR.
func KindFromPath(path string) SourceKind {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := imageMIMETypes[ext]; ok {
		return KindImage
	}
	if textExtensions[ext] {
		return KindText
	}
	return KindUnknown
}

// KindFromContent classifies a source by sniffing its first bytes.
func KindFromContent(data []byte) (SourceKind, string) {
	mime := http.DetectContentType(data)
	switch {
	case strings.HasPrefix(mime, "text/"):
		return KindText, mime
	case strings.HasPrefix(mime, "image/"), mime == "application/pdf":
		return KindImage, mime
	default:
		return KindUnknown, mime
	}
}

// MIMEType returns the MIME type for an image-like path, or "" if unknown.
func MIMEType(path string) string {
	return imageMIMETypes[strings.ToLower(filepath.Ext(path))]
}
