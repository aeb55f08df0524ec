// Package ocr turns PDF packets into plain text.
package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/councilsense/minutes-cli/internal/config"
)

// ErrNoText is returned when a PDF yields no extractable text, which usually
// means it is a scan.
var ErrNoText = eris.New("ocr: no text layer")

// Extractor extracts text content from PDF files.
type Extractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "pdftotext", "local", "":
		p := NewPdfToText(cfg.PdfToTextPath)
		p.layout = cfg.Layout
		return p, nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}
