package ocr

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
)

// PdfToText extracts text from PDFs using the pdftotext CLI tool.
type PdfToText struct {
	binPath string
	layout  bool
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty, "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractText runs pdftotext on the given PDF and returns its text with page
// breaks turned into newlines.
func (p *PdfToText) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	args := []string{"-enc", "UTF-8"}
	if p.layout {
		args = append(args, "-layout")
	}
	args = append(args, pdfPath, "-")
	cmd := exec.CommandContext(ctx, p.binPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "ocr: pdftotext failed for %s: %s", pdfPath, stderr.String())
	}

	text := strings.ReplaceAll(stdout.String(), "\f", "\n")
	if strings.TrimSpace(text) == "" {
		return "", eris.Wrapf(ErrNoText, "ocr: %s", pdfPath)
	}
	return text, nil
}
