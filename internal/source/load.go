package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/councilsense/minutes-cli/internal/model"
	"github.com/councilsense/minutes-cli/internal/ocr"
)

// Source names.
const (
	NameText = "text"
	NamePDF  = "pdf"
)

// ErrNoInput is returned when neither a text nor a PDF path is given.
var ErrNoInput = eris.New("source: a text or pdf path is required")

// Load reads the packet renditions that were supplied, text first. PDF text
// comes from the extractor and is normalized the same way.
func Load(ctx context.Context, textPath, pdfPath string, extractor ocr.Extractor) ([]model.Source, error) {
	if textPath == "" && pdfPath == "" {
		return nil, ErrNoInput
	}

	var sources []model.Source
	if textPath != "" {
		text, err := ReadTextFile(textPath)
		if err != nil {
			return nil, err
		}
		sources = append(sources, model.Source{Name: NameText, Text: text})
	}
	if pdfPath != "" {
		if extractor == nil {
			return nil, eris.New("source: no pdf extractor configured")
		}
		raw, err := extractor.ExtractText(ctx, pdfPath)
		if err != nil {
			return nil, eris.Wrapf(err, "source: extract %s", pdfPath)
		}
		sources = append(sources, model.Source{Name: NamePDF, Text: Normalize(raw)})
	}
	return sources, nil
}

// MeetingID derives a stable meeting id: a hash of the PDF bytes when a PDF
// is given, else a hash of the normalized text. A random id is used only
// when neither can be read.
func MeetingID(textPath, pdfPath string) string {
	if pdfPath != "" {
		if sum, err := hashFile(pdfPath); err == nil {
			return "pdf_" + sum[:12]
		}
	}
	if textPath != "" {
		if text, err := ReadTextFile(textPath); err == nil {
			sum := sha256.Sum256([]byte(text))
			return "txt_" + hex.EncodeToString(sum[:])[:12]
		}
	}
	return "m_" + uuid.NewString()
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "source: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", eris.Wrapf(err, "source: hash %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
