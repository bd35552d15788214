package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sethyshola20/T-itw/internal/types"
)

var ErrEmptyText = errors.New("no text could be extracted")

// Extractor resolves a Source to plain text: raw bytes and files are read as PDF
// (or plain text for .txt/.md files), URLs are fetched.
type Extractor struct {
	pdf *PDFExtractor
	web *WebExtractor
}

var _ types.TextExtractor = (*Extractor)(nil)

func New(pdf *PDFExtractor, web *WebExtractor) *Extractor {
	if pdf == nil {
		pdf = NewPDF(0)
	}
	if web == nil {
		web = NewWebWithConfig(WebConfig{}, pdf)
	}
	return &Extractor{pdf: pdf, web: web}
}

func (e *Extractor) Extract(ctx context.Context, src types.Source) (string, error) {
	var (
		text string
		err  error
	)

	switch {
	case len(src.Data) > 0:
		text, err = e.pdf.Text(src.Data)
	case src.URL != "":
		text, err = e.web.Fetch(ctx, src.URL)
	case src.FilePath != "":
		text, err = e.readFile(src.FilePath)
	default:
		return "", fmt.Errorf("source has no data, URL or file path")
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

func (e *Extractor) readFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if info.Size() > e.pdf.maxBytes {
		return "", fmt.Errorf("%w: %s", ErrTooLarge, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return string(data), nil
	}
	return e.pdf.Text(data)
}
