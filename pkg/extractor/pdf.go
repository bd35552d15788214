package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

const DefaultMaxPDFBytes = 100 << 20

var (
	ErrNotPDF   = errors.New("file is not a PDF")
	ErrTooLarge = errors.New("file exceeds the size limit")
	ErrEmptyPDF = errors.New("file is empty")

	pdfMagic = []byte("%PDF")
)

// ValidatePDF checks size and the %PDF header.
func ValidatePDF(data []byte, maxBytes int64) error {
	if len(data) == 0 {
		return ErrEmptyPDF
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), maxBytes)
	}
	if !IsPDF(data) {
		return ErrNotPDF
	}
	return nil
}

func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

type PDFExtractor struct {
	maxBytes int64
}

func NewPDF(maxBytes int64) *PDFExtractor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPDFBytes
	}
	return &PDFExtractor{maxBytes: maxBytes}
}

// Text validates data and returns the plain text of every page.
func (e *PDFExtractor) Text(data []byte) (text string, err error) {
	if err := ValidatePDF(data, e.maxBytes); err != nil {
		return "", err
	}

	// the parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract PDF text: %w", err)
	}

	out, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	return string(out), nil
}
