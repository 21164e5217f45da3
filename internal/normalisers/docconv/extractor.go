// Package docconv extracts text from office and PDF documents using
// code.sajari.com/docconv. PDF conversion needs poppler's pdftotext on PATH.
package docconv

import (
	"context"
	"fmt"
	"strings"

	"code.sajari.com/docconv/v2"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Extractor converts binary document formats to text.
type Extractor struct {
	convert func(path string) (*docconv.Response, error)
}

// New creates a new document extractor.
func New() *Extractor {
	return &Extractor{convert: docconv.ConvertPath}
}

// SupportedTypes returns the declared types this extractor handles.
func (e *Extractor) SupportedTypes() []string {
	return []string{"pdf", "docx", "pptx", "odt", "rtf"}
}

// Extract converts the file and returns its body text.
func (e *Extractor) Extract(ctx context.Context, path, declaredType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	res, err := e.convert(path)
	if err != nil {
		return "", fmt.Errorf("%w: convert %s %s: %w", domain.ErrExtraction, declaredType, path, err)
	}
	return strings.TrimSpace(res.Body), nil
}
