// Package plaintext extracts text from plain text, CSV and JSON files.
package plaintext

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// csvFieldSeparator joins the fields of one CSV row.
const csvFieldSeparator = " | "

// Extractor handles plain text formats.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedTypes returns the declared types this extractor handles.
func (e *Extractor) SupportedTypes() []string {
	return []string{"txt", "text", "log", "csv", "json"}
}

// Extract reads the file and renders it as text.
// Invalid UTF-8 sequences are replaced rather than rejected.
func (e *Extractor) Extract(_ context.Context, path, declaredType string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", domain.ErrExtraction, path, err)
	}
	data = bytes.ToValidUTF8(data, []byte("�"))

	switch declaredType {
	case "csv":
		return csvToText(data)
	case "json":
		return jsonToText(data)
	default:
		return string(data), nil
	}
}

// csvToText writes each row on its own line with fields joined by " | ".
// Rows may have differing field counts.
func csvToText(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var b strings.Builder
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: csv: %w", domain.ErrExtraction, err)
		}
		b.WriteString(strings.Join(row, csvFieldSeparator))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// jsonToText pretty-prints the document with two-space indentation.
// Key order is preserved as written.
func jsonToText(data []byte) (string, error) {
	if !json.Valid(data) {
		return "", fmt.Errorf("%w: invalid json", domain.ErrExtraction)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, bytes.TrimSpace(data), "", "  "); err != nil {
		return "", fmt.Errorf("%w: json: %w", domain.ErrExtraction, err)
	}
	return out.String(), nil
}
