// Package markdown extracts readable text from Markdown files.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Extractor handles Markdown documents.
type Extractor struct{}

// New creates a new Markdown extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedTypes returns the declared types this extractor handles.
func (e *Extractor) SupportedTypes() []string {
	return []string{"md", "markdown"}
}

// Extract reads the file and removes Markdown syntax.
func (e *Extractor) Extract(_ context.Context, path, _ string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", domain.ErrExtraction, path, err)
	}
	return stripMarkdown(string(bytes.ToValidUTF8(data, []byte("�")))), nil
}

var (
	codeFence     = regexp.MustCompile("(?m)^[ \\t]*```[^\\n]*$")
	inlineCode    = regexp.MustCompile("`([^`]+)`")
	images        = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquote    = regexp.MustCompile(`(?m)^>[ \t]*`)
	horizontal    = regexp.MustCompile(`(?m)^[-*_]{3,}[ \t]*$`)
	tableRule     = regexp.MustCompile(`(?m)^\|?[ \t:|-]+\|[ \t:|-]*$`)
	listMarkers   = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`)
	numberedList  = regexp.MustCompile(`(?m)^[ \t]*\d+\.[ \t]+`)
	boldStar      = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	italicStar    = regexp.MustCompile(`\*([^*\n]+)\*`)
	underscores   = regexp.MustCompile(`(?m)(^|\W)_{1,2}([^_\n]+)_{1,2}(\W|$)`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// stripMarkdown removes common Markdown formatting.
// Code is kept as text; only the fences and backticks go.
func stripMarkdown(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	content = codeFence.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "")
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")
	content = blockquote.ReplaceAllString(content, "")
	content = horizontal.ReplaceAllString(content, "")
	content = tableRule.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "")
	content = numberedList.ReplaceAllString(content, "")
	content = boldStar.ReplaceAllString(content, "$1")
	content = italicStar.ReplaceAllString(content, "$1")
	content = underscores.ReplaceAllString(content, "$1$2$3")
	content = multiNewlines.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}
