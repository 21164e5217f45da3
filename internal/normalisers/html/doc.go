// Package html provides a TextExtractor for HTML documents.
// It extracts readable text content from HTML, stripping tags, scripts,
// styles, and decoding entities for clean searchable content.
package html
