// Package mcp provides an MCP (Model Context Protocol) server adapter for docsearch.
// It lets AI assistants search the local index, queue files for ingestion and
// read indexed documents.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")
