package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the natural language query to match against indexed chunks"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"maximum number of results to return (default from settings)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Title      string  `json:"title"`
	Source     string  `json:"source"`
	FileType   string  `json:"file_type"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	Path string `json:"path" jsonschema:"absolute path of the file to index"`
	Wait bool   `json:"wait,omitempty" jsonschema:"process the file before returning instead of queueing it"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
	DocumentID string `json:"document_id,omitempty"`
	Chunks     int    `json:"chunks"`
	Error      string `json:"error,omitempty"`
}

// SummarizeInput is the input schema for the summarize tool.
type SummarizeInput struct {
	DocumentID string `json:"document_id" jsonschema:"identifier of an indexed document"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Semantic search across all indexed document chunks",
	}, s.handleSearch)

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest",
			Description: "Extract, chunk, embed and index a local file",
		}, s.handleIngest)
	}

	if s.ports.Document != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "summarize",
			Description: "Short summary of an indexed document built from its first chunks",
		}, s.handleSummarize)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	hits, err := s.ports.Search.Search(ctx, input.Query, domain.SearchOptions{TopK: input.TopK})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(hits)),
		Count:   len(hits),
	}

	for i := range hits {
		rec := hits[i].Record
		output.Results[i] = SearchResultOutput{
			DocumentID: rec.Chunk.SourceDocID,
			ChunkIndex: rec.Chunk.ChunkIndex,
			Title:      rec.Metadata.Title,
			Source:     rec.Metadata.SourcePath,
			FileType:   rec.Metadata.FileType,
			Score:      hits[i].Score,
			Content:    rec.Chunk.Text,
		}
	}

	return nil, output, nil
}

// handleIngest queues a file, or processes it in place when Wait is set.
// A file that fails to ingest is reported in the output, not as a tool error.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if input.Path == "" {
		return nil, IngestOutput{}, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}

	if !input.Wait {
		id, err := s.ports.Ingest.Submit(ctx, input.Path)
		if err != nil {
			return nil, IngestOutput{}, fmt.Errorf("queueing %s: %w", input.Path, err)
		}
		return nil, IngestOutput{JobID: id, Status: string(domain.JobQueued)}, nil
	}

	job, err := s.ports.Ingest.Ingest(ctx, input.Path)
	if job == nil {
		return nil, IngestOutput{}, fmt.Errorf("ingesting %s: %w", input.Path, err)
	}

	return nil, IngestOutput{
		JobID:      job.ID,
		Status:     string(job.Status),
		DocumentID: job.DocID,
		Chunks:     job.Chunks,
		Error:      job.Error,
	}, nil
}

// handleSummarize handles the summarize tool invocation.
func (s *Server) handleSummarize(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SummarizeInput,
) (*mcp.CallToolResult, domain.DocumentDigest, error) {
	digest, err := s.ports.Document.Summarize(ctx, input.DocumentID)
	if err != nil {
		return nil, domain.DocumentDigest{}, fmt.Errorf("summarizing %s: %w", input.DocumentID, err)
	}
	return nil, *digest, nil
}
