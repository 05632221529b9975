package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	apisearch "github.com/papercomputeco/scholar/api/search"
	"github.com/papercomputeco/scholar/pkg/corpus"
)

var (
	searchToolName    = "search_corpus"
	searchDescription = "Semantic search over the ingested study corpus. Returns the most similar passages with their source file, page and similarity score."
)

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query text"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of passages to return (default: the configured top_k)"`
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, apisearch.SearchOutput, error) {
	logger := s.config.Logger

	if input.Query == "" {
		return toolError("query is required"), apisearch.SearchOutput{}, nil
	}

	output, err := apisearch.Search(ctx, input.Query, input.TopK, s.config.Searcher, logger)
	if errors.Is(err, corpus.ErrNotLoaded) {
		return toolError("No corpus has been ingested yet."), apisearch.SearchOutput{}, nil
	}
	if err != nil {
		logger.Error("MCP search failed", zap.Error(err))
		return toolError(fmt.Sprintf("Search failed: %v", err)), apisearch.SearchOutput{}, nil
	}

	// Tools returning structured content also return the serialized JSON
	// in a TextContent block for older clients.
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to serialize results: %v", err)), apisearch.SearchOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, *output, nil
}
