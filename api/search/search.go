// Package search provides shared search types and logic for semantic search
// over the active corpus. It is used by both the REST API endpoint and the
// MCP server tool.
package search

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/corpus"
	"github.com/papercomputeco/scholar/pkg/vector"
)

// Searcher ranks corpus passages against a query. *retriever.Retriever
// implements it.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]vector.Result, error)
}

// SearchInput represents the input arguments for a search request.
type SearchInput struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SearchResult represents a single matching passage.
type SearchResult struct {
	Source string  `json:"source"`
	Page   int     `json:"page,omitempty"`
	Chunk  int     `json:"chunk"`
	Score  float32 `json:"score"`
	Text   string  `json:"text"`
}

// SearchOutput represents the output of a search operation.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// Search embeds query and returns the topK most similar passages. A topK
// of zero or less is passed on as zero so the searcher applies its own
// configured default.
func Search(ctx context.Context, query string, topK int, searcher Searcher, logger *zap.Logger) (*SearchOutput, error) {
	topK = max(topK, 0)

	logger.Debug("search request",
		zap.String("query", query),
		zap.Int("topK", topK),
	)

	results, err := searcher.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("searching corpus: %w", err)
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, BuildSearchResult(r))
	}

	return &SearchOutput{
		Query:   query,
		Results: out,
		Count:   len(out),
	}, nil
}

// BuildSearchResult flattens a ranked passage and its provenance metadata.
func BuildSearchResult(r vector.Result) SearchResult {
	page, _ := strconv.Atoi(r.Metadata[corpus.MetaPage])
	chunk, _ := strconv.Atoi(r.Metadata[corpus.MetaChunk])
	return SearchResult{
		Source: r.Metadata[corpus.MetaSource],
		Page:   page,
		Chunk:  chunk,
		Score:  r.Score,
		Text:   r.Text,
	}
}
