package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/grounding"
	"github.com/papercomputeco/scholar/pkg/router"
)

var (
	askToolName    = "ask_corpus"
	askDescription = "Answer a question strictly from the ingested study corpus. Reports needs_fallback when the corpus does not cover it; ask again with mode \"open-domain\" to use general knowledge."
)

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer"`
	Mode     string `json:"mode,omitempty" jsonschema:"grounded (default) or open-domain"`
	Style    string `json:"style,omitempty" jsonschema:"answer style, e.g. Detailed or Concise"`
}

// handleAsk routes a question through the grounded/open-domain protocol.
func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, router.Response, error) {
	if input.Question == "" {
		return toolError("question is required"), router.Response{}, nil
	}

	mode, err := router.ParseMode(input.Mode)
	if err != nil {
		return toolError(err.Error()), router.Response{}, nil
	}

	resp, err := s.config.Asker.Ask(ctx, router.Request{
		Question: input.Question,
		Mode:     mode,
		Style:    input.Style,
	})
	if err != nil {
		s.config.Logger.Error("MCP ask failed", zap.Error(err))
		return toolError(grounding.Scrub(fmt.Sprintf("Answer failed: %v", err))), router.Response{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: resp.Answer},
		},
	}, *resp, nil
}
