// Package api provides the HTTP API server for ingesting a corpus and asking
// it questions.
package api

import (
	"context"
	"net/http"

	apisearch "github.com/papercomputeco/scholar/api/search"
	"github.com/papercomputeco/scholar/pkg/corpus"
	"github.com/papercomputeco/scholar/pkg/pipeline"
	"github.com/papercomputeco/scholar/pkg/router"
	"github.com/papercomputeco/scholar/pkg/session"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	Corpus      CorpusService
	Searcher    apisearch.Searcher
	Router      Asker
	Sessions    session.Store
	Exams       ExamGenerator
	Solver      PaperSolver
	Transcripts TranscriptAnalyzer

	// SnapshotLocation is reported by the corpus status endpoint.
	SnapshotLocation string

	// MCPHandler, when set, is mounted at /mcp.
	MCPHandler http.Handler

	// BodyLimit caps request bodies, uploads included. Defaults to fiber's 4MB.
	BodyLimit int
}

// CorpusService owns the active corpus. *corpus.Manager implements it.
type CorpusService interface {
	Current() (*corpus.Corpus, bool)
	Ingest(ctx context.Context, docs []corpus.Document) (*corpus.Corpus, error)
}

// Asker routes questions. *router.Router implements it.
type Asker interface {
	Ask(ctx context.Context, req router.Request) (*router.Response, error)
}

// ExamGenerator is implemented by *pipeline.Exams.
type ExamGenerator interface {
	Generate(ctx context.Context, topic string) (*pipeline.ExamResult, error)
}

// PaperSolver is implemented by *pipeline.Solver.
type PaperSolver interface {
	Solve(ctx context.Context, text string) ([]pipeline.Solution, error)
}

// TranscriptAnalyzer is implemented by *pipeline.Transcripts.
type TranscriptAnalyzer interface {
	Analyze(ctx context.Context, url string) (*pipeline.TranscriptAnalysis, error)
}
