// Package pipeline holds the derived workflows built on retrieval and
// grounded answering: exam generation, question-paper solving and video
// transcript cross-referencing.
package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/grounding"
	"github.com/papercomputeco/scholar/pkg/llm"
	"github.com/papercomputeco/scholar/pkg/transcript"
	"github.com/papercomputeco/scholar/pkg/vector"
)

const (
	DefaultSolverPrefixChars     = 2000
	DefaultSolverMaxQuestions    = 3
	DefaultTranscriptPrefixChars = 4000
	DefaultGenerationTemperature = 0.8
)

// ErrEmptyInput is returned when a pipeline is given no text to work on.
var ErrEmptyInput = errors.New("empty input")

// CorpusState reports whether a corpus is active. *corpus.Manager implements it.
type CorpusState interface {
	IsLoaded() bool
}

// PassageRetriever fetches context for a query.
type PassageRetriever interface {
	Retrieve(ctx context.Context, query string) ([]vector.Passage, error)
}

// Config holds what the pipelines share.
type Config struct {
	Corpus    CorpusState
	Retriever PassageRetriever
	Answerer  *grounding.Answerer
	Completer llm.Completer

	// Fetcher supplies captions for transcript analysis.
	Fetcher transcript.Fetcher

	// GroundedTemperature is used for extraction and comparison calls.
	GroundedTemperature float64

	// GenerationTemperature is used for exam generation.
	GenerationTemperature float64

	SolverPrefixChars     int
	SolverMaxQuestions    int
	TranscriptPrefixChars int

	Logger *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.SolverPrefixChars <= 0 {
		c.SolverPrefixChars = DefaultSolverPrefixChars
	}
	if c.SolverMaxQuestions <= 0 {
		c.SolverMaxQuestions = DefaultSolverMaxQuestions
	}
	if c.TranscriptPrefixChars <= 0 {
		c.TranscriptPrefixChars = DefaultTranscriptPrefixChars
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
