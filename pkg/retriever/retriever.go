// Package retriever embeds queries and fetches the nearest corpus passages.
package retriever

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/corpus"
	"github.com/papercomputeco/scholar/pkg/embeddings"
	"github.com/papercomputeco/scholar/pkg/vector"
)

// CorpusSource supplies the active corpus. *corpus.Manager implements it.
type CorpusSource interface {
	Current() (*corpus.Corpus, bool)
}

// Retriever answers top-k passage lookups against the active corpus.
type Retriever struct {
	source   CorpusSource
	embedder embeddings.Embedder
	topK     int
	logger   *zap.Logger
}

// New creates a retriever. topK <= 0 uses vector.DefaultTopK.
func New(source CorpusSource, embedder embeddings.Embedder, topK int, logger *zap.Logger) *Retriever {
	if topK <= 0 {
		topK = vector.DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		source:   source,
		embedder: embedder,
		topK:     topK,
		logger:   logger,
	}
}

// TopK returns the default number of passages per lookup.
func (r *Retriever) TopK() int {
	return r.topK
}

// Retrieve returns the default top-k passages for query.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]vector.Passage, error) {
	return r.RetrieveK(ctx, query, r.topK)
}

// RetrieveK returns the k passages most similar to query, most similar first.
func (r *Retriever) RetrieveK(ctx context.Context, query string, k int) ([]vector.Passage, error) {
	results, err := r.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}

	passages := make([]vector.Passage, len(results))
	for i, res := range results {
		passages[i] = res.Passage
	}
	return passages, nil
}

// Search is RetrieveK with similarity scores kept.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]vector.Result, error) {
	c, ok := r.source.Current()
	if !ok {
		return nil, corpus.ErrNotLoaded
	}

	if k <= 0 {
		k = r.topK
	}

	q, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := c.Index.Search(q, k)
	if err != nil {
		return nil, fmt.Errorf("searching corpus v%d: %w", c.Version, err)
	}

	r.logger.Debug("retrieved passages",
		zap.Int64("corpus_version", c.Version),
		zap.Int("k", k),
		zap.Int("results", len(results)),
	)

	return results, nil
}
