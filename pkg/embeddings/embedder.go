// Package embeddings defines the text-to-vector boundary used for both
// ingestion and queries. Failures wrap vector.ErrEmbedding.
package embeddings

import "context"

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}

// BatchEmbedder is implemented by embedders whose backend accepts several
// inputs per call. Vectors are returned in input order.
type BatchEmbedder interface {
	Embedder

	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
