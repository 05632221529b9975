package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/papercomputeco/scholar/pkg/vector"
)

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	mu sync.Mutex

	Embeddings map[string][]float32

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// Calls records every embedded text in call order.
	Calls []string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, text)

	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("%w: mock embedding failure for: %s", vector.ErrEmbedding, text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	// Return a default embedding for any text
	return []float32{0.1, 0.2, 0.3}, nil
}

// CallCount returns how many times Embed was called.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *MockEmbedder) Close() error {
	return nil
}

// MockBatchEmbedder adds EmbedBatch to MockEmbedder and records the size of
// every batch it receives.
type MockBatchEmbedder struct {
	*MockEmbedder

	batchMu sync.Mutex
	Batches []int
}

func NewMockBatchEmbedder() *MockBatchEmbedder {
	return &MockBatchEmbedder{MockEmbedder: NewMockEmbedder()}
}

func (m *MockBatchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batchMu.Lock()
	m.Batches = append(m.Batches, len(texts))
	m.batchMu.Unlock()

	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// BatchSizes returns a copy of the recorded batch sizes.
func (m *MockBatchEmbedder) BatchSizes() []int {
	m.batchMu.Lock()
	defer m.batchMu.Unlock()
	return append([]int(nil), m.Batches...)
}
