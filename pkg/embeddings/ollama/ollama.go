// Package ollama implements pkg/embeddings' Embedder client for Ollama's
// /api/embed endpoint, batching inputs where the caller allows it.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/papercomputeco/scholar/pkg/embeddings"
	"github.com/papercomputeco/scholar/pkg/vector"
)

const (
	DefaultEmbeddingModel = "nomic-embed-text"
	DefaultBaseURL        = "http://localhost:11434"

	// DefaultTimeout bounds one /api/embed call, single or batched.
	DefaultTimeout = 120 * time.Second
)

// Embedder talks to a local or remote Ollama daemon.
type Embedder struct {
	endpoint string
	model    string
	client   *http.Client
}

// EmbedderConfig holds configuration for the Ollama embedder. Zero values
// fall back to the package defaults.
type EmbedderConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Ollama accepts either a string or a list of strings as input and always
// answers with a list of vectors.
type embedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	e := &Embedder{
		endpoint: DefaultBaseURL,
		model:    DefaultEmbeddingModel,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	if cfg.BaseURL != "" {
		e.endpoint = cfg.BaseURL
	}
	if cfg.Model != "" {
		e.model = cfg.Model
	}
	if cfg.Timeout > 0 {
		e.client.Timeout = cfg.Timeout
	}
	e.endpoint += "/api/embed"

	return e, nil
}

// Embed returns the vector for one text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.post(ctx, text, 1)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in a single request.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.post(ctx, texts, len(texts))
}

func (e *Embedder) post(ctx context.Context, input any, want int) ([][]float32, error) {
	payload, err := json.Marshal(embedRequest{Model: e.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", vector.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", vector.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: calling ollama: %v", vector.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", vector.ErrEmbedding, err)
	}

	var out embedResponse
	decodeErr := json.Unmarshal(raw, &out)

	switch {
	case resp.StatusCode != http.StatusOK && out.Error != "":
		return nil, fmt.Errorf("%w: ollama status %d: %s", vector.ErrEmbedding, resp.StatusCode, out.Error)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: ollama status %d: %s", vector.ErrEmbedding, resp.StatusCode, bytes.TrimSpace(raw))
	case decodeErr != nil:
		return nil, fmt.Errorf("%w: decoding response: %v", vector.ErrEmbedding, decodeErr)
	case len(out.Embeddings) != want:
		return nil, fmt.Errorf("%w: asked for %d embeddings, got %d", vector.ErrEmbedding, want, len(out.Embeddings))
	}

	for i, v := range out.Embeddings {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at position %d", vector.ErrEmbedding, i)
		}
	}

	return out.Embeddings, nil
}

// Close is a no-op; the HTTP client holds no per-embedder resources.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.BatchEmbedder = (*Embedder)(nil)
