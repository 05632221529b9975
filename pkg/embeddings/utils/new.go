// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"
	"os"
	"time"

	"github.com/papercomputeco/scholar/pkg/embeddings"
	"github.com/papercomputeco/scholar/pkg/embeddings/ollama"
	"github.com/papercomputeco/scholar/pkg/embeddings/openai"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string

	// APIKey falls back to OPENAI_API_KEY for the openai provider.
	APIKey  string
	Timeout time.Duration
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
			Timeout: o.Timeout,
		})
	case "openai":
		key := o.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		return openai.NewEmbedder(openai.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
			APIKey:  key,
			Timeout: o.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
