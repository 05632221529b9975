// Package provider builds llm.Completer implementations from configuration.
package provider

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/llm"
	"github.com/papercomputeco/scholar/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/scholar/pkg/llm/provider/ollama"
	"github.com/papercomputeco/scholar/pkg/llm/provider/openai"
)

// Supported provider type constants
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
	Ollama    = "ollama"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, OpenAI, Ollama}
}

// CompleterOpts holds configuration for creating a completer.
type CompleterOpts struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// NewCompleter creates a Completer for the configured provider.
// Resolution order for the API key:
//  1. Explicit APIKey
//  2. Environment variables (OPENAI_API_KEY / ANTHROPIC_API_KEY)
//  3. Fall back to Ollama when a hosted provider has no key
func NewCompleter(o CompleterOpts) (llm.Completer, error) {
	name := strings.ToLower(o.Provider)
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = resolveAPIKeyFromEnv(name)
	}

	baseURL := o.BaseURL
	if apiKey == "" && (name == OpenAI || name == Anthropic) {
		logger.Warn("no API key found, falling back to ollama",
			zap.String("provider", name),
		)
		name = Ollama
		baseURL = ""
	}

	switch name {
	case OpenAI:
		return openai.New(openai.Config{
			APIKey:  apiKey,
			Model:   o.Model,
			BaseURL: baseURL,
			Timeout: o.Timeout,
		})
	case Anthropic:
		return anthropic.New(anthropic.Config{
			APIKey:  apiKey,
			Model:   o.Model,
			BaseURL: baseURL,
			Timeout: o.Timeout,
		})
	case Ollama, "":
		return ollama.New(ollama.Config{
			Model:   o.Model,
			BaseURL: baseURL,
			Timeout: o.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", o.Provider, SupportedProviders())
	}
}

func resolveAPIKeyFromEnv(provider string) string {
	switch provider {
	case Anthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case OpenAI:
		return os.Getenv("OPENAI_API_KEY")
	default:
		return ""
	}
}
