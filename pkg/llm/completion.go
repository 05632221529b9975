// Package llm defines the text-generation boundary: a single-shot completion
// request and the Completer that serves it.
package llm

import (
	"context"
	"errors"
)

// ErrModel wraps every failure of a completion call: transport, non-200
// status, undecodable payload, empty content or timeout.
var ErrModel = errors.New("model call failed")

// Format selects the shape of the model output.
type Format string

const (
	// FormatText asks for free text.
	FormatText Format = ""

	// FormatJSON asks the provider to constrain output to a JSON object.
	FormatJSON Format = "json"
)

// CompletionRequest is a provider-agnostic completion request.
type CompletionRequest struct {
	// System is the system prompt. Providers that lack a system role prepend it.
	System string

	// Messages are sent in order after the system prompt.
	Messages []Message

	// Temperature controls sampling. Zero is deterministic.
	Temperature float64

	Format Format
}

// Completer sends a completion request and returns the model's text.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
