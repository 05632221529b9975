package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/papercomputeco/scholar/pkg/llm"
)

// MockCompleter is a test completer that records requests and replies from
// a queue, a respond function or a fixed default.
type MockCompleter struct {
	mu sync.Mutex

	// Responses are returned in order, one per call, before falling back.
	Responses []string

	// Respond, when set, computes the reply once Responses is exhausted.
	Respond func(req llm.CompletionRequest) string

	// Default is returned when neither Responses nor Respond apply.
	Default string

	// Err causes every call to fail with an error wrapping llm.ErrModel.
	Err error

	Requests []llm.CompletionRequest
}

func NewMockCompleter(responses ...string) *MockCompleter {
	return &MockCompleter{Responses: responses}
}

func (m *MockCompleter) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)

	if m.Err != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrModel, m.Err)
	}

	if len(m.Responses) > 0 {
		out := m.Responses[0]
		m.Responses = m.Responses[1:]
		return out, nil
	}

	if m.Respond != nil {
		return m.Respond(req), nil
	}

	return m.Default, nil
}

// LastRequest returns the most recent request.
func (m *MockCompleter) LastRequest() llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return llm.CompletionRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}

// CallCount returns how many times Complete was called.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
