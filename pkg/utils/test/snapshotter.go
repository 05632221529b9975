package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/papercomputeco/scholar/pkg/vector"
)

// MockSnapshotter keeps the last saved index in memory.
type MockSnapshotter struct {
	mu sync.Mutex

	saved *vector.Index
	Saves int

	// FailSave causes Save to return a persistence error.
	FailSave bool

	// LoadErr, when set, is returned by Load.
	LoadErr error
}

func NewMockSnapshotter() *MockSnapshotter {
	return &MockSnapshotter{}
}

func (m *MockSnapshotter) Save(_ context.Context, idx *vector.Index) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSave {
		return fmt.Errorf("%w: mock save failure", vector.ErrPersistence)
	}
	m.saved = idx
	m.Saves++
	return nil
}

func (m *MockSnapshotter) Load(_ context.Context) (*vector.Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.saved == nil {
		return nil, vector.ErrNoSnapshot
	}
	return m.saved, nil
}

func (m *MockSnapshotter) Location() string {
	return "memory://mock"
}

// Saved returns the last saved index, or nil.
func (m *MockSnapshotter) Saved() *vector.Index {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved
}
