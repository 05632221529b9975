package testutils

import (
	"context"

	"github.com/papercomputeco/scholar/pkg/transcript"
)

// MockFetcher returns canned caption segments.
type MockFetcher struct {
	Segments []transcript.Segment
	Err      error

	// Requested records the video IDs passed to Fetch.
	Requested []string
}

func (m *MockFetcher) Fetch(_ context.Context, videoID string) ([]transcript.Segment, error) {
	m.Requested = append(m.Requested, videoID)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Segments, nil
}
