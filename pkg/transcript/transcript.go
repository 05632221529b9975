// Package transcript fetches and normalizes video captions.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// ErrFetch is returned when captions cannot be retrieved.
	ErrFetch = errors.New("transcript fetch failed")

	// ErrInvalidVideoID is returned when no video id can be parsed from a URL.
	ErrInvalidVideoID = errors.New("invalid video id")

	// ErrNoCaptions is returned when a video has no captions in the requested
	// language. It always travels wrapped in ErrFetch.
	ErrNoCaptions = errors.New("no captions available")
)

// Segment is a single caption cue.
type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Fetcher retrieves the captions of a video.
type Fetcher interface {
	Fetch(ctx context.Context, videoID string) ([]Segment, error)
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ParseVideoID extracts the video id from a watch URL (the "v" query
// parameter) or, failing that, from the last path segment.
func ParseVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", ErrInvalidVideoID)
	}

	var id string
	if u, err := url.Parse(raw); err == nil {
		id = u.Query().Get("v")
		if id == "" {
			id = lastSegment(u.Path)
		}
	} else {
		id = lastSegment(raw)
	}

	if i := strings.IndexAny(id, "?&#"); i >= 0 {
		id = id[:i]
	}

	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVideoID, raw)
	}
	return id, nil
}

func lastSegment(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Join concatenates segment texts with single spaces, collapsing the line
// breaks captions carry internally.
func Join(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		t := strings.Join(strings.Fields(s.Text), " ")
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
