// Package youtube fetches captions from YouTube's timedtext endpoint.
package youtube

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/transcript"
)

const (
	DefaultBaseURL  = "https://www.youtube.com"
	DefaultLanguage = "en"
	DefaultTimeout  = 30 * time.Second
)

// Config holds configuration for the YouTube fetcher.
type Config struct {
	BaseURL  string
	Language string
	Timeout  time.Duration
}

// Fetcher implements transcript.Fetcher.
type Fetcher struct {
	baseURL    string
	language   string
	httpClient *http.Client
	logger     *zap.Logger
}

type timedText struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
}

// NewFetcher creates a YouTube caption fetcher.
func NewFetcher(c Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fetcher{
		baseURL:  c.BaseURL,
		language: c.Language,
		httpClient: &http.Client{
			Timeout: c.Timeout,
		},
		logger: logger,
	}
	if f.baseURL == "" {
		f.baseURL = DefaultBaseURL
	}
	if f.language == "" {
		f.language = DefaultLanguage
	}
	if f.httpClient.Timeout == 0 {
		f.httpClient.Timeout = DefaultTimeout
	}
	return f
}

// Fetch downloads and decodes the captions of videoID.
func (f *Fetcher) Fetch(ctx context.Context, videoID string) ([]transcript.Segment, error) {
	q := url.Values{}
	q.Set("lang", f.language)
	q.Set("v", videoID)
	endpoint := f.baseURL + "/api/timedtext?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", transcript.ErrFetch, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", transcript.ErrFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", transcript.ErrFetch, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: youtube returned status %d", transcript.ErrFetch, resp.StatusCode)
	}

	if strings.TrimSpace(string(body)) == "" {
		return nil, fmt.Errorf("%w: %w for %s", transcript.ErrFetch, transcript.ErrNoCaptions, videoID)
	}

	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("%w: decoding captions: %v", transcript.ErrFetch, err)
	}

	segments := make([]transcript.Segment, 0, len(tt.Texts))
	for _, t := range tt.Texts {
		start, _ := strconv.ParseFloat(t.Start, 64)
		dur, _ := strconv.ParseFloat(t.Dur, 64)
		segments = append(segments, transcript.Segment{
			Text:     html.UnescapeString(t.Body),
			Start:    start,
			Duration: dur,
		})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: %w for %s", transcript.ErrFetch, transcript.ErrNoCaptions, videoID)
	}

	f.logger.Debug("fetched captions",
		zap.String("video_id", videoID),
		zap.Int("segments", len(segments)),
	)

	return segments, nil
}

var _ transcript.Fetcher = (*Fetcher)(nil)
