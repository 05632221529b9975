// Package apiclient is an HTTP client for the scholar API server.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/papercomputeco/scholar/api"
	apisearch "github.com/papercomputeco/scholar/api/search"
	"github.com/papercomputeco/scholar/pkg/pipeline"
	"github.com/papercomputeco/scholar/pkg/session"
)

// DefaultTimeout covers a full model round trip on a local provider.
const DefaultTimeout = 5 * time.Minute

// ErrNoCorpus is matched by errors returned when the server has no corpus.
var ErrNoCorpus = errors.New("no corpus loaded")

// Error is a non-2xx response from the server.
type Error struct {
	StatusCode int
	Message    string
	Status     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("scholar API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Unwrap maps the no_corpus status onto ErrNoCorpus.
func (e *Error) Unwrap() error {
	if e.Status == "no_corpus" {
		return ErrNoCorpus
	}
	return nil
}

// Client talks to one scholar API server.
type Client struct {
	target     string
	base       *url.URL
	httpClient *http.Client
}

// New creates a client for target, e.g. "http://localhost:8081". A nil
// httpClient gets one with DefaultTimeout.
func New(target string, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid API target URL: %q", target)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{target: target, base: base, httpClient: httpClient}, nil
}

// Target returns the server URL.
func (c *Client) Target() string {
	return c.target
}

// Ping checks that the server is up.
func (c *Client) Ping(ctx context.Context) error {
	var out string
	return c.do(ctx, http.MethodGet, "/ping", nil, nil, &out)
}

// CorpusStatus describes the server's active corpus.
func (c *Client) CorpusStatus(ctx context.Context) (*api.CorpusStatus, error) {
	var out api.CorpusStatus
	if err := c.do(ctx, http.MethodGet, "/v1/corpus", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ingest replaces the server's corpus with docs.
func (c *Client) Ingest(ctx context.Context, docs []api.IngestDocument) (*api.IngestResponse, error) {
	var out api.IngestResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/corpus", api.IngestRequest{Documents: docs}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadFiles replaces the server's corpus with the text files at paths.
func (c *Client) UploadFiles(ctx context.Context, paths []string) (*api.IngestResponse, error) {
	body, contentType, err := multipartFiles("files", paths)
	if err != nil {
		return nil, err
	}

	var out api.IngestResponse
	if err := c.do(ctx, http.MethodPost, "/v1/corpus", body, header(contentType), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search ranks corpus passages for query. A topK of zero uses the server
// default.
func (c *Client) Search(ctx context.Context, query string, topK int) (*apisearch.SearchOutput, error) {
	q := url.Values{}
	q.Set("query", query)
	if topK > 0 {
		q.Set("top_k", strconv.Itoa(topK))
	}

	var out apisearch.SearchOutput
	if err := c.do(ctx, http.MethodGet, "/v1/search?"+q.Encode(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat asks one question. A no_corpus outcome is a normal response, not an
// error.
func (c *Client) Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
	var out api.ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSessions returns session summaries, newest first.
func (c *Client) ListSessions(ctx context.Context) ([]session.Summary, error) {
	var out []session.Summary
	if err := c.do(ctx, http.MethodGet, "/v1/sessions", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSession starts an empty session.
func (c *Client) CreateSession(ctx context.Context) (*session.Session, error) {
	var out session.Session
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSession returns a session with its turns.
func (c *Client) GetSession(ctx context.Context, id string) (*session.Session, error) {
	var out session.Session
	if err := c.do(ctx, http.MethodGet, "/v1/sessions/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenameSession sets a session's title.
func (c *Client) RenameSession(ctx context.Context, id, title string) error {
	return c.doJSON(ctx, http.MethodPut, "/v1/sessions/"+url.PathEscape(id)+"/title", api.RenameRequest{Title: title}, nil)
}

// ClearSessions deletes every session.
func (c *Client) ClearSessions(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/v1/sessions", nil, nil, nil)
}

// Exam generates a practice exam for topic.
func (c *Client) Exam(ctx context.Context, topic string) (*pipeline.ExamResult, error) {
	var out pipeline.ExamResult
	if err := c.doJSON(ctx, http.MethodPost, "/v1/exam", api.ExamRequest{Topic: topic}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Solve answers the questions found in a question paper's text.
func (c *Client) Solve(ctx context.Context, text string) ([]pipeline.Solution, error) {
	var out api.SolveResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/pyq", api.SolveRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return out.Solutions, nil
}

// AnalyzeVideo compares a video's captions with the corpus.
func (c *Client) AnalyzeVideo(ctx context.Context, videoURL string) (*pipeline.TranscriptAnalysis, error) {
	var out pipeline.TranscriptAnalysis
	if err := c.doJSON(ctx, http.MethodPost, "/v1/transcript", api.TranscriptRequest{URL: videoURL}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	return c.do(ctx, method, path, bytes.NewReader(data), header("application/json"), out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, h http.Header, out any) error {
	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("building request URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.ResolveReference(ref).String(), body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for k, v := range h {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to scholar API at %s: %w", c.target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(data))}
		var body api.ErrorResponse
		if json.Unmarshal(data, &body) == nil && body.Error != "" {
			apiErr.Message = body.Error
			apiErr.Status = body.Status
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func header(contentType string) http.Header {
	return http.Header{"Content-Type": []string{contentType}}
}

func multipartFiles(field string, paths []string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, "", fmt.Errorf("reading %s: %w", p, err)
		}
		part, err := w.CreateFormFile(field, filepath.Base(p))
		if err != nil {
			return nil, "", fmt.Errorf("adding %s: %w", p, err)
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", fmt.Errorf("adding %s: %w", p, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing upload: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
