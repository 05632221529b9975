// Package router decides between a grounded answer, a fallback prompt and an
// open-domain answer for each question.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/corpus"
	"github.com/papercomputeco/scholar/pkg/grounding"
	"github.com/papercomputeco/scholar/pkg/llm"
	"github.com/papercomputeco/scholar/pkg/vector"
)

// Mode selects the answer path for one request.
type Mode string

const (
	ModeGrounded   Mode = "grounded"
	ModeOpenDomain Mode = "open-domain"
)

// ErrInvalidMode is returned by ParseMode for unknown names.
var ErrInvalidMode = errors.New("invalid mode")

// ParseMode accepts the canonical names and the legacy aliases "syllabus"
// and "internet". An empty string is grounded.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "grounded", "syllabus", "corpus":
		return ModeGrounded, nil
	case "open-domain", "open", "internet":
		return ModeOpenDomain, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Status is the outcome reported to callers.
type Status string

const (
	StatusSuccess       Status = "success"
	StatusNoCorpus      Status = "no_corpus"
	StatusNeedsFallback Status = "needs_fallback"
)

// Source names where a successful answer came from.
type Source string

const (
	SourceCorpus     Source = "corpus"
	SourceOpenDomain Source = "open-domain"
)

// User-facing messages for non-answer statuses.
const (
	NoCorpusMessage      = "No corpus has been ingested. Upload documents first."
	NeedsFallbackMessage = "Topic not found in the corpus."
)

// Request is a single question.
type Request struct {
	Question string
	Mode     Mode
	Style    string
}

// Response is the routed answer. Source is empty unless Status is success.
type Response struct {
	Status Status `json:"status"`
	Answer string `json:"answer"`
	Source Source `json:"source,omitempty"`
	Mode   Mode   `json:"mode"`
}

// PassageRetriever fetches context for a question.
type PassageRetriever interface {
	Retrieve(ctx context.Context, query string) ([]vector.Passage, error)
}

// Config holds the collaborators of a Router.
type Config struct {
	Retriever PassageRetriever
	Answerer  *grounding.Answerer

	// OpenCompleter serves open-domain questions.
	OpenCompleter   llm.Completer
	OpenTemperature float64

	Logger *zap.Logger
}

// Router implements the two-step fallback protocol. It keeps no state
// between requests.
type Router struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a router.
func New(cfg Config) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{cfg: cfg, logger: logger}
}

// Ask routes req. Grounded mode answers from the corpus or reports
// needs_fallback; it never escalates to open-domain on its own.
func (r *Router) Ask(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, errors.New("question is required")
	}

	switch req.Mode {
	case ModeOpenDomain:
		return r.askOpen(ctx, req)
	case ModeGrounded, "":
		return r.askGrounded(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}
}

func (r *Router) askGrounded(ctx context.Context, req Request) (*Response, error) {
	passages, err := r.cfg.Retriever.Retrieve(ctx, req.Question)
	if errors.Is(err, corpus.ErrNotLoaded) {
		return &Response{Status: StatusNoCorpus, Answer: NoCorpusMessage, Mode: ModeGrounded}, nil
	}
	if err != nil {
		return nil, err
	}

	v, err := r.cfg.Answerer.Answer(ctx, req.Question, passages, req.Style, grounding.SentinelExternal)
	if err != nil {
		return nil, err
	}

	if !v.Grounded {
		r.logger.Debug("question not covered by corpus")
		return &Response{Status: StatusNeedsFallback, Answer: NeedsFallbackMessage, Mode: ModeGrounded}, nil
	}

	return &Response{
		Status: StatusSuccess,
		Answer: v.Answer,
		Source: SourceCorpus,
		Mode:   ModeGrounded,
	}, nil
}

func (r *Router) askOpen(ctx context.Context, req Request) (*Response, error) {
	style := req.Style
	if strings.TrimSpace(style) == "" {
		style = grounding.DefaultStyle
	}

	out, err := r.cfg.OpenCompleter.Complete(ctx, llm.CompletionRequest{
		System:      "You are a helpful expert. Answer using general knowledge. Style: " + style + ".",
		Messages:    []llm.Message{llm.UserMessage(req.Question)},
		Temperature: r.cfg.OpenTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("open-domain answer: %w", err)
	}

	return &Response{
		Status: StatusSuccess,
		Answer: grounding.Scrub(out),
		Source: SourceOpenDomain,
		Mode:   ModeOpenDomain,
	}, nil
}
