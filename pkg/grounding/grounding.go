// Package grounding asks a model to answer strictly from retrieved passages
// and detects when it signals that it could not.
package grounding

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/llm"
	"github.com/papercomputeco/scholar/pkg/vector"
)

// Sentinel is a reserved token the model emits instead of an answer when
// the context does not cover the question.
type Sentinel string

const (
	// SentinelExternal marks chat questions that need outside knowledge.
	SentinelExternal Sentinel = "@@EXTERNAL@@"

	// SentinelMissing marks question-paper questions absent from the corpus.
	SentinelMissing Sentinel = "@@MISSING@@"
)

// DefaultStyle is used when a request names no answer style.
const DefaultStyle = "Detailed"

// Verdict is the outcome of sentinel detection. Answer is empty when
// Grounded is false.
type Verdict struct {
	Grounded bool
	Answer   string
}

// Answerer runs the strict-grounding prompt.
type Answerer struct {
	completer   llm.Completer
	temperature float64
	logger      *zap.Logger
}

// NewAnswerer creates an answerer that calls completer at temperature.
func NewAnswerer(completer llm.Completer, temperature float64, logger *zap.Logger) *Answerer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Answerer{
		completer:   completer,
		temperature: temperature,
		logger:      logger,
	}
}

// Answer asks the model to answer query from passages alone. Model failures
// are returned as errors wrapping llm.ErrModel and never as a negative verdict.
func (a *Answerer) Answer(ctx context.Context, query string, passages []vector.Passage, style string, sentinel Sentinel) (Verdict, error) {
	raw, err := a.completer.Complete(ctx, Request(query, passages, style, sentinel, a.temperature))
	if err != nil {
		return Verdict{}, fmt.Errorf("grounded answer: %w", err)
	}

	v := Detect(raw, sentinel)
	a.logger.Debug("grounded answer",
		zap.Bool("grounded", v.Grounded),
		zap.Int("passages", len(passages)),
	)
	return v, nil
}

// Request builds the strict-grounding completion request.
func Request(query string, passages []vector.Passage, style string, sentinel Sentinel, temperature float64) llm.CompletionRequest {
	if strings.TrimSpace(style) == "" {
		style = DefaultStyle
	}

	system := fmt.Sprintf(
		"You are a strict study assistant. Style: %s. Check the Context. "+
			"If the answer is present, explain it using only the Context. "+
			"If it is NOT present, output ONLY: '%s'", style, sentinel)

	return llm.CompletionRequest{
		System: system,
		Messages: []llm.Message{
			llm.UserMessage(query),
			llm.UserMessage("Context: " + JoinPassages(passages)),
		},
		Temperature: temperature,
	}
}

// JoinPassages concatenates passage texts separated by blank lines.
func JoinPassages(passages []vector.Passage) string {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	return strings.Join(texts, "\n\n")
}

// Detect classifies raw model output. The response is not grounded when a
// token naming the sentinel appears anywhere in it, when the whole trimmed
// response is a fragment of the sentinel, or when nothing but token
// fragments remain after scrubbing. Tokens match regardless of case, inner
// whitespace or a missing '@' ("@@ external @", "@EXTERNAL@"). Otherwise the
// answer is raw with stray fragments scrubbed, which leaves ordinary text
// untouched.
func Detect(raw string, sentinel Sentinel) Verdict {
	if containsToken(raw, sentinel) || isFragment(strings.TrimSpace(raw), string(sentinel)) {
		return Verdict{Grounded: false}
	}

	answer := Scrub(raw)
	if strings.TrimSpace(answer) == "" && strings.TrimSpace(raw) != "" {
		return Verdict{Grounded: false}
	}
	return Verdict{Grounded: true, Answer: answer}
}

// tokenName reduces a sentinel-style token to its bare upper-case name.
func tokenName(token string) string {
	return strings.ToUpper(strings.Join(strings.Fields(strings.Trim(token, "@ \t\r\n")), ""))
}

func containsToken(raw string, sentinel Sentinel) bool {
	name := tokenName(string(sentinel))
	for _, token := range tokenPattern.FindAllString(raw, -1) {
		if tokenName(token) == name {
			return true
		}
	}
	return false
}

func isFragment(trimmed, sentinel string) bool {
	if len(trimmed) < 4 || !strings.Contains(trimmed, "@") {
		return false
	}
	t := strings.Join(strings.Fields(strings.Trim(trimmed, `'"`+"`")), "")
	return strings.Contains(strings.ToUpper(sentinel), strings.ToUpper(t))
}

var (
	tokenPattern    = regexp.MustCompile(`(?i)@{1,2}\s*[a-z_]+\s*@{1,2}`)
	fragmentPattern = regexp.MustCompile(`(?i)@{1,2}\s*[a-z_]+\s*@{1,2}|@@@@|@@[a-z_]+|[a-z_]+@@`)
)

// Scrub removes sentinel-style fragments from text bound for a user.
func Scrub(text string) string {
	if !strings.Contains(text, "@") {
		return text
	}
	return fragmentPattern.ReplaceAllString(text, "")
}
