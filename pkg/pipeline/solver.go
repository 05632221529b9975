package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/corpus"
	"github.com/papercomputeco/scholar/pkg/grounding"
	"github.com/papercomputeco/scholar/pkg/llm"
	"github.com/papercomputeco/scholar/pkg/utils"
)

// Tag labels a solved question.
type Tag string

const (
	TagVerified      Tag = "corpus-verified"
	TagOutOfSyllabus Tag = "out-of-syllabus"
)

// OutOfSyllabusAnswer replaces the answer of a question the corpus does not cover.
const OutOfSyllabusAnswer = "This question is out of syllabus (not found in the corpus)."

// Solution is one extracted question and its grounded answer.
type Solution struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Tag      Tag    `json:"tag"`
}

// Solver extracts questions from a past paper and answers each from the corpus.
type Solver struct {
	cfg Config
}

// NewSolver creates a question-paper solver.
func NewSolver(cfg Config) *Solver {
	return &Solver{cfg: cfg.withDefaults()}
}

// Solve extracts up to SolverMaxQuestions questions from the leading
// SolverPrefixChars characters of text and answers each one.
func (s *Solver) Solve(ctx context.Context, text string) ([]Solution, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: question paper has no text", ErrEmptyInput)
	}
	if !s.cfg.Corpus.IsLoaded() {
		return nil, corpus.ErrNotLoaded
	}

	raw, err := s.cfg.Completer.Complete(ctx, llm.CompletionRequest{
		System: fmt.Sprintf("Extract the %d main questions. Write each question on its own line.",
			s.cfg.SolverMaxQuestions),
		Messages:    []llm.Message{llm.UserMessage("Text: " + utils.Prefix(text, s.cfg.SolverPrefixChars))},
		Temperature: s.cfg.GroundedTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("extracting questions: %w", err)
	}

	questions := ExtractQuestions(raw, s.cfg.SolverMaxQuestions)
	s.cfg.Logger.Debug("extracted questions", zap.Int("count", len(questions)))

	solutions := make([]Solution, 0, len(questions))
	for _, q := range questions {
		passages, err := s.cfg.Retriever.Retrieve(ctx, q)
		if err != nil {
			return nil, err
		}

		v, err := s.cfg.Answerer.Answer(ctx, q, passages, "", grounding.SentinelMissing)
		if err != nil {
			return nil, fmt.Errorf("solving %q: %w", utils.Truncate(q, 40), err)
		}

		if v.Grounded {
			solutions = append(solutions, Solution{Question: q, Answer: v.Answer, Tag: TagVerified})
		} else {
			solutions = append(solutions, Solution{Question: q, Answer: OutOfSyllabusAnswer, Tag: TagOutOfSyllabus})
		}
	}

	return solutions, nil
}

var listMarker = regexp.MustCompile(`^(?:(?:[-*•]+|\(?[0-9]{1,2}[.)]|[Qq][0-9]{1,2}[.:)]?)\s*)+`)

// ExtractQuestions keeps the lines of raw that contain a question mark,
// strips list markers and returns at most max of them in order.
func ExtractQuestions(raw string, max int) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if len(out) == max {
			break
		}
		if !strings.Contains(line, "?") {
			continue
		}
		q := strings.TrimSpace(listMarker.ReplaceAllString(strings.TrimSpace(line), ""))
		if q == "" || q == "?" {
			continue
		}
		out = append(out, q)
	}
	return out
}
