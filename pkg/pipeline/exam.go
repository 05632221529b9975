package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/corpus"
	"github.com/papercomputeco/scholar/pkg/grounding"
	"github.com/papercomputeco/scholar/pkg/llm"
)

// ErrInvalidExam is returned by ParseExam when the payload is not a usable exam.
var ErrInvalidExam = errors.New("invalid exam payload")

const examPrompt = `Create a unique exam from the Context. Output strictly JSON:
{
  "mcqs": [ { "id": 1, "question": "...", "options": ["A) ...", "B) ...", "C) ...", "D) ..."], "correct_answer": "A) ..." } ],
  "theory_2_marks": [ { "id": 1, "question": "...", "answer": "..." } ],
  "theory_5_marks": [ { "id": 1, "question": "...", "answer": "..." } ]
}
Generate: 2 MCQs, 1 Short (2 Marks), 1 Long (5 Marks).`

// Exam is the structured form of a generated exam.
type Exam struct {
	MCQs  []MCQ            `json:"mcqs"`
	Short []TheoryQuestion `json:"theory_2_marks"`
	Long  []TheoryQuestion `json:"theory_5_marks"`
}

// MCQ is a multiple-choice question.
type MCQ struct {
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// TheoryQuestion is a written-answer question with its model answer.
type TheoryQuestion struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ExamResult carries the raw model payload and, when it parses, the exam.
type ExamResult struct {
	Topic string `json:"topic"`

	// Raw is the model output with code fences removed.
	Raw string `json:"quiz_json"`

	Exam  *Exam `json:"exam,omitempty"`
	Valid bool  `json:"valid"`

	// Problem explains why Valid is false.
	Problem string `json:"problem,omitempty"`
}

// Exams generates exams about a topic from the corpus.
type Exams struct {
	cfg Config
}

// NewExams creates an exam generator.
func NewExams(cfg Config) *Exams {
	return &Exams{cfg: cfg.withDefaults()}
}

// Generate retrieves passages for topic and asks the model for a JSON exam.
// An unparseable payload is still returned, with Valid false.
func (e *Exams) Generate(ctx context.Context, topic string) (*ExamResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrEmptyInput)
	}
	if !e.cfg.Corpus.IsLoaded() {
		return nil, corpus.ErrNotLoaded
	}

	passages, err := e.cfg.Retriever.Retrieve(ctx, topic)
	if err != nil {
		return nil, err
	}

	raw, err := e.cfg.Completer.Complete(ctx, llm.CompletionRequest{
		System: examPrompt,
		Messages: []llm.Message{
			llm.UserMessage("Context: " + grounding.JoinPassages(passages)),
			llm.UserMessage("Topic: " + topic),
		},
		Temperature: e.cfg.GenerationTemperature,
		Format:      llm.FormatJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("generating exam: %w", err)
	}

	result := &ExamResult{Topic: topic, Raw: grounding.Scrub(StripFences(raw))}
	exam, err := ParseExam(result.Raw)
	if err != nil {
		result.Problem = err.Error()
		e.cfg.Logger.Warn("generated exam failed validation",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return result, nil
	}

	result.Exam = exam
	result.Valid = true
	return result, nil
}

// StripFences removes a surrounding markdown code fence, if any.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		return strings.TrimSpace(s)
	}
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// ParseExam decodes and checks an exam payload.
func ParseExam(raw string) (*Exam, error) {
	var exam Exam
	if err := json.Unmarshal([]byte(raw), &exam); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExam, err)
	}

	if len(exam.MCQs)+len(exam.Short)+len(exam.Long) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrInvalidExam)
	}

	for i, q := range exam.MCQs {
		if strings.TrimSpace(q.Question) == "" {
			return nil, fmt.Errorf("%w: mcq %d has no question", ErrInvalidExam, i+1)
		}
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("%w: mcq %d has fewer than two options", ErrInvalidExam, i+1)
		}
		if strings.TrimSpace(q.CorrectAnswer) == "" {
			return nil, fmt.Errorf("%w: mcq %d has no correct answer", ErrInvalidExam, i+1)
		}
	}

	for i, q := range append(append([]TheoryQuestion{}, exam.Short...), exam.Long...) {
		if strings.TrimSpace(q.Question) == "" {
			return nil, fmt.Errorf("%w: theory question %d has no question", ErrInvalidExam, i+1)
		}
	}

	return &exam, nil
}
