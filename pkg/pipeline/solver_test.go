package pipeline_test

import (
	"context"
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scholar/pkg/corpus"
	"github.com/papercomputeco/scholar/pkg/grounding"
	"github.com/papercomputeco/scholar/pkg/llm"
	"github.com/papercomputeco/scholar/pkg/pipeline"
	testutils "github.com/papercomputeco/scholar/pkg/utils/test"
)

var _ = Describe("Solver", func() {
	var (
		ctx       context.Context
		retriever *fakeRetriever
		extractor *testutils.MockCompleter
		answerer  *testutils.MockCompleter
		solver    *pipeline.Solver
	)

	BeforeEach(func() {
		ctx = context.Background()
		retriever = &fakeRetriever{passages: passages("Mitochondria produce ATP.")}
		extractor = testutils.NewMockCompleter()
		answerer = &testutils.MockCompleter{
			Respond: func(req llm.CompletionRequest) string {
				if strings.Contains(req.Messages[0].Content, "ATP") {
					return "Mitochondria produce ATP."
				}
				return "@@MISSING@@"
			},
		}
		solver = pipeline.NewSolver(pipeline.Config{
			Corpus:    loaded(true),
			Retriever: retriever,
			Completer: extractor,
			Answerer:  grounding.NewAnswerer(answerer, 0.3, nil),
		})
	})

	It("tags answered and out-of-syllabus questions", func() {
		extractor.Responses = []string{"1. What produces ATP?\n2. Who won the 1998 World Cup?"}

		solutions, err := solver.Solve(ctx, "Past paper text")
		Expect(err).NotTo(HaveOccurred())
		Expect(solutions).To(HaveLen(2))

		Expect(solutions[0].Question).To(Equal("What produces ATP?"))
		Expect(solutions[0].Tag).To(Equal(pipeline.TagVerified))
		Expect(solutions[0].Answer).To(Equal("Mitochondria produce ATP."))

		Expect(solutions[1].Tag).To(Equal(pipeline.TagOutOfSyllabus))
		Expect(solutions[1].Answer).To(Equal(pipeline.OutOfSyllabusAnswer))
		Expect(retriever.queries).To(HaveLen(2))
	})

	It("asks for the missing sentinel", func() {
		extractor.Responses = []string{"What produces ATP?"}

		_, err := solver.Solve(ctx, "Past paper text")
		Expect(err).NotTo(HaveOccurred())
		Expect(answerer.LastRequest().System).To(ContainSubstring(string(grounding.SentinelMissing)))
	})

	It("answers at most three questions", func() {
		extractor.Responses = []string{"A?\nB?\nC?\nD?\nE?"}

		solutions, err := solver.Solve(ctx, "Past paper text")
		Expect(err).NotTo(HaveOccurred())
		Expect(solutions).To(HaveLen(3))
		Expect(answerer.CallCount()).To(Equal(3))
	})

	It("only sends the leading part of the paper", func() {
		extractor.Responses = []string{""}
		paper := strings.Repeat("é", 5000)

		solutions, err := solver.Solve(ctx, paper)
		Expect(err).NotTo(HaveOccurred())
		Expect(solutions).To(BeEmpty())

		sent := strings.TrimPrefix(extractor.LastRequest().Messages[0].Content, "Text: ")
		Expect(utf8.RuneCountInString(sent)).To(Equal(pipeline.DefaultSolverPrefixChars))
	})

	It("refuses to run without a corpus", func() {
		solver = pipeline.NewSolver(pipeline.Config{
			Corpus:    loaded(false),
			Retriever: retriever,
			Completer: extractor,
			Answerer:  grounding.NewAnswerer(answerer, 0.3, nil),
		})

		_, err := solver.Solve(ctx, "Past paper text")
		Expect(err).To(MatchError(corpus.ErrNotLoaded))
		Expect(extractor.CallCount()).To(BeZero())
	})

	It("rejects blank input", func() {
		_, err := solver.Solve(ctx, " \n ")
		Expect(err).To(MatchError(pipeline.ErrEmptyInput))
	})
})

var _ = Describe("ExtractQuestions", func() {
	It("keeps question lines and strips list markers", func() {
		raw := "Here are the questions:\n1. What is ATP?\n- Q2: Define osmosis?\n* Why is the sky blue?\nThanks"
		Expect(pipeline.ExtractQuestions(raw, 3)).To(Equal([]string{
			"What is ATP?",
			"Define osmosis?",
			"Why is the sky blue?",
		}))
	})

	It("stops at the limit", func() {
		Expect(pipeline.ExtractQuestions("a?\nb?\nc?", 2)).To(Equal([]string{"a?", "b?"}))
	})

	It("returns nothing when no line is a question", func() {
		Expect(pipeline.ExtractQuestions("no questions here", 3)).To(BeEmpty())
	})
})
