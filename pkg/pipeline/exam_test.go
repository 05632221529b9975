package pipeline_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scholar/pkg/corpus"
	"github.com/papercomputeco/scholar/pkg/llm"
	"github.com/papercomputeco/scholar/pkg/pipeline"
	testutils "github.com/papercomputeco/scholar/pkg/utils/test"
)

const validExam = `{
  "mcqs": [
    {"id": 1, "question": "Where does photosynthesis occur?", "options": ["A) Chloroplast", "B) Nucleus"], "correct_answer": "A) Chloroplast"},
    {"id": 2, "question": "What gas is released?", "options": ["A) CO2", "B) O2"], "correct_answer": "B) O2"}
  ],
  "theory_2_marks": [{"id": 1, "question": "Define chlorophyll.", "answer": "A green pigment."}],
  "theory_5_marks": [{"id": 1, "question": "Explain the Calvin cycle.", "answer": "..."}]
}`

var _ = Describe("Exams", func() {
	var (
		ctx       context.Context
		retriever *fakeRetriever
		completer *testutils.MockCompleter
		exams     *pipeline.Exams
	)

	BeforeEach(func() {
		ctx = context.Background()
		retriever = &fakeRetriever{passages: passages("Photosynthesis happens in chloroplasts.")}
		completer = testutils.NewMockCompleter()
		exams = pipeline.NewExams(pipeline.Config{
			Corpus:                loaded(true),
			Retriever:             retriever,
			Completer:             completer,
			GenerationTemperature: 0.8,
		})
	})

	It("generates a parsed exam from fenced JSON", func() {
		completer.Responses = []string{"```json\n" + validExam + "\n```"}

		result, err := exams.Generate(ctx, "photosynthesis")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Valid).To(BeTrue())
		Expect(result.Exam.MCQs).To(HaveLen(2))
		Expect(result.Exam.MCQs[1].CorrectAnswer).To(Equal("B) O2"))
		Expect(result.Exam.Short).To(HaveLen(1))
		Expect(result.Exam.Long).To(HaveLen(1))
		Expect(result.Raw).NotTo(ContainSubstring("```"))
	})

	It("sends the context and topic as a JSON request", func() {
		completer.Responses = []string{validExam}

		_, err := exams.Generate(ctx, "photosynthesis")
		Expect(err).NotTo(HaveOccurred())
		Expect(retriever.queries).To(Equal([]string{"photosynthesis"}))

		req := completer.LastRequest()
		Expect(req.Format).To(Equal(llm.FormatJSON))
		Expect(req.Temperature).To(Equal(0.8))
		Expect(req.Messages).To(HaveLen(2))
		Expect(req.Messages[0].Content).To(HavePrefix("Context: "))
		Expect(req.Messages[0].Content).To(ContainSubstring("chloroplasts"))
		Expect(req.Messages[1].Content).To(Equal("Topic: photosynthesis"))
	})

	It("returns an unparseable payload with Valid false", func() {
		completer.Responses = []string{"not json at all"}

		result, err := exams.Generate(ctx, "photosynthesis")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Valid).To(BeFalse())
		Expect(result.Exam).To(BeNil())
		Expect(result.Raw).To(Equal("not json at all"))
		Expect(result.Problem).NotTo(BeEmpty())
	})

	It("refuses to run without a corpus", func() {
		exams = pipeline.NewExams(pipeline.Config{
			Corpus:    loaded(false),
			Retriever: retriever,
			Completer: completer,
		})

		_, err := exams.Generate(ctx, "photosynthesis")
		Expect(err).To(MatchError(corpus.ErrNotLoaded))
		Expect(completer.CallCount()).To(BeZero())
	})

	It("rejects an empty topic", func() {
		_, err := exams.Generate(ctx, "   ")
		Expect(err).To(MatchError(pipeline.ErrEmptyInput))
	})

	It("surfaces model failures", func() {
		completer.Err = context.DeadlineExceeded

		_, err := exams.Generate(ctx, "photosynthesis")
		Expect(err).To(MatchError(llm.ErrModel))
	})
})

var _ = Describe("StripFences", func() {
	DescribeTable("removes code fences",
		func(in, want string) {
			Expect(pipeline.StripFences(in)).To(Equal(want))
		},
		Entry("json fence", "```json\n{\"a\":1}\n```", `{"a":1}`),
		Entry("json fence with prose", "Here you go:\n```json\n{}\n```\nEnjoy", "{}"),
		Entry("bare fence", "```\n{}\n```", "{}"),
		Entry("no fence", "  {}  ", "{}"),
	)
})

var _ = Describe("ParseExam", func() {
	It("accepts a well-formed exam", func() {
		exam, err := pipeline.ParseExam(validExam)
		Expect(err).NotTo(HaveOccurred())
		Expect(exam.MCQs[0].Options).To(HaveLen(2))
	})

	DescribeTable("rejects malformed exams",
		func(raw string) {
			_, err := pipeline.ParseExam(raw)
			Expect(err).To(MatchError(pipeline.ErrInvalidExam))
		},
		Entry("invalid json", "{"),
		Entry("no questions", `{"mcqs": []}`),
		Entry("mcq without options", `{"mcqs": [{"question": "Q?", "options": ["A"], "correct_answer": "A"}]}`),
		Entry("mcq without answer", `{"mcqs": [{"question": "Q?", "options": ["A", "B"]}]}`),
		Entry("blank theory question", `{"theory_5_marks": [{"question": " ", "answer": "x"}]}`),
	)

	It("names the failing question", func() {
		_, err := pipeline.ParseExam(strings.Replace(validExam, `"What gas is released?"`, `""`, 1))
		Expect(err).To(MatchError(ContainSubstring("mcq 2")))
	})
})
