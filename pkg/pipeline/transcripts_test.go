package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scholar/pkg/corpus"
	"github.com/papercomputeco/scholar/pkg/pipeline"
	"github.com/papercomputeco/scholar/pkg/transcript"
	testutils "github.com/papercomputeco/scholar/pkg/utils/test"
)

var _ = Describe("Transcripts", func() {
	var (
		ctx         context.Context
		retriever   *fakeRetriever
		fetcher     *testutils.MockFetcher
		completer   *testutils.MockCompleter
		transcripts *pipeline.Transcripts
	)

	BeforeEach(func() {
		ctx = context.Background()
		retriever = &fakeRetriever{passages: passages("Unit 3: thermodynamics.")}
		fetcher = &testutils.MockFetcher{Segments: []transcript.Segment{
			{Text: "Today we cover", Start: 0, Duration: 1},
			{Text: "the first law of thermodynamics", Start: 1, Duration: 2},
		}}
		completer = testutils.NewMockCompleter("The video covers the first law.")
		transcripts = pipeline.NewTranscripts(pipeline.Config{
			Corpus:    loaded(true),
			Retriever: retriever,
			Completer: completer,
			Fetcher:   fetcher,
		})
	})

	It("compares the transcript with the corpus", func() {
		result, err := transcripts.Analyze(ctx, "https://www.youtube.com/watch?v=abc_123-X")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Status).To(Equal(pipeline.AnalysisCompleted))
		Expect(result.VideoID).To(Equal("abc_123-X"))
		Expect(result.Answer).To(Equal("The video covers the first law."))

		Expect(fetcher.Requested).To(Equal([]string{"abc_123-X"}))
		Expect(retriever.queries).To(Equal([]string{pipeline.AnalysisQuery}))

		req := completer.LastRequest()
		Expect(req.Messages[0].Content).To(Equal("Video: Today we cover the first law of thermodynamics"))
		Expect(req.Messages[1].Content).To(ContainSubstring("thermodynamics"))
	})

	It("truncates long transcripts", func() {
		fetcher.Segments = []transcript.Segment{{Text: strings.Repeat("ü", 9000)}}

		_, err := transcripts.Analyze(ctx, "https://youtu.be/abc")
		Expect(err).NotTo(HaveOccurred())

		sent := strings.TrimPrefix(completer.LastRequest().Messages[0].Content, "Video: ")
		Expect(utf8.RuneCountInString(sent)).To(Equal(pipeline.DefaultTranscriptPrefixChars))
	})

	It("reports a fetch failure as a result", func() {
		fetcher.Err = errors.New("connection refused")

		result, err := transcripts.Analyze(ctx, "https://youtu.be/abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Status).To(Equal(pipeline.AnalysisFetchFailed))
		Expect(result.Answer).To(Equal(pipeline.FetchFailedMessage))
		Expect(result.Reason).To(ContainSubstring("connection refused"))
		Expect(completer.CallCount()).To(BeZero())
	})

	It("reports an invalid url as a fetch failure", func() {
		result, err := transcripts.Analyze(ctx, "https://example.com/watch?v=../etc")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Status).To(Equal(pipeline.AnalysisFetchFailed))
		Expect(fetcher.Requested).To(BeEmpty())
	})

	It("refuses to run without a corpus", func() {
		transcripts = pipeline.NewTranscripts(pipeline.Config{
			Corpus:    loaded(false),
			Retriever: retriever,
			Completer: completer,
			Fetcher:   fetcher,
		})

		_, err := transcripts.Analyze(ctx, "https://youtu.be/abc")
		Expect(err).To(MatchError(corpus.ErrNotLoaded))
	})
})
