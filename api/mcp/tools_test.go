package mcp

import (
	"context"
	"errors"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/corpus"
	"github.com/papercomputeco/scholar/pkg/llm"
	"github.com/papercomputeco/scholar/pkg/router"
	"github.com/papercomputeco/scholar/pkg/vector"
)

type fakeSearcher struct {
	results []vector.Result
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ int) ([]vector.Result, error) {
	return f.results, f.err
}

type fakeAsker struct {
	resp *router.Response
	err  error
	got  router.Request
}

func (f *fakeAsker) Ask(_ context.Context, req router.Request) (*router.Response, error) {
	f.got = req
	return f.resp, f.err
}

func textOf(res *sdkmcp.CallToolResult) string {
	Expect(res.Content).To(HaveLen(1))
	tc, ok := res.Content[0].(*sdkmcp.TextContent)
	Expect(ok).To(BeTrue())
	return tc.Text
}

var _ = Describe("tools", func() {
	var (
		ctx      context.Context
		searcher *fakeSearcher
		asker    *fakeAsker
		server   *Server
	)

	BeforeEach(func() {
		ctx = context.Background()
		searcher = &fakeSearcher{}
		asker = &fakeAsker{}

		var err error
		server, err = NewServer(Config{Searcher: searcher, Asker: asker, Logger: zap.NewNop()})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("search_corpus", func() {
		It("returns structured and serialized results", func() {
			searcher.results = []vector.Result{{
				Passage: vector.Passage{Text: "ATP", Metadata: map[string]string{corpus.MetaSource: "bio.txt"}},
				Score:   0.5,
			}}

			res, out, err := server.handleSearch(ctx, nil, SearchInput{Query: "energy"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.Count).To(Equal(1))
			Expect(out.Results[0].Source).To(Equal("bio.txt"))
			Expect(textOf(res)).To(ContainSubstring(`"source":"bio.txt"`))
		})

		It("reports a missing corpus as a tool error", func() {
			searcher.err = corpus.ErrNotLoaded

			res, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "energy"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(textOf(res)).To(ContainSubstring("No corpus"))
		})

		It("requires a query", func() {
			res, _, err := server.handleSearch(ctx, nil, SearchInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})
	})

	Describe("ask_corpus", func() {
		It("routes the question with the parsed mode", func() {
			asker.resp = &router.Response{Status: router.StatusSuccess, Answer: "42", Source: router.SourceOpenDomain, Mode: router.ModeOpenDomain}

			res, out, err := server.handleAsk(ctx, nil, AskInput{Question: "meaning?", Mode: "internet", Style: "Concise"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(textOf(res)).To(Equal("42"))
			Expect(out.Source).To(Equal(router.SourceOpenDomain))
			Expect(asker.got).To(Equal(router.Request{Question: "meaning?", Mode: router.ModeOpenDomain, Style: "Concise"}))
		})

		It("rejects an unknown mode", func() {
			res, _, err := server.handleAsk(ctx, nil, AskInput{Question: "q", Mode: "psychic"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})

		It("scrubs sentinel fragments from model errors", func() {
			asker.err = errors.Join(llm.ErrModel, errors.New("@@EXTERNAL@@ leaked"))

			res, _, err := server.handleAsk(ctx, nil, AskInput{Question: "q"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(textOf(res)).NotTo(ContainSubstring("@@"))
		})
	})
})
