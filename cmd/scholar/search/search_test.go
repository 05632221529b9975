package searchcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apisearch "github.com/papercomputeco/scholar/api/search"
	"github.com/papercomputeco/scholar/pkg/apiclient"
)

var _ = Describe("search", func() {
	var (
		output  apisearch.SearchOutput
		gotTopK string
		out     *bytes.Buffer
	)

	newClient := func() *apiclient.Client {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /v1/search", func(w http.ResponseWriter, r *http.Request) {
			gotTopK = r.URL.Query().Get("top_k")
			output.Query = r.URL.Query().Get("query")
			_ = json.NewEncoder(w).Encode(output)
		})
		srv := httptest.NewServer(mux)
		DeferCleanup(srv.Close)

		client, err := apiclient.New(srv.URL, nil)
		Expect(err).NotTo(HaveOccurred())
		return client
	}

	BeforeEach(func() {
		out = &bytes.Buffer{}
		gotTopK = ""
		output = apisearch.SearchOutput{
			Results: []apisearch.SearchResult{
				{Source: "bio.md", Page: 3, Chunk: 0, Score: 0.91, Text: "Mitochondria\nmake ATP."},
				{Source: "chem.txt", Chunk: 2, Score: 0.42, Text: "Enzymes lower activation energy."},
			},
			Count: 2,
		}
	})

	It("prints ranked results", func() {
		cmder := &searchCommander{query: "atp", out: out}
		Expect(cmder.run(context.Background(), newClient())).To(Succeed())

		Expect(gotTopK).To(BeEmpty())
		Expect(out.String()).To(ContainSubstring(`"atp"`))
		Expect(out.String()).To(ContainSubstring("#1"))
		Expect(out.String()).To(ContainSubstring("bio.md p.3"))
		Expect(out.String()).To(ContainSubstring("score: 0.9100"))
		Expect(out.String()).To(ContainSubstring("Mitochondria make ATP."))
	})

	It("forwards --top-k", func() {
		cmder := &searchCommander{query: "atp", topK: 1, out: out}
		Expect(cmder.run(context.Background(), newClient())).To(Succeed())
		Expect(gotTopK).To(Equal("1"))
	})

	It("prints only passage text when quiet", func() {
		cmder := &searchCommander{query: "atp", quiet: true, out: out}
		Expect(cmder.run(context.Background(), newClient())).To(Succeed())
		Expect(out.String()).To(Equal("Mitochondria make ATP.\nEnzymes lower activation energy.\n"))
	})

	It("reports empty results", func() {
		output = apisearch.SearchOutput{Results: []apisearch.SearchResult{}}
		cmder := &searchCommander{query: "atp", out: out}
		Expect(cmder.run(context.Background(), newClient())).To(Succeed())
		Expect(out.String()).To(ContainSubstring("No results found."))
	})

	It("surfaces no_corpus as an error", func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /v1/search", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"no corpus loaded","status":"no_corpus"}`))
		})
		srv := httptest.NewServer(mux)
		DeferCleanup(srv.Close)
		client, err := apiclient.New(srv.URL, nil)
		Expect(err).NotTo(HaveOccurred())

		cmder := &searchCommander{query: "atp", out: out}
		Expect(cmder.run(context.Background(), client)).To(MatchError(apiclient.ErrNoCorpus))
	})
})
