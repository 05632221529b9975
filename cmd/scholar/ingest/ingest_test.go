package ingestcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scholar/api"
	"github.com/papercomputeco/scholar/pkg/apiclient"
)

var _ = Describe("CollectDocuments", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "b.md"), []byte("# B"), 0o600)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "a.txt"), []byte("page one\fpage two"), 0o600)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "slides.pdf"), []byte("%PDF"), 0o600)).To(Succeed())
	})

	It("expands directories to their text files in name order", func() {
		docs, err := CollectDocuments([]string{dir})
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(Equal([]api.IngestDocument{
			{Source: "a.txt", Pages: []string{"page one", "page two"}},
			{Source: "b.md", Pages: []string{"# B"}},
		}))
	})

	It("names single files by their base name", func() {
		docs, err := CollectDocuments([]string{filepath.Join(dir, "b.md")})
		Expect(err).NotTo(HaveOccurred())
		Expect(docs[0].Source).To(Equal("b.md"))
	})

	It("rejects unsupported files", func() {
		_, err := CollectDocuments([]string{filepath.Join(dir, "slides.pdf")})
		Expect(err).To(MatchError(ContainSubstring("unsupported file type")))
	})

	It("rejects an empty directory", func() {
		_, err := CollectDocuments([]string{GinkgoT().TempDir()})
		Expect(err).To(MatchError(ContainSubstring("no .txt or .md files")))
	})

	It("reports missing paths", func() {
		_, err := CollectDocuments([]string{filepath.Join(dir, "missing.txt")})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("ingest", func() {
	It("sends the documents and prints the new corpus", func() {
		var got api.IngestRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/corpus"))
			Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())
			_ = json.NewEncoder(w).Encode(api.IngestResponse{
				Status: "success",
				Corpus: api.CorpusStatus{Loaded: true, Version: 3, Passages: 7, Sources: []string{"notes.txt"}},
			})
		}))
		DeferCleanup(srv.Close)

		client, err := apiclient.New(srv.URL, nil)
		Expect(err).NotTo(HaveOccurred())

		path := filepath.Join(GinkgoT().TempDir(), "notes.txt")
		Expect(os.WriteFile(path, []byte("Mitochondria make ATP."), 0o600)).To(Succeed())

		out := &bytes.Buffer{}
		c := &ingestCommander{paths: []string{path}, out: out}
		Expect(c.run(context.Background(), client)).To(Succeed())

		Expect(got.Documents).To(HaveLen(1))
		Expect(got.Documents[0].Source).To(Equal("notes.txt"))
		Expect(out.String()).To(ContainSubstring("7"))
	})
})
