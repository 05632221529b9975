package studycmder

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scholar/api"
	"github.com/papercomputeco/scholar/pkg/apiclient"
	"github.com/papercomputeco/scholar/pkg/pipeline"
)

func fakeClient(handler http.HandlerFunc) *apiclient.Client {
	srv := httptest.NewServer(handler)
	DeferCleanup(srv.Close)

	client, err := apiclient.New(srv.URL, nil)
	Expect(err).NotTo(HaveOccurred())
	return client
}

func replyJSON(v any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(v)
	}
}

var sampleExam = &pipeline.Exam{
	MCQs:  []pipeline.MCQ{{ID: 1, Question: "Where is ATP made?", Options: []string{"A) Mitochondria", "B) Nucleus"}, CorrectAnswer: "A) Mitochondria"}},
	Short: []pipeline.TheoryQuestion{{ID: 1, Question: "Define osmosis.", Answer: "Diffusion of water."}},
	Long:  []pipeline.TheoryQuestion{{ID: 1, Question: "Explain respiration.", Answer: "Glucose is oxidised."}},
}

var _ = Describe("ExamMarkdown", func() {
	It("lists every question with its answer", func() {
		md := ExamMarkdown(sampleExam)
		Expect(md).To(ContainSubstring("## Multiple choice"))
		Expect(md).To(ContainSubstring("- B) Nucleus"))
		Expect(md).To(ContainSubstring("**Answer:** A) Mitochondria"))
		Expect(md).To(ContainSubstring("## Short answer (2 marks)"))
		Expect(md).To(ContainSubstring("## Long answer (5 marks)"))
	})

	It("omits empty sections", func() {
		md := ExamMarkdown(&pipeline.Exam{MCQs: sampleExam.MCQs})
		Expect(md).NotTo(ContainSubstring("marks"))
	})
})

var _ = Describe("exam", func() {
	It("prints the raw JSON under --json", func() {
		client := fakeClient(replyJSON(pipeline.ExamResult{Topic: "cells", Raw: `{"mcqs":[]}`, Exam: sampleExam, Valid: true}))

		out := &bytes.Buffer{}
		c := &examCommander{topic: "cells", raw: true, out: out}
		Expect(c.run(context.Background(), client)).To(Succeed())
		Expect(out.String()).To(ContainSubstring(`{"mcqs":[]}`))
	})

	It("shows unstructured output with the problem", func() {
		client := fakeClient(replyJSON(pipeline.ExamResult{Topic: "cells", Raw: "not json", Problem: "parsing exam JSON"}))

		out := &bytes.Buffer{}
		c := &examCommander{topic: "cells", out: out}
		Expect(c.run(context.Background(), client)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("parsing exam JSON"))
		Expect(out.String()).To(ContainSubstring("not json"))
	})

	It("returns no_corpus as an error", func() {
		client := fakeClient(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "No corpus", Status: "no_corpus"})
		})

		c := &examCommander{topic: "cells", out: io.Discard}
		Expect(c.run(context.Background(), client)).To(MatchError(apiclient.ErrNoCorpus))
	})
})

var _ = Describe("solve", func() {
	var sent api.SolveRequest

	newClient := func() *apiclient.Client {
		return fakeClient(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&sent)
			_ = json.NewEncoder(w).Encode(api.SolveResponse{Solutions: []pipeline.Solution{
				{Question: "What makes ATP?", Answer: "Mitochondria.", Tag: pipeline.TagVerified},
				{Question: "Who painted the Mona Lisa?", Answer: pipeline.OutOfSyllabusAnswer, Tag: pipeline.TagOutOfSyllabus},
			}})
		})
	}

	It("reads the paper from a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "paper.txt")
		Expect(os.WriteFile(path, []byte("Q1. What makes ATP?"), 0o600)).To(Succeed())

		out := &bytes.Buffer{}
		c := &solveCommander{path: path, out: out}
		Expect(c.run(context.Background(), newClient())).To(Succeed())

		Expect(sent.Text).To(Equal("Q1. What makes ATP?"))
		Expect(out.String()).To(ContainSubstring("Mitochondria."))
		Expect(out.String()).To(ContainSubstring("out-of-syllabus"))
	})

	It("reads the paper from stdin for -", func() {
		c := &solveCommander{path: "-", in: strings.NewReader("Q1. What makes ATP?"), out: io.Discard}
		Expect(c.run(context.Background(), newClient())).To(Succeed())
		Expect(sent.Text).To(Equal("Q1. What makes ATP?"))
	})

	It("fails on a missing file", func() {
		c := &solveCommander{path: "/no/such/paper.txt", out: io.Discard}
		Expect(c.run(context.Background(), newClient())).To(HaveOccurred())
	})
})

var _ = Describe("video", func() {
	It("reports a caption fetch failure", func() {
		client := fakeClient(replyJSON(pipeline.TranscriptAnalysis{
			VideoID: "abc123",
			Status:  pipeline.AnalysisFetchFailed,
			Answer:  pipeline.FetchFailedMessage,
			Reason:  "captions disabled",
		}))

		out := &bytes.Buffer{}
		c := &videoCommander{url: "https://youtu.be/abc123", out: out}
		Expect(c.run(context.Background(), client)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("captions disabled"))
	})

	It("prints the analysis", func() {
		client := fakeClient(replyJSON(pipeline.TranscriptAnalysis{
			VideoID: "abc123",
			Status:  pipeline.AnalysisCompleted,
			Answer:  "The video covers glycolysis.",
		}))

		out := &bytes.Buffer{}
		c := &videoCommander{url: "https://youtu.be/abc123", out: out}
		Expect(c.run(context.Background(), client)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("glycolysis"))
	})
})
