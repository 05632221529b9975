package apiclient_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scholar/api"
	"github.com/papercomputeco/scholar/pkg/apiclient"
	"github.com/papercomputeco/scholar/pkg/pipeline"
	"github.com/papercomputeco/scholar/pkg/router"
)

type recorded struct {
	method      string
	path        string
	query       string
	contentType string
	body        []byte
}

var _ = Describe("Client", func() {
	var (
		srv     *httptest.Server
		client  *apiclient.Client
		last    recorded
		respond func(w http.ResponseWriter)
	)

	BeforeEach(func() {
		respond = func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`{}`))
		}
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			last = recorded{
				method:      r.Method,
				path:        r.URL.Path,
				query:       r.URL.RawQuery,
				contentType: r.Header.Get("Content-Type"),
				body:        body,
			}
			respond(w)
		}))
		DeferCleanup(srv.Close)

		var err error
		client, err = apiclient.New(srv.URL, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects targets without a scheme", func() {
		_, err := apiclient.New("localhost:8081", nil)
		Expect(err).To(HaveOccurred())
	})

	It("sends chat requests as JSON", func() {
		respond = func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`{"status":"needs_fallback","answer":"Topic not found in the corpus.","mode":"grounded","session_id":"s1"}`))
		}

		resp, err := client.Chat(context.Background(), api.ChatRequest{Question: "What is ATP?", SessionID: "s1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Status).To(Equal(router.StatusNeedsFallback))
		Expect(resp.SessionID).To(Equal("s1"))

		Expect(last.method).To(Equal(http.MethodPost))
		Expect(last.path).To(Equal("/v1/chat"))
		Expect(last.contentType).To(Equal("application/json"))

		var sent api.ChatRequest
		Expect(json.Unmarshal(last.body, &sent)).To(Succeed())
		Expect(sent.Question).To(Equal("What is ATP?"))
	})

	It("encodes search parameters", func() {
		respond = func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`{"query":"atp","results":[{"source":"bio.txt","text":"ATP"}],"count":1}`))
		}

		out, err := client.Search(context.Background(), "atp synthase", 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Count).To(Equal(1))
		Expect(last.path).To(Equal("/v1/search"))
		Expect(last.query).To(Equal("query=atp+synthase&top_k=2"))
	})

	It("maps a no_corpus error onto ErrNoCorpus", func() {
		respond = func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"No corpus has been ingested.","status":"no_corpus"}`))
		}

		_, err := client.Exam(context.Background(), "cells")
		Expect(err).To(MatchError(apiclient.ErrNoCorpus))

		var apiErr *apiclient.Error
		Expect(err).To(BeAssignableToTypeOf(apiErr))
		Expect(err.Error()).To(ContainSubstring("HTTP 400"))
	})

	It("keeps raw bodies of non-JSON errors", func() {
		respond = func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down\n"))
		}

		err := client.Ping(context.Background())
		Expect(err).To(MatchError(ContainSubstring("upstream down")))
		Expect(err).NotTo(MatchError(apiclient.ErrNoCorpus))
	})

	It("uploads files as multipart", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "notes.md")
		Expect(os.WriteFile(path, []byte("# Cells"), 0o600)).To(Succeed())

		respond = func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`{"status":"success","corpus":{"loaded":true,"version":1,"passages":1}}`))
		}

		out, err := client.UploadFiles(context.Background(), []string{path})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Corpus.Version).To(Equal(int64(1)))
		Expect(last.contentType).To(HavePrefix("multipart/form-data"))
		Expect(string(last.body)).To(ContainSubstring(`filename="notes.md"`))
	})

	It("fails uploads of missing files before calling the server", func() {
		_, err := client.UploadFiles(context.Background(), []string{"/does/not/exist.txt"})
		Expect(err).To(HaveOccurred())
		Expect(last.method).To(BeEmpty())
	})

	It("returns solutions from the pyq endpoint", func() {
		respond = func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`{"solutions":[{"question":"What is ATP?","answer":"Energy.","tag":"corpus-verified"}]}`))
		}

		solutions, err := client.Solve(context.Background(), "Q1. What is ATP?")
		Expect(err).NotTo(HaveOccurred())
		Expect(solutions).To(HaveLen(1))
		Expect(solutions[0].Tag).To(Equal(pipeline.TagVerified))
	})

	It("escapes session ids in paths", func() {
		Expect(client.RenameSession(context.Background(), "a b", "Biology")).To(Succeed())
		Expect(last.method).To(Equal(http.MethodPut))
		Expect(last.path).To(Equal("/v1/sessions/a b/title"))
	})

	It("treats empty success bodies as success", func() {
		respond = func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusNoContent)
		}
		Expect(client.ClearSessions(context.Background())).To(Succeed())
		Expect(last.method).To(Equal(http.MethodDelete))
	})
})
