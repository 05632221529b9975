package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/chunker"
	"github.com/papercomputeco/scholar/pkg/corpus"
	"github.com/papercomputeco/scholar/pkg/grounding"
	"github.com/papercomputeco/scholar/pkg/llm"
	"github.com/papercomputeco/scholar/pkg/pipeline"
	"github.com/papercomputeco/scholar/pkg/retriever"
	"github.com/papercomputeco/scholar/pkg/router"
	"github.com/papercomputeco/scholar/pkg/session"
	"github.com/papercomputeco/scholar/pkg/session/inmemory"
	testutils "github.com/papercomputeco/scholar/pkg/utils/test"
)

const examJSON = `{"mcqs":[{"id":1,"question":"Where is ATP made?","options":["A) Mitochondria","B) Nucleus"],"correct_answer":"A) Mitochondria"}],"theory_2_marks":[],"theory_5_marks":[]}`

type testStack struct {
	server   *Server
	manager  *corpus.Manager
	sessions *inmemory.Store
	grounded *testutils.MockCompleter
	open     *testutils.MockCompleter
	fetcher  *testutils.MockFetcher
}

func newTestStack() *testStack {
	embedder := testutils.NewMockEmbedder()
	manager, err := corpus.NewManager(corpus.Config{
		Splitter:    mustSplitter(),
		Embedder:    embedder,
		Snapshotter: testutils.NewMockSnapshotter(),
	})
	Expect(err).NotTo(HaveOccurred())

	ret := retriever.New(manager, embedder, 4, zap.NewNop())

	grounded := &testutils.MockCompleter{
		Respond: func(req llm.CompletionRequest) string {
			switch {
			case strings.HasPrefix(req.System, "Extract"):
				return "1. What makes ATP?\n2. Who painted the Mona Lisa?"
			case strings.HasPrefix(req.System, "Compare"):
				return "The video covers cellular respiration."
			case strings.Contains(req.Messages[0].Content, "ATP"):
				return "Mitochondria make ATP."
			default:
				return string(grounding.SentinelExternal)
			}
		},
	}
	open := &testutils.MockCompleter{Default: "Leonardo da Vinci painted it."}
	generator := &testutils.MockCompleter{Default: "```json\n" + examJSON + "\n```"}
	fetcher := &testutils.MockFetcher{}

	answerer := grounding.NewAnswerer(grounded, 0, nil)
	rt := router.New(router.Config{
		Retriever:       ret,
		Answerer:        answerer,
		OpenCompleter:   open,
		OpenTemperature: 0.7,
	})

	pcfg := pipeline.Config{
		Corpus:    manager,
		Retriever: ret,
		Answerer:  answerer,
		Completer: grounded,
		Fetcher:   fetcher,
	}
	examCfg := pcfg
	examCfg.Completer = generator

	sessions := inmemory.NewStore(inmemory.Config{}, nil)

	server, err := NewServer(Config{
		ListenAddr:       ":0",
		Corpus:           manager,
		Searcher:         ret,
		Router:           rt,
		Sessions:         sessions,
		Exams:            pipeline.NewExams(examCfg),
		Solver:           pipeline.NewSolver(pcfg),
		Transcripts:      pipeline.NewTranscripts(pcfg),
		SnapshotLocation: "memory://mock",
	}, zap.NewNop())
	Expect(err).NotTo(HaveOccurred())

	return &testStack{
		server:   server,
		manager:  manager,
		sessions: sessions,
		grounded: grounded,
		open:     open,
		fetcher:  fetcher,
	}
}

func (t *testStack) do(method, path string, body any) (int, []byte) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return t.send(req)
}

func (t *testStack) send(req *http.Request) (int, []byte) {
	resp, err := t.server.app.Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp.StatusCode, data
}

func (t *testStack) ingest() {
	code, body := t.do(http.MethodPost, "/v1/corpus", IngestRequest{Documents: []IngestDocument{
		{Source: "biology.txt", Text: "Mitochondria make ATP through cellular respiration.\fChloroplasts run photosynthesis."},
	}})
	Expect(code).To(Equal(http.StatusOK), string(body))
}

func multipartRequest(path, field string, files map[string]string) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile(field, name)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte(content))
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(w.Close()).To(Succeed())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode[T any](data []byte) T {
	var v T
	Expect(json.Unmarshal(data, &v)).To(Succeed(), string(data))
	return v
}

var _ = Describe("NewServer", func() {
	It("requires its core collaborators", func() {
		_, err := NewServer(Config{}, nil)
		Expect(err).To(MatchError(ContainSubstring("corpus service is required")))
	})
})

var _ = Describe("Server", func() {
	var stack *testStack

	BeforeEach(func() {
		stack = newTestStack()
	})

	It("answers ping", func() {
		code, body := stack.do(http.MethodGet, "/ping", nil)
		Expect(code).To(Equal(http.StatusOK))
		Expect(string(body)).To(Equal(`"pong"`))
	})

	Describe("corpus", func() {
		It("reports an unloaded corpus", func() {
			code, body := stack.do(http.MethodGet, "/v1/corpus", nil)
			Expect(code).To(Equal(http.StatusOK))
			Expect(decode[CorpusStatus](body).Loaded).To(BeFalse())
		})

		It("ingests JSON documents", func() {
			stack.ingest()

			code, body := stack.do(http.MethodGet, "/v1/corpus", nil)
			Expect(code).To(Equal(http.StatusOK))

			status := decode[CorpusStatus](body)
			Expect(status.Loaded).To(BeTrue())
			Expect(status.Version).To(Equal(int64(1)))
			Expect(status.Passages).To(Equal(2))
			Expect(status.Sources).To(Equal([]string{"biology.txt"}))
			Expect(status.Snapshot).To(Equal("memory://mock"))
		})

		It("ingests uploaded text files", func() {
			code, body := stack.send(multipartRequest("/v1/corpus", "files", map[string]string{
				"notes.md": "# Cells\n\nMitochondria make ATP.",
			}))
			Expect(code).To(Equal(http.StatusOK), string(body))
			Expect(decode[IngestResponse](body).Corpus.Sources).To(Equal([]string{"notes.md"}))
		})

		It("rejects binary uploads", func() {
			code, body := stack.send(multipartRequest("/v1/corpus", "files", map[string]string{
				"slides.pdf": "%PDF-1.7",
			}))
			Expect(code).To(Equal(http.StatusBadRequest))
			Expect(string(body)).To(ContainSubstring("unsupported file type"))
			Expect(stack.manager.IsLoaded()).To(BeFalse())
		})

		It("maps an empty ingest to 400 and keeps the old corpus", func() {
			stack.ingest()

			code, _ := stack.do(http.MethodPost, "/v1/corpus", IngestRequest{})
			Expect(code).To(Equal(http.StatusBadRequest))

			cur, ok := stack.manager.Current()
			Expect(ok).To(BeTrue())
			Expect(cur.Version).To(Equal(int64(1)))
		})
	})

	Describe("search", func() {
		It("requires a query", func() {
			code, _ := stack.do(http.MethodGet, "/v1/search", nil)
			Expect(code).To(Equal(http.StatusBadRequest))
		})

		It("rejects a bad top_k", func() {
			code, _ := stack.do(http.MethodGet, "/v1/search?query=atp&top_k=zero", nil)
			Expect(code).To(Equal(http.StatusBadRequest))
		})

		It("reports no_corpus before ingest", func() {
			code, body := stack.do(http.MethodGet, "/v1/search?query=atp", nil)
			Expect(code).To(Equal(http.StatusBadRequest))
			Expect(decode[ErrorResponse](body).Status).To(Equal("no_corpus"))
		})

		It("returns ranked passages", func() {
			stack.ingest()

			code, body := stack.do(http.MethodGet, "/v1/search?query=atp&top_k=1", nil)
			Expect(code).To(Equal(http.StatusOK))
			Expect(string(body)).To(ContainSubstring(`"source":"biology.txt"`))
			Expect(string(body)).To(ContainSubstring(`"count":1`))
		})
	})

	Describe("chat", func() {
		It("reports no_corpus with a 200", func() {
			code, body := stack.do(http.MethodPost, "/v1/chat", ChatRequest{Question: "What makes ATP?"})
			Expect(code).To(Equal(http.StatusOK))
			Expect(decode[ChatResponse](body).Status).To(Equal(router.StatusNoCorpus))
		})

		It("requires a question", func() {
			code, _ := stack.do(http.MethodPost, "/v1/chat", ChatRequest{Question: "  "})
			Expect(code).To(Equal(http.StatusBadRequest))
		})

		It("rejects unknown modes", func() {
			code, _ := stack.do(http.MethodPost, "/v1/chat", ChatRequest{Question: "q", Mode: "psychic"})
			Expect(code).To(Equal(http.StatusBadRequest))
		})

		It("answers from the corpus and records both turns", func() {
			stack.ingest()

			code, body := stack.do(http.MethodPost, "/v1/chat", ChatRequest{
				Question:  "What makes ATP in the cell?",
				SessionID: "s1",
			})
			Expect(code).To(Equal(http.StatusOK))

			resp := decode[ChatResponse](body)
			Expect(resp.Status).To(Equal(router.StatusSuccess))
			Expect(resp.Source).To(Equal(router.SourceCorpus))
			Expect(resp.Answer).To(Equal("Mitochondria make ATP."))
			Expect(resp.SessionID).To(Equal("s1"))

			sess, err := stack.sessions.Get(context.Background(), "s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(sess.Title).To(Equal("What makes ATP in"))
			Expect(sess.Turns).To(Equal([]session.Turn{
				{Role: session.RoleUser, Content: "What makes ATP in the cell?"},
				{Role: session.RoleAssistant, Content: "Mitochondria make ATP.", Source: "corpus"},
			}))
		})

		It("runs the two-step fallback without duplicating the question", func() {
			stack.ingest()

			code, body := stack.do(http.MethodPost, "/v1/chat", ChatRequest{Question: "Who painted the Mona Lisa?", SessionID: "s2"})
			Expect(code).To(Equal(http.StatusOK))
			first := decode[ChatResponse](body)
			Expect(first.Status).To(Equal(router.StatusNeedsFallback))
			Expect(first.Answer).NotTo(ContainSubstring("@@"))
			Expect(stack.open.CallCount()).To(BeZero())

			code, body = stack.do(http.MethodPost, "/v1/chat", ChatRequest{Question: "Who painted the Mona Lisa?", Mode: "internet", SessionID: "s2"})
			Expect(code).To(Equal(http.StatusOK))
			second := decode[ChatResponse](body)
			Expect(second.Status).To(Equal(router.StatusSuccess))
			Expect(second.Source).To(Equal(router.SourceOpenDomain))

			sess, err := stack.sessions.Get(context.Background(), "s2")
			Expect(err).NotTo(HaveOccurred())
			Expect(sess.Turns).To(Equal([]session.Turn{
				{Role: session.RoleUser, Content: "Who painted the Mona Lisa?"},
				{Role: session.RoleAssistant, Content: "Leonardo da Vinci painted it.", Source: "open-domain"},
			}))
		})

		It("maps model failures to 502 without sentinel text", func() {
			stack.ingest()
			stack.grounded.Err = errors.New("upstream said @@EXTERNAL@@")

			code, body := stack.do(http.MethodPost, "/v1/chat", ChatRequest{Question: "What makes ATP?"})
			Expect(code).To(Equal(http.StatusBadGateway))
			Expect(string(body)).NotTo(ContainSubstring("@@"))
		})
	})

	Describe("sessions", func() {
		It("creates, lists, renames and clears", func() {
			code, body := stack.do(http.MethodPost, "/v1/sessions", nil)
			Expect(code).To(Equal(http.StatusCreated))
			created := decode[session.Session](body)
			Expect(created.Title).To(Equal(session.DefaultTitle))

			code, _ = stack.do(http.MethodPut, "/v1/sessions/"+created.ID+"/title", RenameRequest{Title: "Biology"})
			Expect(code).To(Equal(http.StatusNoContent))

			code, body = stack.do(http.MethodGet, "/v1/sessions", nil)
			Expect(code).To(Equal(http.StatusOK))
			Expect(decode[[]session.Summary](body)).To(Equal([]session.Summary{{ID: created.ID, Title: "Biology"}}))

			code, _ = stack.do(http.MethodDelete, "/v1/sessions", nil)
			Expect(code).To(Equal(http.StatusNoContent))

			code, _ = stack.do(http.MethodGet, "/v1/sessions/"+created.ID, nil)
			Expect(code).To(Equal(http.StatusNotFound))
		})

		It("rejects blank titles", func() {
			_, body := stack.do(http.MethodPost, "/v1/sessions", nil)
			created := decode[session.Session](body)

			code, _ := stack.do(http.MethodPut, "/v1/sessions/"+created.ID+"/title", RenameRequest{Title: " "})
			Expect(code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("pipelines", func() {
		It("returns no_corpus for an exam before ingest", func() {
			code, body := stack.do(http.MethodPost, "/v1/exam", ExamRequest{Topic: "cells"})
			Expect(code).To(Equal(http.StatusBadRequest))
			Expect(decode[ErrorResponse](body).Status).To(Equal("no_corpus"))
		})

		It("generates an exam", func() {
			stack.ingest()

			code, body := stack.do(http.MethodPost, "/v1/exam", ExamRequest{Topic: "cells"})
			Expect(code).To(Equal(http.StatusOK))

			result := decode[pipeline.ExamResult](body)
			Expect(result.Valid).To(BeTrue())
			Expect(result.Exam.MCQs).To(HaveLen(1))
		})

		It("requires a topic", func() {
			code, _ := stack.do(http.MethodPost, "/v1/exam", ExamRequest{})
			Expect(code).To(Equal(http.StatusBadRequest))
		})

		It("solves a question paper sent as JSON", func() {
			stack.ingest()

			code, body := stack.do(http.MethodPost, "/v1/pyq", SolveRequest{Text: "Q1. What makes ATP? Q2. Who painted the Mona Lisa?"})
			Expect(code).To(Equal(http.StatusOK))

			resp := decode[SolveResponse](body)
			Expect(resp.Solutions).To(HaveLen(2))
			Expect(resp.Solutions[0].Tag).To(Equal(pipeline.TagVerified))
			Expect(resp.Solutions[1].Tag).To(Equal(pipeline.TagOutOfSyllabus))
			Expect(resp.Solutions[1].Answer).To(Equal(pipeline.OutOfSyllabusAnswer))
		})

		It("solves an uploaded question paper", func() {
			stack.ingest()

			code, body := stack.send(multipartRequest("/v1/pyq", "file", map[string]string{"paper.txt": "What makes ATP?"}))
			Expect(code).To(Equal(http.StatusOK), string(body))
			Expect(decode[SolveResponse](body).Solutions).NotTo(BeEmpty())
		})

		It("rejects an empty paper", func() {
			stack.ingest()

			code, _ := stack.do(http.MethodPost, "/v1/pyq", SolveRequest{})
			Expect(code).To(Equal(http.StatusBadRequest))
		})

		It("reports a caption fetch failure as a result", func() {
			stack.ingest()
			stack.fetcher.Err = errors.New("no captions")

			code, body := stack.do(http.MethodPost, "/v1/transcript", TranscriptRequest{URL: "https://www.youtube.com/watch?v=abc123"})
			Expect(code).To(Equal(http.StatusOK))

			result := decode[pipeline.TranscriptAnalysis](body)
			Expect(result.Status).To(Equal(pipeline.AnalysisFetchFailed))
			Expect(result.VideoID).To(Equal("abc123"))
		})
	})
})

var _ = Describe("MCP mount", func() {
	It("forwards /mcp to the configured handler", func() {
		manager, err := corpus.NewManager(corpus.Config{
			Splitter: mustSplitter(),
			Embedder: testutils.NewMockEmbedder(),
		})
		Expect(err).NotTo(HaveOccurred())

		server, err := NewServer(Config{
			Corpus:   manager,
			Router:   router.New(router.Config{}),
			Sessions: inmemory.NewStore(inmemory.Config{}, nil),
			MCPHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			}),
		}, nil)
		Expect(err).NotTo(HaveOccurred())

		resp, err := server.app.Test(httptest.NewRequest(http.MethodPost, "/mcp", nil), -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusTeapot))
	})
})

func mustSplitter() *chunker.Splitter {
	s, err := chunker.New(200, 20)
	Expect(err).NotTo(HaveOccurred())
	return s
}
