package statuscmder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scholar/api"
	"github.com/papercomputeco/scholar/pkg/apiclient"
	"github.com/papercomputeco/scholar/pkg/dotdir"
)

var _ = Describe("status", func() {
	var (
		corpus api.CorpusStatus
		out    *bytes.Buffer
		cmder  *statusCommander
	)

	newClient := func() *apiclient.Client {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /ping", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`"pong"`))
		})
		mux.HandleFunc("GET /v1/corpus", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(corpus)
		})
		srv := httptest.NewServer(mux)
		DeferCleanup(srv.Close)

		client, err := apiclient.New(srv.URL, nil)
		Expect(err).NotTo(HaveOccurred())
		return client
	}

	BeforeEach(func() {
		corpus = api.CorpusStatus{}
		out = &bytes.Buffer{}
		cmder = &statusCommander{configDir: GinkgoT().TempDir(), out: out, ddm: dotdir.NewManager()}
	})

	It("reports an unloaded corpus", func() {
		Expect(cmder.run(context.Background(), newClient())).To(Succeed())
		Expect(out.String()).To(ContainSubstring("no corpus"))
		Expect(out.String()).To(ContainSubstring("the next ask starts one"))
	})

	It("reports the loaded corpus and the current session", func() {
		corpus = api.CorpusStatus{Loaded: true, Version: 2, Passages: 12, Sources: []string{"a.txt", "b.md"}, Snapshot: "/tmp/index.json"}
		client := newClient()
		Expect(cmder.ddm.SaveSessionState(&dotdir.SessionState{SessionID: "s1", Server: client.Target()}, cmder.configDir)).To(Succeed())

		Expect(cmder.run(context.Background(), client)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("v2"))
		Expect(out.String()).To(ContainSubstring("a.txt, b.md"))
		Expect(out.String()).To(ContainSubstring("/tmp/index.json"))
		Expect(out.String()).To(ContainSubstring("s1"))
	})

	It("fails when the server is down", func() {
		client, err := apiclient.New("http://127.0.0.1:1", nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(cmder.run(context.Background(), client)).To(MatchError(ContainSubstring("not reachable")))
		Expect(out.String()).To(ContainSubstring("down"))
	})
})
