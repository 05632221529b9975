package sessionscmder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scholar/pkg/apiclient"
	"github.com/papercomputeco/scholar/pkg/dotdir"
	"github.com/papercomputeco/scholar/pkg/session"
)

var _ = Describe("sessions", func() {
	var (
		cmder   *sessionsCommander
		client  *apiclient.Client
		out     *bytes.Buffer
		cleared bool
		renamed string
	)

	BeforeEach(func() {
		cleared = false
		renamed = ""

		mux := http.NewServeMux()
		mux.HandleFunc("GET /v1/sessions", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode([]session.Summary{
				{ID: "s2", Title: "Osmosis"},
				{ID: "s1", Title: "Cells"},
			})
		})
		mux.HandleFunc("DELETE /v1/sessions", func(w http.ResponseWriter, _ *http.Request) {
			cleared = true
			w.WriteHeader(http.StatusNoContent)
		})
		mux.HandleFunc("GET /v1/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
			if r.PathValue("id") != "s1" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":"session not found"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(session.Session{ID: "s1", Title: "Cells", Turns: []session.Turn{
				{Role: session.RoleUser, Content: "What makes ATP?"},
				{Role: session.RoleAssistant, Content: "Mitochondria.", Source: "corpus"},
			}})
		})
		mux.HandleFunc("PUT /v1/sessions/{id}/title", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Title string `json:"title"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			renamed = r.PathValue("id") + "=" + body.Title
			w.WriteHeader(http.StatusNoContent)
		})

		srv := httptest.NewServer(mux)
		DeferCleanup(srv.Close)

		var err error
		client, err = apiclient.New(srv.URL, nil)
		Expect(err).NotTo(HaveOccurred())

		out = &bytes.Buffer{}
		cmder = &sessionsCommander{
			configDir: GinkgoT().TempDir(),
			out:       out,
			ddm:       dotdir.NewManager(),
		}
		Expect(cmder.ddm.SaveSessionState(&dotdir.SessionState{SessionID: "s1", Server: client.Target()}, cmder.configDir)).To(Succeed())
	})

	It("registers its subcommands", func() {
		names := []string{}
		for _, sub := range NewSessionsCmd().Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("show", "rename", "clear"))
	})

	It("lists sessions", func() {
		Expect(cmder.list(context.Background(), client)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Osmosis"))
		Expect(out.String()).To(ContainSubstring("Cells"))
	})

	It("shows the current session by default", func() {
		Expect(cmder.show(context.Background(), client, "")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("What makes ATP?"))
		Expect(out.String()).To(ContainSubstring("assistant · corpus"))
	})

	It("reports unknown sessions", func() {
		err := cmder.show(context.Background(), client, "nope")
		Expect(err).To(MatchError(ContainSubstring("HTTP 404")))
	})

	It("renames a session", func() {
		Expect(cmder.rename(context.Background(), client, "s1", "Biology")).To(Succeed())
		Expect(renamed).To(Equal("s1=Biology"))
	})

	It("clears sessions and the local state", func() {
		Expect(cmder.clear(context.Background(), client)).To(Succeed())
		Expect(cleared).To(BeTrue())

		state, err := cmder.ddm.LoadSessionState(cmder.configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})
})
