package corpus_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/chunker"
	"github.com/papercomputeco/scholar/pkg/corpus"
	testutils "github.com/papercomputeco/scholar/pkg/utils/test"
)

var _ = Describe("LoadDir", func() {
	It("reads text files in name order and skips others", func() {
		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "b.md"), []byte("beta"), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "a.txt"), []byte("alpha\fpage two"), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "c.pdf"), []byte("%PDF"), 0o644)).To(Succeed())

		docs, err := corpus.LoadDir(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(Equal([]corpus.Document{
			{Source: "a.txt", Pages: []string{"alpha", "page two"}},
			{Source: "b.md", Pages: []string{"beta"}},
		}))
	})
})

var _ = Describe("Watch", func() {
	It("re-ingests when a text file changes", func() {
		dir := GinkgoT().TempDir()
		splitter, err := chunker.New(100, 10)
		Expect(err).NotTo(HaveOccurred())

		m, err := corpus.NewManager(corpus.Config{
			Splitter: splitter,
			Embedder: testutils.NewMockEmbedder(),
			Logger:   zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- m.Watch(ctx, dir, 20*time.Millisecond) }()

		// Rewrite until the watcher has picked the file up; the first write
		// can land before the watch is registered.
		Eventually(func() bool {
			Expect(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("watched text"), 0o644)).To(Succeed())
			return m.IsLoaded()
		}, 5*time.Second, 100*time.Millisecond).Should(BeTrue())
		c, _ := m.Current()
		Expect(c.Sources).To(Equal([]string{"notes.txt"}))

		cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))
	})
})
