package initcmder_test

import (
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/scholar/cmd/scholar/init"
	"github.com/papercomputeco/scholar/pkg/config"
)

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Args(cmd, []string{"extra"})).To(HaveOccurred())
	})

	It("has a --preset flag", func() {
		cmd := initcmder.NewInitCmd()
		f := cmd.Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var tmpDir string

	execute := func(args ...string) error {
		cmd := initcmder.NewInitCmd()
		cmd.SetOut(io.Discard)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	loadConfig := func() *config.Config {
		cfg := &config.Config{}
		_, err := toml.DecodeFile(filepath.Join(tmpDir, ".scholar", "config.toml"), cfg)
		Expect(err).NotTo(HaveOccurred())
		return cfg
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())
		DeferCleanup(os.Chdir, origDir)
	})

	It("creates the .scholar directory", func() {
		Expect(execute()).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, ".scholar"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())

		_, err = os.Stat(filepath.Join(tmpDir, ".scholar", "config.toml"))
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	It("is idempotent", func() {
		Expect(execute()).To(Succeed())
		Expect(execute()).To(Succeed())
	})

	Describe("--preset with provider presets", func() {
		It("creates config.toml with openai preset", func() {
			Expect(execute("--preset", "openai")).To(Succeed())

			cfg := loadConfig()
			Expect(cfg.Version).To(Equal(config.CurrentV))
			Expect(cfg.LLM.Provider).To(Equal("openai"))
			Expect(cfg.Embedding.Provider).To(Equal("openai"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(1536)))
			Expect(cfg.API.Listen).To(Equal(":8081"))
		})

		It("keeps ollama embeddings for the anthropic preset", func() {
			Expect(execute("--preset", "anthropic")).To(Succeed())

			cfg := loadConfig()
			Expect(cfg.LLM.Provider).To(Equal("anthropic"))
			Expect(cfg.Embedding.Provider).To(Equal("ollama"))
		})

		It("writes a preset into an existing directory", func() {
			Expect(execute()).To(Succeed())
			Expect(execute("--preset", "ollama")).To(Succeed())
			Expect(loadConfig().LLM.Provider).To(Equal("ollama"))
		})

		It("rejects unknown presets without creating anything", func() {
			Expect(execute("--preset", "bogus")).To(MatchError(ContainSubstring("unknown preset")))

			_, err := os.Stat(filepath.Join(tmpDir, ".scholar"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})
})
