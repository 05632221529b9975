package scholarcmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	scholarcmder "github.com/papercomputeco/scholar/cmd/scholar"
)

var _ = Describe("NewScholarCmd", func() {
	It("registers global flags", func() {
		cmd := scholarcmder.NewScholarCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().ShorthandLookup("d")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	DescribeTable("wires subcommands",
		func(name string) {
			cmd := scholarcmder.NewScholarCmd()
			sub, _, err := cmd.Find([]string{name})
			Expect(err).NotTo(HaveOccurred())
			Expect(sub.Name()).To(Equal(name))
		},
		Entry("init", "init"),
		Entry("config", "config"),
		Entry("serve", "serve"),
		Entry("ingest", "ingest"),
		Entry("ask", "ask"),
		Entry("search", "search"),
		Entry("sessions", "sessions"),
		Entry("status", "status"),
		Entry("exam", "exam"),
		Entry("solve", "solve"),
		Entry("video", "video"),
		Entry("version", "version"),
	)

	It("prints the version", func() {
		cmd := scholarcmder.NewScholarCmd()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetArgs([]string{"version"})
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("dev"))
		Expect(out.String()).To(ContainSubstring("HEAD"))
	})
})
