// Package scholarcmder is the root of the scholar command tree.
package scholarcmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/scholar/cmd/scholar/ask"
	configcmder "github.com/papercomputeco/scholar/cmd/scholar/config"
	ingestcmder "github.com/papercomputeco/scholar/cmd/scholar/ingest"
	initcmder "github.com/papercomputeco/scholar/cmd/scholar/init"
	searchcmder "github.com/papercomputeco/scholar/cmd/scholar/search"
	servecmder "github.com/papercomputeco/scholar/cmd/scholar/serve"
	sessionscmder "github.com/papercomputeco/scholar/cmd/scholar/sessions"
	statuscmder "github.com/papercomputeco/scholar/cmd/scholar/status"
	studycmder "github.com/papercomputeco/scholar/cmd/scholar/study"
	versioncmder "github.com/papercomputeco/scholar/cmd/version"
)

const scholarLongDesc string = `Scholar answers questions from the documents you give it.

Answers are grounded in an ingested corpus. When the corpus cannot answer,
scholar says so and offers a general knowledge fallback instead of guessing.

Get started:
  scholar init                 Create a local .scholar/ directory
  scholar serve                Run the API server
  scholar ingest ./notes       Build the corpus from .txt and .md files
  scholar ask "question"       Ask a grounded question

Study tools:
  scholar exam <topic>         Generate a practice exam
  scholar solve <file>         Solve questions from a past paper
  scholar video <url>          Compare a lecture video against the corpus`

const scholarShortDesc string = "Scholar - grounded answers from your own documents"

func NewScholarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "scholar",
		Short:        scholarShortDesc,
		Long:         scholarLongDesc,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .scholar/ config directory")

	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(sessionscmder.NewSessionsCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(studycmder.NewExamCmd())
	cmd.AddCommand(studycmder.NewSolveCmd())
	cmd.AddCommand(studycmder.NewVideoCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
