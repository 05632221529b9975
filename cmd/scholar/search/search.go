// Package searchcmder provides the search command for semantic search over
// the corpus.
package searchcmder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	apisearch "github.com/papercomputeco/scholar/api/search"
	clientcmder "github.com/papercomputeco/scholar/cmd/scholar/client"
	"github.com/papercomputeco/scholar/pkg/apiclient"
	"github.com/papercomputeco/scholar/pkg/utils"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
)

type searchCommander struct {
	query string
	topK  int
	quiet bool

	apiTarget string
	out       io.Writer
}

const searchLongDesc string = `Search the corpus via the scholar API.

Returns the passages closest to the query text, with their source, page and
similarity score. No model is called.

Use --quiet to print only the passage text, one per line.

Examples:
  scholar search "electron transport chain"
  scholar search "osmosis" --top-k 8
  scholar search "entropy" --quiet`

const searchShortDesc string = "Search the corpus"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = strings.Join(args, " ")
			cmder.out = cmd.OutOrStdout()

			client, err := clientcmder.NewClient(cmd)
			if err != nil {
				return err
			}
			return cmder.run(cmd.Context(), client)
		},
	}

	cmd.Flags().IntVarP(&cmder.topK, "top-k", "k", 0, "Number of passages to return (default: server top_k)")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only passage text, one per line")
	clientcmder.AddTargetFlag(cmd, &cmder.apiTarget)

	return cmd
}

func (c *searchCommander) run(ctx context.Context, client *apiclient.Client) error {
	if ctx == nil {
		ctx = context.Background()
	}

	output, err := client.Search(ctx, c.query, c.topK)
	if err != nil {
		return err
	}

	if output.Count == 0 {
		if !c.quiet {
			fmt.Fprintln(c.out, "No results found.")
		}
		return nil
	}

	if c.quiet {
		for _, result := range output.Results {
			fmt.Fprintln(c.out, strings.ReplaceAll(result.Text, "\n", " "))
		}
		return nil
	}

	fmt.Fprintf(c.out, "\n%s %s\n\n",
		headerStyle.Render("Search Results for:"),
		sourceStyle.Render(fmt.Sprintf("%q", output.Query)),
	)

	for i, result := range output.Results {
		c.printResult(i+1, result)
	}

	return nil
}

func (c *searchCommander) printResult(rank int, result apisearch.SearchResult) {
	fmt.Fprintf(c.out, "  %s  %s  %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		scoreStyle.Render(fmt.Sprintf("score: %.4f", result.Score)),
		sourceStyle.Render(fmt.Sprintf("%s p.%d", result.Source, result.Page)),
	)

	preview := strings.ReplaceAll(utils.Truncate(result.Text, 160), "\n", " ")
	fmt.Fprintf(c.out, "  %s\n\n", previewStyle.Render(preview))
}
