// Package statuscmder provides the status command for displaying the server's
// corpus and the local session state.
package statuscmder

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	clientcmder "github.com/papercomputeco/scholar/cmd/scholar/client"
	"github.com/papercomputeco/scholar/pkg/apiclient"
	"github.com/papercomputeco/scholar/pkg/cliui"
	"github.com/papercomputeco/scholar/pkg/dotdir"
)

const statusLongDesc string = `Show the scholar server and corpus state.

Reports whether the server is reachable, the active corpus version, its
sources and passage count, and the chat session the next "scholar ask" will
continue.

Examples:
  scholar status
  scholar status --api-target http://localhost:8081`

const statusShortDesc string = "Show server and corpus state"

type statusCommander struct {
	apiTarget string
	configDir string
	out       io.Writer
	ddm       *dotdir.Manager
}

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{ddm: dotdir.NewManager()}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.out = cmd.OutOrStdout()

			client, err := clientcmder.NewClient(cmd)
			if err != nil {
				return err
			}
			return cmder.run(cmd.Context(), client)
		},
	}

	clientcmder.AddTargetFlag(cmd, &cmder.apiTarget)

	return cmd
}

func (c *statusCommander) run(ctx context.Context, client *apiclient.Client) error {
	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Fprintf(c.out, "\n%s\n", cliui.KeyValue("Server", client.Target()))

	if err := client.Ping(ctx); err != nil {
		fmt.Fprintf(c.out, "%s\n\n", cliui.KeyValue("Reachable", cliui.Badge("down", cliui.ToneFail)))
		return fmt.Errorf("scholar server is not reachable: %w", err)
	}
	fmt.Fprintln(c.out, cliui.KeyValue("Reachable", cliui.Badge("up", cliui.ToneOK)))

	status, err := client.CorpusStatus(ctx)
	if err != nil {
		return err
	}

	if !status.Loaded {
		fmt.Fprintln(c.out, cliui.KeyValue("Corpus", cliui.Badge("no corpus", cliui.ToneWarn)))
	} else {
		fmt.Fprintln(c.out, cliui.KeyValue("Corpus", cliui.Badge("v"+strconv.FormatInt(status.Version, 10), cliui.ToneOK)))
		fmt.Fprintln(c.out, cliui.KeyValue("Passages", strconv.Itoa(status.Passages)))
		if status.Dimensions > 0 {
			fmt.Fprintln(c.out, cliui.KeyValue("Dimensions", strconv.Itoa(status.Dimensions)))
		}
		fmt.Fprintln(c.out, cliui.KeyValue("Sources", strings.Join(status.Sources, ", ")))
		if status.IngestedAt != nil {
			fmt.Fprintln(c.out, cliui.KeyValue("Ingested", status.IngestedAt.Local().Format(time.RFC1123)))
		}
	}
	if status.Snapshot != "" {
		fmt.Fprintln(c.out, cliui.KeyValue("Snapshot", status.Snapshot))
	}

	state, err := c.ddm.LoadSessionState(c.configDir)
	if err != nil {
		return fmt.Errorf("loading session state: %w", err)
	}
	if state == nil || state.Server != client.Target() {
		fmt.Fprintln(c.out, cliui.KeyValue("Session", cliui.DimStyle.Render("none, the next ask starts one")))
	} else {
		fmt.Fprintln(c.out, cliui.KeyValue("Session", state.SessionID))
	}

	fmt.Fprintln(c.out)
	return nil
}
