// Package sessionscmder provides the sessions command for browsing and
// managing chat sessions on a scholar server.
package sessionscmder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	clientcmder "github.com/papercomputeco/scholar/cmd/scholar/client"
	"github.com/papercomputeco/scholar/pkg/apiclient"
	"github.com/papercomputeco/scholar/pkg/cliui"
	"github.com/papercomputeco/scholar/pkg/config"
	"github.com/papercomputeco/scholar/pkg/dotdir"
	"github.com/papercomputeco/scholar/pkg/utils"
)

const sessionsLongDesc string = `Browse and manage chat sessions.

With no subcommand, lists sessions newest first. The session that
"scholar ask" is attached to is marked with *.

Examples:
  scholar sessions
  scholar sessions show
  scholar sessions show 3f2a...
  scholar sessions rename 3f2a... "Biology revision"
  scholar sessions clear`

const sessionsShortDesc string = "Browse and manage chat sessions"

// sessionsCommander carries what every subcommand needs.
type sessionsCommander struct {
	apiTarget string
	configDir string
	out       io.Writer
	ddm       *dotdir.Manager
}

func NewSessionsCmd() *cobra.Command {
	cmder := &sessionsCommander{ddm: dotdir.NewManager()}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: sessionsShortDesc,
		Long:  sessionsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := cmder.prepare(cmd)
			if err != nil {
				return err
			}
			return cmder.list(cmd.Context(), client)
		},
	}

	target := config.Flags[config.FlagAPITarget]
	cmd.PersistentFlags().StringVar(&cmder.apiTarget, target.Name, config.NewDefaultConfig().Client.APITarget, target.Description)
	cmd.AddCommand(cmder.newShowCmd())
	cmd.AddCommand(cmder.newRenameCmd())
	cmd.AddCommand(cmder.newClearCmd())

	return cmd
}

func (c *sessionsCommander) prepare(cmd *cobra.Command) (*apiclient.Client, error) {
	c.configDir, _ = cmd.Flags().GetString("config-dir")
	c.out = cmd.OutOrStdout()
	return clientcmder.NewClient(cmd)
}

func (c *sessionsCommander) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a session's turns (default: the current session)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.prepare(cmd)
			if err != nil {
				return err
			}
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return c.show(cmd.Context(), client, id)
		},
	}
}

func (c *sessionsCommander) newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.prepare(cmd)
			if err != nil {
				return err
			}
			return c.rename(cmd.Context(), client, args[0], strings.Join(args[1:], " "))
		},
	}
}

func (c *sessionsCommander) newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.prepare(cmd)
			if err != nil {
				return err
			}
			return c.clear(cmd.Context(), client)
		},
	}
}

// currentID returns the session "scholar ask" is attached to on client's
// server, or "".
func (c *sessionsCommander) currentID(client *apiclient.Client) string {
	state, err := c.ddm.LoadSessionState(c.configDir)
	if err != nil || state == nil || state.Server != client.Target() {
		return ""
	}
	return state.SessionID
}

func (c *sessionsCommander) list(ctx context.Context, client *apiclient.Client) error {
	summaries, err := client.ListSessions(ctxOrBackground(ctx))
	if err != nil {
		return err
	}

	if len(summaries) == 0 {
		fmt.Fprintf(c.out, "  %s No sessions yet.\n", cliui.DimStyle.Render("●"))
		return nil
	}

	current := c.currentID(client)
	fmt.Fprintln(c.out)
	for _, s := range summaries {
		marker := " "
		if s.ID == current {
			marker = "*"
		}
		fmt.Fprintf(c.out, "  %s %s  %s\n",
			cliui.HeaderStyle.Render(marker),
			cliui.DimStyle.Render(s.ID),
			cliui.ValueStyle.Render(s.Title),
		)
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *sessionsCommander) show(ctx context.Context, client *apiclient.Client, id string) error {
	if id == "" {
		id = c.currentID(client)
	}
	if id == "" {
		fmt.Fprintf(c.out, "  %s No current session. The next ask will start one.\n", cliui.DimStyle.Render("●"))
		return nil
	}

	sess, err := client.GetSession(ctxOrBackground(ctx), id)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n%s\n%s\n\n",
		cliui.KeyValue("Session", sess.ID),
		cliui.KeyValue("Title", sess.Title),
	)
	for i, turn := range sess.Turns {
		role := string(turn.Role)
		if turn.Source != "" {
			role += " · " + turn.Source
		}
		fmt.Fprintf(c.out, "  %s %s %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%d.", i+1)),
			cliui.KeyStyle.Render("["+role+"]"),
			utils.Truncate(strings.ReplaceAll(turn.Content, "\n", " "), 72),
		)
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *sessionsCommander) rename(ctx context.Context, client *apiclient.Client, id, title string) error {
	if err := client.RenameSession(ctxOrBackground(ctx), id, title); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "  %s Renamed %s to %s\n", cliui.SuccessMark, cliui.DimStyle.Render(id), cliui.ValueStyle.Render(title))
	return nil
}

func (c *sessionsCommander) clear(ctx context.Context, client *apiclient.Client) error {
	if err := client.ClearSessions(ctxOrBackground(ctx)); err != nil {
		return err
	}
	if err := c.ddm.ClearSessionState(c.configDir); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "  %s Cleared all sessions\n", cliui.SuccessMark)
	return nil
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
