// Package askcmder provides the ask command, a chat turn against a running
// scholar server.
package askcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/api"
	clientcmder "github.com/papercomputeco/scholar/cmd/scholar/client"
	"github.com/papercomputeco/scholar/pkg/apiclient"
	"github.com/papercomputeco/scholar/pkg/cliui"
	"github.com/papercomputeco/scholar/pkg/dotdir"
	"github.com/papercomputeco/scholar/pkg/logger"
	"github.com/papercomputeco/scholar/pkg/router"
)

type askCommander struct {
	question   string
	open       bool
	style      string
	newSession bool
	noSession  bool
	yes        bool

	apiTarget string
	configDir string
	debug     bool

	in     io.Reader
	out    io.Writer
	ddm    *dotdir.Manager
	logger *zap.Logger
}

const askLongDesc string = `Ask a question against the ingested corpus.

The answer comes from the corpus alone. When the corpus does not cover the
question, scholar says so and offers to answer from general knowledge
instead; pass --yes to accept without a prompt, or --open to skip the corpus.

Successive asks continue the same chat session. The session id is kept in
.scholar/session.json; use --new to start over or --no-session to skip
session history.

Examples:
  scholar ask "What does the mitochondria do?"
  scholar ask "Who painted the Mona Lisa?" --yes
  scholar ask "Explain osmosis" --style "Short and simple"
  scholar ask "What is entropy?" --open`

const askShortDesc string = "Ask a question"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{ddm: dotdir.NewManager()}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.question = strings.Join(args, " ")
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			client, err := clientcmder.NewClient(cmd)
			if err != nil {
				return err
			}
			return cmder.run(cmd.Context(), client)
		},
	}

	cmd.Flags().BoolVarP(&cmder.open, "open", "o", false, "Answer from general knowledge instead of the corpus")
	cmd.Flags().StringVarP(&cmder.style, "style", "s", "", "Answer style, e.g. \"Detailed\" or \"Short and simple\"")
	cmd.Flags().BoolVar(&cmder.newSession, "new", false, "Start a new chat session")
	cmd.Flags().BoolVar(&cmder.noSession, "no-session", false, "Do not record this exchange in a session")
	cmd.Flags().BoolVarP(&cmder.yes, "yes", "y", false, "Accept a general-knowledge answer without prompting")
	clientcmder.AddTargetFlag(cmd, &cmder.apiTarget)

	return cmd
}

func (c *askCommander) run(ctx context.Context, client *apiclient.Client) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if ctx == nil {
		ctx = context.Background()
	}

	sessionID, err := c.resolveSession(ctx, client)
	if err != nil {
		return err
	}

	mode := router.ModeGrounded
	if c.open {
		mode = router.ModeOpenDomain
	}

	resp, err := client.Chat(ctx, api.ChatRequest{
		Question:  c.question,
		Mode:      string(mode),
		Style:     c.style,
		SessionID: sessionID,
	})
	if err != nil {
		return err
	}

	switch resp.Status {
	case router.StatusNoCorpus:
		fmt.Fprintf(c.out, "\n  %s %s\n  %s\n\n",
			cliui.Badge("no corpus", cliui.ToneWarn),
			resp.Answer,
			cliui.DimStyle.Render("Run: scholar ingest <files or directory>"),
		)
		return nil

	case router.StatusNeedsFallback:
		fmt.Fprintf(c.out, "\n  %s %s\n", cliui.Badge("not in corpus", cliui.ToneWarn), resp.Answer)
		if !c.yes && !confirm(c.in, c.out, "  Answer from general knowledge? [y/N] ") {
			fmt.Fprintln(c.out)
			return nil
		}

		resp, err = client.Chat(ctx, api.ChatRequest{
			Question:  c.question,
			Mode:      string(router.ModeOpenDomain),
			Style:     c.style,
			SessionID: sessionID,
		})
		if err != nil {
			return err
		}
	}

	c.printAnswer(resp)
	return nil
}

// resolveSession returns the session to record into, creating one when the
// saved state is missing or belongs to another server.
func (c *askCommander) resolveSession(ctx context.Context, client *apiclient.Client) (string, error) {
	if c.noSession {
		return "", nil
	}

	if c.newSession {
		if err := c.ddm.ClearSessionState(c.configDir); err != nil {
			return "", err
		}
	}

	state, err := c.ddm.LoadSessionState(c.configDir)
	if err != nil {
		return "", err
	}
	if state != nil && state.Server == client.Target() && state.SessionID != "" {
		c.logger.Debug("resuming session", zap.String("session_id", state.SessionID))
		return state.SessionID, nil
	}

	sess, err := client.CreateSession(ctx)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}

	if err := c.ddm.SaveSessionState(&dotdir.SessionState{
		SessionID: sess.ID,
		Server:    client.Target(),
	}, c.configDir); err != nil {
		return "", err
	}

	c.logger.Debug("started session", zap.String("session_id", sess.ID))
	return sess.ID, nil
}

func (c *askCommander) printAnswer(resp *api.ChatResponse) {
	label := "corpus"
	tone := cliui.ToneOK
	if resp.Source == router.SourceOpenDomain {
		label = "general knowledge"
		tone = cliui.ToneWarn
	}

	rendered, err := cliui.RenderMarkdown(resp.Answer)
	if err != nil {
		rendered = resp.Answer + "\n"
	}

	fmt.Fprintf(c.out, "\n  %s\n%s", cliui.Badge(label, tone), rendered)
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
