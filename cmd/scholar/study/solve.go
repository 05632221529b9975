package studycmder

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	clientcmder "github.com/papercomputeco/scholar/cmd/scholar/client"
	"github.com/papercomputeco/scholar/pkg/apiclient"
	"github.com/papercomputeco/scholar/pkg/cliui"
	"github.com/papercomputeco/scholar/pkg/pipeline"
)

type solveCommander struct {
	path      string
	apiTarget string
	in        io.Reader
	out       io.Writer
}

const solveLongDesc string = `Solve a previous-year question paper against the corpus.

Reads the paper's extracted text from a file, or from stdin when the path is
"-". The main questions are pulled out and each is answered from the corpus;
questions the corpus does not cover are tagged out-of-syllabus.

Examples:
  scholar solve paper-2023.txt
  pdftotext paper.pdf - | scholar solve -`

const solveShortDesc string = "Solve a question paper"

func NewSolveCmd() *cobra.Command {
	cmder := &solveCommander{}

	cmd := &cobra.Command{
		Use:   "solve <file|->",
		Short: solveShortDesc,
		Long:  solveLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.path = args[0]
			cmder.in = cmd.InOrStdin()
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

func (c *solveCommander) run(ctx context.Context, client *apiclient.Client) error {
	if ctx == nil {
		ctx = context.Background()
	}

	text, err := c.readPaper()
	if err != nil {
		return err
	}

	var solutions []pipeline.Solution
	err = cliui.Step(c.out, "Solving question paper", func() error {
		var solveErr error
		solutions, solveErr = client.Solve(ctx, text)
		return solveErr
	})
	if err != nil {
		return err
	}

	if len(solutions) == 0 {
		fmt.Fprintf(c.out, "\n  %s\n\n", cliui.DimStyle.Render("No questions found in the paper."))
		return nil
	}

	for i, s := range solutions {
		tone := cliui.ToneOK
		if s.Tag == pipeline.TagOutOfSyllabus {
			tone = cliui.ToneWarn
		}
		fmt.Fprintf(c.out, "\n  %s %s %s\n  %s\n",
			cliui.HeaderStyle.Render(fmt.Sprintf("Q%d.", i+1)),
			s.Question,
			cliui.Badge(string(s.Tag), tone),
			s.Answer,
		)
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *solveCommander) readPaper() (string, error) {
	if c.path == "-" {
		data, err := io.ReadAll(c.in)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", c.path, err)
	}
	return string(data), nil
}
