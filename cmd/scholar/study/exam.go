// Package studycmder provides the exam, solve and video commands, which run
// the derived study pipelines on a scholar server.
package studycmder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	clientcmder "github.com/papercomputeco/scholar/cmd/scholar/client"
	"github.com/papercomputeco/scholar/pkg/apiclient"
	"github.com/papercomputeco/scholar/pkg/cliui"
	"github.com/papercomputeco/scholar/pkg/pipeline"
)

type examCommander struct {
	topic     string
	raw       bool
	apiTarget string
	out       io.Writer
}

const examLongDesc string = `Generate a practice exam on a topic from the corpus.

The exam has multiple-choice questions, short 2-mark theory questions and a
long 5-mark theory question, each with an answer. Use --json to print the
model's JSON as is.

Examples:
  scholar exam "cellular respiration"
  scholar exam thermodynamics --json > exam.json`

const examShortDesc string = "Generate a practice exam"

func NewExamCmd() *cobra.Command {
	cmder := &examCommander{}

	cmd := &cobra.Command{
		Use:   "exam <topic>",
		Short: examShortDesc,
		Long:  examLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.topic = strings.Join(args, " ")
			cmder.out = cmd.OutOrStdout()

			client, err := clientcmder.NewClient(cmd)
			if err != nil {
				return err
			}
			return cmder.run(cmd.Context(), client)
		},
	}

	cmd.Flags().BoolVar(&cmder.raw, "json", false, "Print the exam JSON")
	clientcmder.AddTargetFlag(cmd, &cmder.apiTarget)

	return cmd
}

func (c *examCommander) run(ctx context.Context, client *apiclient.Client) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var result *pipeline.ExamResult
	err := cliui.Step(c.out, fmt.Sprintf("Writing an exam on %q", c.topic), func() error {
		var examErr error
		result, examErr = client.Exam(ctx, c.topic)
		return examErr
	})
	if err != nil {
		return err
	}

	if c.raw {
		fmt.Fprintln(c.out, result.Raw)
		return nil
	}

	if !result.Valid {
		fmt.Fprintf(c.out, "\n  %s %s\n\n%s\n", cliui.Badge("unstructured", cliui.ToneWarn), result.Problem, result.Raw)
		return nil
	}

	rendered, err := cliui.RenderMarkdown(ExamMarkdown(result.Exam))
	if err != nil {
		fmt.Fprintln(c.out, ExamMarkdown(result.Exam))
		return nil
	}
	fmt.Fprint(c.out, rendered)
	return nil
}

// ExamMarkdown lays an exam out as markdown with answers after each question.
func ExamMarkdown(exam *pipeline.Exam) string {
	var b strings.Builder

	if len(exam.MCQs) > 0 {
		b.WriteString("## Multiple choice\n\n")
		for i, q := range exam.MCQs {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q.Question)
			for _, opt := range q.Options {
				fmt.Fprintf(&b, "   - %s\n", opt)
			}
			fmt.Fprintf(&b, "\n   **Answer:** %s\n\n", q.CorrectAnswer)
		}
	}

	writeTheory(&b, "Short answer (2 marks)", exam.Short)
	writeTheory(&b, "Long answer (5 marks)", exam.Long)

	return b.String()
}

func writeTheory(b *strings.Builder, heading string, questions []pipeline.TheoryQuestion) {
	if len(questions) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	for i, q := range questions {
		fmt.Fprintf(b, "%d. %s\n\n   **Answer:** %s\n\n", i+1, q.Question, q.Answer)
	}
}
