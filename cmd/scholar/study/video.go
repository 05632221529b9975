package studycmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	clientcmder "github.com/papercomputeco/scholar/cmd/scholar/client"
	"github.com/papercomputeco/scholar/pkg/apiclient"
	"github.com/papercomputeco/scholar/pkg/cliui"
	"github.com/papercomputeco/scholar/pkg/pipeline"
)

type videoCommander struct {
	url       string
	apiTarget string
	out       io.Writer
}

const videoLongDesc string = `Compare a YouTube video's captions with the corpus.

Fetches the video's captions, then summarizes the parts that match the
corpus, or says the video is unrelated.

Examples:
  scholar video https://www.youtube.com/watch?v=dQw4w9WgXcQ
  scholar video https://youtu.be/dQw4w9WgXcQ`

const videoShortDesc string = "Compare a video with the corpus"

func NewVideoCmd() *cobra.Command {
	cmder := &videoCommander{}

	cmd := &cobra.Command{
		Use:   "video <url>",
		Short: videoShortDesc,
		Long:  videoLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.url = args[0]
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

func (c *videoCommander) run(ctx context.Context, client *apiclient.Client) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var result *pipeline.TranscriptAnalysis
	err := cliui.Step(c.out, "Analyzing video", func() error {
		var analyzeErr error
		result, analyzeErr = client.AnalyzeVideo(ctx, c.url)
		return analyzeErr
	})
	if err != nil {
		return err
	}

	if result.Status == pipeline.AnalysisFetchFailed {
		fmt.Fprintf(c.out, "\n  %s %s\n  %s\n\n",
			cliui.Badge("no captions", cliui.ToneFail),
			result.Answer,
			cliui.DimStyle.Render(result.Reason),
		)
		return nil
	}

	fmt.Fprintf(c.out, "\n  %s\n", cliui.Badge(result.VideoID, cliui.ToneOK))
	rendered, err := cliui.RenderMarkdown(result.Answer)
	if err != nil {
		rendered = result.Answer + "\n"
	}
	fmt.Fprint(c.out, rendered)
	return nil
}
