// Package ingestcmder provides the ingest command, which replaces the
// server's corpus with local text files.
package ingestcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scholar/api"
	clientcmder "github.com/papercomputeco/scholar/cmd/scholar/client"
	"github.com/papercomputeco/scholar/pkg/apiclient"
	"github.com/papercomputeco/scholar/pkg/cliui"
	"github.com/papercomputeco/scholar/pkg/corpus"
)

type ingestCommander struct {
	paths     []string
	apiTarget string
	out       io.Writer
}

const ingestLongDesc string = `Replace the server's corpus with local text files.

Accepts .txt and .md files and directories of them. Text is split into pages
on form feeds, chunked, embedded and indexed by the server. Questions keep
being answered from the previous corpus until the new one is ready.

Examples:
  scholar ingest notes.md
  scholar ingest ./syllabus
  scholar ingest unit1.txt unit2.txt --api-target http://localhost:8081`

const ingestShortDesc string = "Ingest documents into the corpus"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <file or dir>...",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.paths = args
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

func (c *ingestCommander) run(ctx context.Context, client *apiclient.Client) error {
	if ctx == nil {
		ctx = context.Background()
	}

	docs, err := CollectDocuments(c.paths)
	if err != nil {
		return err
	}

	var resp *api.IngestResponse
	err = cliui.Step(c.out, fmt.Sprintf("Ingesting %d documents", len(docs)), func() error {
		var ingestErr error
		resp, ingestErr = client.Ingest(ctx, docs)
		return ingestErr
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, cliui.KeyValue("Version", strconv.FormatInt(resp.Corpus.Version, 10)))
	fmt.Fprintln(c.out, cliui.KeyValue("Passages", strconv.Itoa(resp.Corpus.Passages)))
	fmt.Fprintln(c.out, cliui.KeyValue("Sources", strconv.Itoa(len(resp.Corpus.Sources))))
	fmt.Fprintln(c.out)
	return nil
}

// CollectDocuments reads the text files named by paths. Directories
// contribute their top-level .txt and .md files.
func CollectDocuments(paths []string) ([]api.IngestDocument, error) {
	var docs []api.IngestDocument

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}

		if info.IsDir() {
			dirDocs, err := corpus.LoadDir(p)
			if err != nil {
				return nil, err
			}
			for _, d := range dirDocs {
				docs = append(docs, api.IngestDocument{Source: d.Source, Pages: d.Pages})
			}
			continue
		}

		if !corpus.IsTextFile(p) {
			return nil, fmt.Errorf("unsupported file type: %s (only .txt and .md are accepted)", p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		d := corpus.NewDocument(filepath.Base(p), string(data))
		docs = append(docs, api.IngestDocument{Source: d.Source, Pages: d.Pages})
	}

	if len(docs) == 0 {
		return nil, errors.New("no .txt or .md files found")
	}
	return docs, nil
}
