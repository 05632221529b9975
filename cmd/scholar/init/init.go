// Package initcmder provides the init command for initializing a local
// .scholar directory in the current working directory.
package initcmder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scholar/pkg/config"
)

const (
	dirName = ".scholar"
)

const initLongDesc string = `Initialize a new .scholar/ directory in the current working directory.

Creates a local .scholar/ directory that takes precedence over the default
~/.scholar/ directory for configuration, the corpus snapshot and the chat
session state.

With --preset, also writes a config.toml tuned for a provider:
  openai       OpenAI chat and embeddings
  anthropic    Anthropic chat, local ollama embeddings
  ollama       Everything on a local ollama

Examples:
  scholar init
  scholar init --preset openai`

const initShortDesc string = "Initialize a local .scholar/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Write a provider preset config (%s)", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	var preset *config.Config
	if c.preset != "" {
		var err error
		preset, err = config.PresetConfig(c.preset)
		if err != nil {
			return err
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		fmt.Fprintf(out, "Already initialized: %s\n", dir)
	default:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .scholar directory: %w", err)
		}
		fmt.Fprintf(out, "Initialized .scholar directory: %s\n", dir)
	}

	if preset == nil {
		return nil
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(preset); err != nil {
		return err
	}

	fmt.Fprintf(out, "Wrote %s preset: %s\n", strings.ToLower(c.preset), cfger.GetTarget())
	return nil
}
