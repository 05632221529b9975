// Package configcmder provides the config command for managing persistent
// scholar configuration stored in the .scholar/ directory.
package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scholar/pkg/cliui"
	"github.com/papercomputeco/scholar/pkg/config"
)

const configLongDesc string = `Manage persistent scholar configuration.

Configuration is stored as config.toml in the .scholar/ directory and provides
default values for command flags. CLI flags and SCHOLAR_* environment
variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure, for example:
  llm.provider, llm.model, llm.grounded_temperature,
  embedding.provider, embedding.model, embedding.dimensions,
  retrieval.top_k, retrieval.chunk_size, retrieval.chunk_overlap,
  storage.provider, storage.path, client.api_target

Use subcommands to get, set, or list configuration values:
  scholar config set <key> <value>    Set a configuration value
  scholar config get <key>            Get a configuration value
  scholar config list                 List all configuration values

Examples:
  scholar config set llm.provider openai
  scholar config set retrieval.top_k 6
  scholar config get llm.model
  scholar config list`

const configShortDesc string = "Manage persistent scholar configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func validateKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(cmd *cobra.Command, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
