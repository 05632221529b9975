// Package clientcmder holds the plumbing shared by commands that talk to a
// running scholar server.
package clientcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scholar/pkg/apiclient"
	"github.com/papercomputeco/scholar/pkg/config"
)

// AddTargetFlag registers --api-target on cmd.
func AddTargetFlag(cmd *cobra.Command, target *string) {
	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, target)
}

// NewClient resolves the API target through flags, SCHOLAR_CLIENT_API_TARGET,
// config.toml and the default, in that order.
func NewClient(cmd *cobra.Command) (*apiclient.Client, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagAPITarget})

	target := v.GetString(config.Flags[config.FlagAPITarget].ViperKey)
	client, err := apiclient.New(target, nil)
	if err != nil {
		return nil, err
	}
	return client, nil
}
