package main

import (
	"github.com/spf13/cobra"
)

// NewConfigCommand creates the config command, which prints the effective
// configuration with secrets masked.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, the config file, environment
variables and flags are applied. Secrets are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return cfg.Redacted().WriteYAML(cmd.OutOrStdout())
		},
	}
}
