// Package cli provides the command-line interface for POSTED.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/PhilippVerpoort/posted-sub000/internal/cli/commands"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "posted",
		Short: "POSTED - techno-economic data harmonisation",
		Long: `POSTED curates techno-economic observations (cost, capacity, and
energy-demand figures for industrial technologies) reported by
heterogeneous sources, and produces a normalised, harmonised, and
aggregated view suitable for downstream analysis.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default: posted.yaml in working dir or parents)")
	rootCmd.PersistentFlags().String("definitions-dir", "", "directory with units.yaml / definitions.yaml overlays")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format: table, csv, json")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		commands.NewNormaliseCommand(),
		commands.NewSelectCommand(),
		commands.NewAggregateCommand(),
		commands.NewFieldsCommand(),
		commands.NewVersionCommand(Version, BuildDate, GitCommit),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
