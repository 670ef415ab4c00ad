package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PhilippVerpoort/posted-sub000/internal/loader"
)

// NormaliseOptions holds options for the normalise command.
type NormaliseOptions struct {
	Units  []string // "Variable=Unit" overrides
	Out    string   // output file; stdout render if empty
	Format string
}

// NewNormaliseCommand creates the normalise command.
func NewNormaliseCommand() *cobra.Command {
	opts := &NormaliseOptions{}
	cmd := &cobra.Command{
		Use:   "normalise <table.csv>",
		Short: "Convert a raw table to canonical units with references folded to 1.0",
		Long: `Read a raw observation table, convert every value to its variable's
canonical unit, and fold reference values to exactly 1.0 so that the
reference unit becomes the quantity's unit of account.`,
		Example: `  # Normalise with packaged definitions
  posted normalise data/electrolysis.csv

  # Override the canonical unit of one variable
  posted normalise data/electrolysis.csv --unit "CAPEX=USD/MW"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalise(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringArrayVar(&opts.Units, "unit", nil, "canonical unit override, Variable=Unit (repeatable)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "write the result to a CSV file instead of stdout")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "output format: table, csv, json")
	return cmd
}

func runNormalise(cmd *cobra.Command, path string, opts *NormaliseOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if !exists(path) {
		return fmt.Errorf("no such table: %s", path)
	}

	overrides, err := parseUnitOverrides(opts.Units)
	if err != nil {
		return err
	}

	t, err := loader.ReadFile(path, cmdCtx.Engine.Registry())
	if err != nil {
		return err
	}
	out, err := cmdCtx.Engine.Normalise(t, overrides)
	if err != nil {
		return err
	}

	if opts.Out != "" {
		return loader.WriteFile(opts.Out, out)
	}
	return renderTable(cmd.OutOrStdout(), out, cmdCtx.outputFormat(cmd))
}

func parseUnitOverrides(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, unit, found := strings.Cut(p, "=")
		if !found || name == "" || unit == "" {
			return nil, fmt.Errorf("invalid unit override %q, want Variable=Unit", p)
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(unit)
	}
	return out, nil
}
