package commands

import (
	"github.com/spf13/cobra"

	"github.com/PhilippVerpoort/posted-sub000/internal/aggregate"
	"github.com/PhilippVerpoort/posted-sub000/internal/loader"
)

// AggregateOptions holds options for the aggregate command.
type AggregateOptions struct {
	SelectOptions
	Over           []string
	MaskFiles      []string
	ListReferences bool

	masks []aggregate.Mask
}

// NewAggregateCommand creates the aggregate command.
func NewAggregateCommand() *cobra.Command {
	opts := &AggregateOptions{}
	cmd := &cobra.Command{
		Use:   "aggregate <table.csv>",
		Short: "Select, then reduce to one value per case",
		Long: `Run the full pipeline: normalise, select, sum component breakdowns,
and reduce the remaining case dimensions (typically sources) to one
weighted value per case. Masks include, exclude, or weight rows during
the reduction.`,
		Example: `  # Average across sources for 2030 and 2050
  posted aggregate data/electrolysis.csv --period 2030,2050

  # Weight sources via a mask file, list references explicitly
  posted aggregate data/electrolysis.csv --mask masks/iea.yaml --list-references`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAggregate(cmd, args[0], opts)
		},
	}
	addSelectFlags(cmd, &opts.SelectOptions)
	cmd.Flags().StringSliceVar(&opts.Over, "over", []string{"component", "source"}, "fields to aggregate over")
	cmd.Flags().StringSliceVar(&opts.MaskFiles, "mask", nil, "YAML mask files (repeatable)")
	cmd.Flags().BoolVar(&opts.ListReferences, "list-references", false, "append one explicit row per reference variable at value 1.0")
	cmd.Flags().StringVar(&opts.SelectOptions.Out, "out", "", "write the result to a CSV file instead of stdout")
	cmd.Flags().StringVarP(&opts.SelectOptions.Format, "format", "f", "", "output format: table, csv, json")
	return cmd
}

func runAggregate(cmd *cobra.Command, path string, opts *AggregateOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	for _, mf := range opts.MaskFiles {
		masks, err := aggregate.LoadMasks(mf)
		if err != nil {
			return err
		}
		opts.masks = append(opts.masks, masks...)
	}

	out, warnings, err := runSelection(cmd, cmdCtx, path, &opts.SelectOptions, opts)
	if err != nil {
		return err
	}
	reportWarnings(cmdCtx, warnings)

	if opts.SelectOptions.Out != "" {
		return loader.WriteFile(opts.SelectOptions.Out, out)
	}
	return renderTable(cmd.OutOrStdout(), out, cmdCtx.outputFormat(cmd))
}
