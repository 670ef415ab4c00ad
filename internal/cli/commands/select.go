package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PhilippVerpoort/posted-sub000/internal/engine"
	"github.com/PhilippVerpoort/posted-sub000/internal/fields"
	"github.com/PhilippVerpoort/posted-sub000/internal/loader"
	"github.com/PhilippVerpoort/posted-sub000/internal/mapping"
	"github.com/PhilippVerpoort/posted-sub000/pkg/table"
)

// SelectOptions holds options for the select command.
type SelectOptions struct {
	Units    []string
	Fields   []string // "field=v1,v2" selectors
	Periods  []string
	Mode     string
	ExpandNS bool
	Parent   string
	KeepAll  bool // keep singular field columns
	Out      string
	Format   string
}

// NewSelectCommand creates the select command.
func NewSelectCommand() *cobra.Command {
	opts := &SelectOptions{}
	cmd := &cobra.Command{
		Use:   "select <table.csv>",
		Short: "Resolve field selections and map variables to canonical form",
		Long: `Normalise a raw observation table, expand wildcard and not-specified
rows, resolve requested periods by matching, interpolation, or
extrapolation, and run the variable mapping pipeline. No aggregation is
performed.`,
		Example: `  # Everything reported for 2030, interpolated where missing
  posted select data/electrolysis.csv --period 2030

  # Restrict to one region and two sources
  posted select data/electrolysis.csv --field region=EU --field "source=Smith22,Jones24"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(cmd, args[0], opts)
		},
	}
	addSelectFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Out, "out", "", "write the result to a CSV file instead of stdout")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "output format: table, csv, json")
	return cmd
}

func addSelectFlags(cmd *cobra.Command, opts *SelectOptions) {
	cmd.Flags().StringArrayVar(&opts.Units, "unit", nil, "canonical unit override, Variable=Unit (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Fields, "field", nil, "field selector, field=value[,value...] (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Periods, "period", nil, "requested periods (default: all present)")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "period mode: none, interpolate, extrapolate, interpolate+extrapolate")
	cmd.Flags().BoolVar(&opts.ExpandNS, "expand-ns", false, "treat N/S cells like wildcards")
	cmd.Flags().StringVar(&opts.Parent, "parent", "", "prefix variable names with a namespace")
	cmd.Flags().BoolVar(&opts.KeepAll, "keep-all", false, "keep case-field columns with a single value")
}

func runSelect(cmd *cobra.Command, path string, opts *SelectOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	out, warnings, err := runSelection(cmd, cmdCtx, path, opts, nil)
	if err != nil {
		return err
	}
	reportWarnings(cmdCtx, warnings)

	if opts.Out != "" {
		return loader.WriteFile(opts.Out, out)
	}
	return renderTable(cmd.OutOrStdout(), out, cmdCtx.outputFormat(cmd))
}

// runSelection performs the shared normalise+select start of the select
// and aggregate commands. When agg is non-nil the aggregation follows.
func runSelection(cmd *cobra.Command, cmdCtx *CommandContext, path string, opts *SelectOptions, agg *AggregateOptions) (*table.Table, mapping.Warnings, error) {
	if !exists(path) {
		return nil, nil, fmt.Errorf("no such table: %s", path)
	}
	overrides, err := parseUnitOverrides(opts.Units)
	if err != nil {
		return nil, nil, err
	}
	selectOpts, err := buildSelectOptions(cmdCtx, opts)
	if err != nil {
		return nil, nil, err
	}

	raw, err := loader.ReadFile(path, cmdCtx.Engine.Registry())
	if err != nil {
		return nil, nil, err
	}
	normalised, err := cmdCtx.Engine.Normalise(raw, overrides)
	if err != nil {
		return nil, nil, err
	}

	if agg == nil {
		out, warnings, err := cmdCtx.Engine.Select(normalised, selectOpts)
		return out, warnings, err
	}

	aggOpts := engine.AggregateOptions{
		SelectOptions:  selectOpts,
		AggFields:      agg.Over,
		Masks:          agg.masks,
		ListReferences: agg.ListReferences,
	}
	return cmdCtx.Engine.Aggregate(normalised, aggOpts)
}

func buildSelectOptions(cmdCtx *CommandContext, opts *SelectOptions) (engine.SelectOptions, error) {
	fieldSel := make(map[string][]string, len(opts.Fields))
	for _, sel := range opts.Fields {
		name, vals, found := strings.Cut(sel, "=")
		if !found || name == "" || vals == "" {
			return engine.SelectOptions{}, fmt.Errorf("invalid field selector %q, want field=value[,value...]", sel)
		}
		fieldSel[strings.TrimSpace(name)] = splitTrim(vals)
	}

	periods, err := fields.ParsePeriods(opts.Periods)
	if err != nil {
		return engine.SelectOptions{}, err
	}

	modeName := opts.Mode
	if modeName == "" {
		modeName = cmdCtx.Cfg.PeriodMode
	}
	mode, err := fields.ParseMode(modeName)
	if err != nil {
		return engine.SelectOptions{}, err
	}

	return engine.SelectOptions{
		Fields:             fieldSel,
		Periods:            periods,
		PeriodMode:         mode,
		ExpandNotSpecified: opts.ExpandNS || cmdCtx.Cfg.ExpandNotSpecified,
		DropSingular:       !opts.KeepAll,
		WithParent:         opts.Parent,
	}, nil
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func reportWarnings(cmdCtx *CommandContext, warnings mapping.Warnings) {
	if len(warnings) > 0 {
		cmdCtx.Logger.Warn("mapping finished with warnings", "count", len(warnings))
	}
}
