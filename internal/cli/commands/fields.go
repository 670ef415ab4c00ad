package commands

import (
	"strings"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewFieldsCommand creates the fields command, listing the registry's
// field and variable definitions.
func NewFieldsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List the registered fields and canonical variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defs := cmdCtx.Engine.Registry()
			w := cmd.OutOrStdout()

			ft := prettytable.NewWriter()
			ft.SetOutputMirror(w)
			ft.SetStyle(prettytable.StyleLight)
			ft.SetTitle("Fields")
			ft.AppendHeader(prettytable.Row{"id", "kind", "coded", "codes"})
			for _, f := range defs.Fields() {
				kind := string(f.Kind)
				if f.Period {
					kind += " (period)"
				}
				ft.AppendRow(prettytable.Row{f.ID, kind, f.Coded, strings.Join(f.Codes, ", ")})
			}
			ft.Render()

			vt := prettytable.NewWriter()
			vt.SetOutputMirror(w)
			vt.SetStyle(prettytable.StyleLight)
			vt.SetTitle("Variables")
			vt.AppendHeader(prettytable.Row{"name", "dimension", "default unit", "mapped"})
			for _, v := range defs.Variables() {
				vt.AppendRow(prettytable.Row{v.Name, v.Dimension, v.DefaultUnit, v.Mapped})
			}
			vt.Render()
			return nil
		},
	}
}
