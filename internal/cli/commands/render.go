package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	prettytable "github.com/jedib0t/go-pretty/v6/table"

	"github.com/PhilippVerpoort/posted-sub000/internal/loader"
	"github.com/PhilippVerpoort/posted-sub000/pkg/table"
)

// renderTable writes a result table in the requested format.
func renderTable(w io.Writer, t *table.Table, format string) error {
	switch format {
	case "csv":
		return loader.Write(w, t)
	case "json":
		return renderJSON(w, t)
	case "", "table":
		return renderPretty(w, t)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderPretty(w io.Writer, t *table.Table) error {
	if t.Len() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	pw := prettytable.NewWriter()
	pw.SetOutputMirror(w)
	pw.SetStyle(prettytable.StyleLight)

	ids := t.ColumnIDs()
	header := make(prettytable.Row, len(ids))
	for i, id := range ids {
		header[i] = id
	}
	pw.AppendHeader(header)

	for i := 0; i < t.Len(); i++ {
		row := make(prettytable.Row, len(ids))
		for j, id := range ids {
			row[j] = t.Cell(i, id).String()
		}
		pw.AppendRow(row)
	}
	pw.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", t.Len())
	return nil
}

func renderJSON(w io.Writer, t *table.Table) error {
	ids := t.ColumnIDs()
	out := make([]map[string]any, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		row := make(map[string]any, len(ids))
		for _, id := range ids {
			cell := t.Cell(i, id)
			switch {
			case cell.IsMissing():
				row[id] = nil
			case cell.Kind() == table.KindFloat:
				// NaN is not representable in JSON; emit null.
				if v, ok := cell.Num(); ok && !math.IsNaN(v) {
					row[id] = v
				} else {
					row[id] = nil
				}
			default:
				row[id] = cell.String()
			}
		}
		out = append(out, row)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
