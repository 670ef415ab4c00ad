// Package fields implements the field model: expansion of wildcard and
// not-specified markers into concrete values, selection of requested
// values, and the period field's match/interpolate/extrapolate resolution.
package fields

import (
	"fmt"
	"sort"

	"github.com/PhilippVerpoort/posted-sub000/internal/registry"
	"github.com/PhilippVerpoort/posted-sub000/pkg/table"
)

// Field selects and expands one categorical column.
type Field interface {
	// ID returns the column id the field operates on.
	ID() string
	// SelectAndExpand expands wildcard (and optionally not-specified) rows
	// into one row per requested value and drops concrete rows that match
	// no requested value. An empty request means every value present.
	SelectAndExpand(t *table.Table, requested []string, expandNotSpecified bool) (*table.Table, error)
}

// New builds the field implementation for a definition.
func New(def registry.FieldDef) Field {
	if def.Period {
		return &PeriodField{def: def}
	}
	return &CaseField{def: def}
}

// CaseField is a plain categorical field, coded or free.
type CaseField struct {
	def registry.FieldDef
}

// ID returns the column id.
func (f *CaseField) ID() string { return f.def.ID }

// SelectAndExpand implements Field.
func (f *CaseField) SelectAndExpand(t *table.Table, requested []string, expandNotSpecified bool) (*table.Table, error) {
	if f.def.Coded {
		for _, v := range requested {
			if !contains(f.def.Codes, v) {
				return nil, fmt.Errorf("field %q: %q is not a valid code", f.def.ID, v)
			}
		}
	}
	if len(requested) == 0 {
		requested = f.values(t)
	}
	want := make(map[string]bool, len(requested))
	for _, v := range requested {
		want[v] = true
	}

	out := t.CloneEmpty()
	for i := 0; i < t.Len(); i++ {
		cell := t.Cell(i, f.def.ID)
		switch {
		case cell.Kind() == table.KindWildcard,
			expandNotSpecified && (cell.Kind() == table.KindNotSpecified || cell.IsMissing()):
			for _, v := range requested {
				row := t.Row(i).Clone()
				row[f.def.ID] = table.Text(v)
				out.AppendRow(row)
			}
		case cell.Kind() == table.KindNotSpecified, cell.IsMissing():
			// Kept as its own category when not expanded.
			out.AppendRow(t.Row(i).Clone())
		default:
			if want[cell.String()] {
				out.AppendRow(t.Row(i).Clone())
			}
		}
	}
	return out, nil
}

// values returns the selectable values of the column: the codes for coded
// fields, otherwise the distinct concrete values present, sorted.
func (f *CaseField) values(t *table.Table) []string {
	if f.def.Coded {
		return f.def.Codes
	}
	seen := make(map[string]bool)
	var vals []string
	for i := 0; i < t.Len(); i++ {
		cell := t.Cell(i, f.def.ID)
		if cell.IsConcrete() && !seen[cell.String()] {
			seen[cell.String()] = true
			vals = append(vals, cell.String())
		}
	}
	sort.Strings(vals)
	return vals
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
