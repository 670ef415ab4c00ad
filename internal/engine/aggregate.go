package engine

import (
	"fmt"

	"github.com/PhilippVerpoort/posted-sub000/internal/aggregate"
	"github.com/PhilippVerpoort/posted-sub000/internal/mapping"
	"github.com/PhilippVerpoort/posted-sub000/pkg/table"
)

// Aggregate runs Select and then the two-stage reduction: component sums
// within each case, followed by masked weighted averages across the
// requested case dimensions. Reference bookkeeping is reattached per the
// ListReferences option.
func (e *Engine) Aggregate(t *table.Table, opts AggregateOptions) (*table.Table, mapping.Warnings, error) {
	var componentFields, caseFields []string
	for _, id := range opts.AggFields {
		col, ok := t.Column(id)
		if !ok {
			// Registered fields simply absent from this table reduce to a
			// no-op; anything else is a configuration error.
			if _, known := e.defs.Field(id); known {
				continue
			}
			return nil, nil, fmt.Errorf("invalid aggregation field %q: no such column", id)
		}
		switch col.Kind {
		case table.ColComponentField:
			componentFields = append(componentFields, id)
		case table.ColCaseField:
			caseFields = append(caseFields, id)
		default:
			return nil, nil, fmt.Errorf("invalid aggregation field %q: not a case or component field", id)
		}
	}

	inner := opts.SelectOptions
	inner.WithParent = ""
	inner.DropSingular = false
	out, warnings, err := e.selectRaw(t, inner)
	if err != nil {
		return nil, nil, err
	}

	if len(componentFields) > 0 {
		out = aggregate.ComponentSum(out, componentFields)
	}
	masks := append(append([]aggregate.Mask(nil), e.masks...), opts.Masks...)
	out = aggregate.WeightedAverage(out, caseFields, masks)

	if opts.ListReferences {
		e.appendReferenceRows(out)
	} else {
		e.resolveReferenceUnits(out)
	}

	e.finish(out, opts.DropSingular, opts.WithParent)
	return out, warnings, nil
}

// appendReferenceRows collapses each resolved reference variable to one
// explicit row at value 1.0 and appends it. The per-row reference columns
// are cleared on the data rows too: after this pass the appended rows are
// the only reference bookkeeping left.
func (e *Engine) appendReferenceRows(t *table.Table) {
	type ref struct{ variable, unit string }
	seen := make(map[ref]int)
	var order []ref
	for i := 0; i < t.Len(); i++ {
		variable, ok := t.Cell(i, table.ColIDRefVariable).Str()
		if !ok {
			continue
		}
		unit, _ := t.Cell(i, table.ColIDRefUnit).Str()
		r := ref{variable, unit}
		if _, dup := seen[r]; !dup {
			seen[r] = i
			order = append(order, r)
		}
	}
	dataLen := t.Len()
	for _, r := range order {
		row := t.Row(seen[r]).Clone()
		row[table.ColIDVariable] = table.Text(r.variable)
		row[table.ColIDValue] = table.Float(1)
		row[table.ColIDUnit] = table.Text(r.unit)
		row[table.ColIDRefVariable] = table.Missing()
		row[table.ColIDRefValue] = table.Missing()
		row[table.ColIDRefUnit] = table.Missing()
		row[table.ColIDUncertainty] = table.Missing()
		t.AppendRow(row)
	}
	for i := 0; i < dataLen; i++ {
		t.SetCell(i, table.ColIDRefVariable, table.Missing())
		t.SetCell(i, table.ColIDRefValue, table.Missing())
		t.SetCell(i, table.ColIDRefUnit, table.Missing())
	}
}

// resolveReferenceUnits fills empty reference-unit cells from the
// registry's canonical unit of the resolved reference variable.
func (e *Engine) resolveReferenceUnits(t *table.Table) {
	for i := 0; i < t.Len(); i++ {
		variable, ok := t.Cell(i, table.ColIDRefVariable).Str()
		if !ok {
			continue
		}
		if s, set := t.Cell(i, table.ColIDRefUnit).Str(); set && s != "" {
			continue
		}
		if def, ok := e.defs.Variable(variable); ok && def.DefaultUnit != "" {
			t.SetCell(i, table.ColIDRefUnit, table.Text(def.DefaultUnit))
		}
	}
}
