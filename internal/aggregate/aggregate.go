package aggregate

import (
	"math"

	"github.com/PhilippVerpoort/posted-sub000/pkg/table"
)

// groupColumns returns every column id that identifies a case: all columns
// except the numeric value columns, comments, and the fields being
// aggregated over. Comments and uncertainties annotate rows, they never
// separate them.
func groupColumns(t *table.Table, aggFields []string) []string {
	skip := make(map[string]bool, len(aggFields))
	for _, id := range aggFields {
		skip[id] = true
	}
	var cols []string
	for _, c := range t.Columns() {
		switch {
		case skip[c.ID]:
		case c.Kind == table.ColValue, c.Kind == table.ColRefValue, c.Kind == table.ColUncertainty:
		case c.Kind == table.ColComment:
		default:
			cols = append(cols, c.ID)
		}
	}
	return cols
}

// blankAnnotations clears the comment and uncertainty cells of a row
// collapsed from several inputs; no single input's annotation describes the
// merged value.
func blankAnnotations(t *table.Table, row table.Row) {
	for _, c := range t.Columns() {
		if c.Kind == table.ColUncertainty || c.Kind == table.ColComment {
			row[c.ID] = table.Missing()
		}
	}
}

// ComponentSum collapses the requested component breakdowns: rows are
// grouped by their case columns minus the given component fields, and
// their values summed. The component cells of the collapsed row carry the
// reserved total marker. Values are assumed normalised, so reference
// values and units agree within a group.
func ComponentSum(t *table.Table, componentFields []string) *table.Table {
	groups := t.GroupBy(groupColumns(t, componentFields))

	out := t.CloneEmpty()
	for _, g := range groups {
		row := t.Row(g.Rows[0]).Clone()
		sum := 0.0
		seen := false
		for _, i := range g.Rows {
			if v, ok := t.Cell(i, table.ColIDValue).Num(); ok {
				sum += v
				seen = true
			}
		}
		if seen {
			row[table.ColIDValue] = table.Float(sum)
		} else {
			row[table.ColIDValue] = table.Missing()
		}
		for _, f := range componentFields {
			if _, ok := t.Column(f); ok {
				row[f] = table.Text(table.ComponentTotalToken)
			}
		}
		if len(g.Rows) > 1 {
			blankAnnotations(t, row)
		}
		out.AppendRow(row)
	}
	return out
}

// WeightedAverage reduces the requested case dimensions to one row per
// remaining case by masked weighted averaging. Every row starts at weight
// 1; each mask whose Where condition matches the whole group multiplies
// the row weights; rows with NaN weight are dropped. A group whose rows
// are all dropped, or whose surviving weights sum to zero, produces no
// output row.
func WeightedAverage(t *table.Table, aggFields []string, masks []Mask) *table.Table {
	groups := t.GroupBy(groupColumns(t, aggFields))

	out := t.CloneEmpty()
	for _, g := range groups {
		weights := make([]float64, len(g.Rows))
		for k := range weights {
			weights[k] = 1
		}
		for _, m := range masks {
			if !m.AppliesTo(t, g.Rows) {
				continue
			}
			for k, i := range g.Rows {
				weights[k] *= m.WeightFor(t, i)
			}
		}

		var sumW, sumWV float64
		first, survivors := -1, 0
		for k, i := range g.Rows {
			if math.IsNaN(weights[k]) {
				continue
			}
			if first < 0 {
				first = i
			}
			survivors++
			sumW += weights[k]
			sumWV += weights[k] * t.Cell(i, table.ColIDValue).NumOrNaN()
		}
		if survivors == 0 || sumW == 0 {
			continue
		}

		row := t.Row(first).Clone()
		row[table.ColIDValue] = table.Float(sumWV / sumW)
		if survivors > 1 {
			blankAnnotations(t, row)
		}
		for _, f := range aggFields {
			if _, ok := t.Column(f); ok {
				delete(row, f)
			}
		}
		out.AppendRow(row)
	}
	for _, f := range aggFields {
		out.DropColumn(f)
	}
	return out
}
