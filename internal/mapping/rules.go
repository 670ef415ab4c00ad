package mapping

import (
	"math"
	"strings"

	"github.com/PhilippVerpoort/posted-sub000/pkg/table"
	"github.com/PhilippVerpoort/posted-sub000/pkg/units"
)

// Canonical and raw variable names the packaged rules operate on.
const (
	varFLH           = "FLH"
	varOCF           = "OCF"
	varCAPEX         = "CAPEX"
	varOPEXFixed     = "OPEX Fixed"
	varOPEXFixedRel  = "OPEX Fixed Relative"
	varOPEXFixedSpec = "OPEX Fixed Specific"
)

func variableOf(t *table.Table, row int) string {
	s, _ := t.Cell(row, table.ColIDVariable).Str()
	return s
}

func unitOf(t *table.Table, row int) string {
	s, _ := t.Cell(row, table.ColIDUnit).Str()
	return s
}

// fullLoadHoursRule converts reported full-load hours into the operating
// capacity factor: OCF = FLH / (1 a), unit-converted.
type fullLoadHoursRule struct{}

func (r *fullLoadHoursRule) Name() string { return "full-load-hours" }

func (r *fullLoadHoursRule) Claims(snapshot *table.Table, row int, _ Context) bool {
	return variableOf(snapshot, row) == varFLH
}

func (r *fullLoadHoursRule) Apply(snapshot, out *table.Table, group, claimed []int, cx Context, sink *Warnings) {
	ureg := cx.Defs.Units()
	for _, i := range claimed {
		v := snapshot.Cell(i, table.ColIDValue).NumOrNaN()
		unit := unitOf(snapshot, i)

		// FLH is reported either as plain time ("h", implying per year) or
		// already as a per-year ratio ("h/a").
		target := "dimensionless"
		if dim, err := ureg.Dim(unit); err == nil {
			if d, _ := units.ParseDimension("time"); dim.Equal(d) {
				target = "a"
			}
		}
		ocf, err := ureg.Convert(v, unit, target, "")
		if err != nil {
			fail(out, sink, r.Name(), []int{i}, "cannot convert %q: %v", unit, err)
			ocf = math.NaN()
		}
		out.SetCell(i, table.ColIDVariable, table.Text(varOCF))
		out.SetCell(i, table.ColIDUnit, table.Text("dimensionless"))
		out.SetCell(i, table.ColIDValue, table.Float(ocf))
	}
}

// relativeFixedCostRule rewrites fixed cost reported as a share of CAPEX
// into absolute fixed cost, copying the reference from the CAPEX rows of
// the same group.
type relativeFixedCostRule struct{}

func (r *relativeFixedCostRule) Name() string { return "relative-fixed-cost" }

func (r *relativeFixedCostRule) Claims(snapshot *table.Table, row int, _ Context) bool {
	return variableOf(snapshot, row) == varOPEXFixedRel
}

func (r *relativeFixedCostRule) Apply(snapshot, out *table.Table, group, claimed []int, cx Context, sink *Warnings) {
	ureg := cx.Defs.Units()

	// CAPEX may be broken into components within the group; the relative
	// cost refers to the total.
	var capexRows []int
	for _, i := range group {
		if variableOf(snapshot, i) == varCAPEX {
			capexRows = append(capexRows, i)
		}
	}
	for _, i := range claimed {
		out.SetCell(i, table.ColIDVariable, table.Text(varOPEXFixed))
		if len(capexRows) == 0 {
			fail(out, sink, r.Name(), []int{i}, "no %s row in group", varCAPEX)
			continue
		}
		capex := 0.0
		for _, ci := range capexRows {
			capex += snapshot.Cell(ci, table.ColIDValue).NumOrNaN()
		}
		rel, err := ureg.Convert(snapshot.Cell(i, table.ColIDValue).NumOrNaN(), unitOf(snapshot, i), "dimensionless", "")
		if err != nil {
			fail(out, sink, r.Name(), []int{i}, "cannot convert %q: %v", unitOf(snapshot, i), err)
			continue
		}
		first := capexRows[0]
		out.SetCell(i, table.ColIDValue, table.Float(rel*capex))
		out.SetCell(i, table.ColIDUnit, table.Text(perYear(unitOf(snapshot, first))))
		out.SetCell(i, table.ColIDRefVariable, snapshot.Cell(first, table.ColIDRefVariable))
		out.SetCell(i, table.ColIDRefValue, snapshot.Cell(first, table.ColIDRefValue))
		out.SetCell(i, table.ColIDRefUnit, snapshot.Cell(first, table.ColIDRefUnit))
	}
}

// specificFixedCostRule rewrites fixed cost reported per unit of input
// into absolute fixed cost per input capacity, dividing by the operating
// capacity factor and promoting the reference to its per-time basis.
type specificFixedCostRule struct{}

func (r *specificFixedCostRule) Name() string { return "specific-fixed-cost" }

func (r *specificFixedCostRule) Claims(snapshot *table.Table, row int, _ Context) bool {
	return variableOf(snapshot, row) == varOPEXFixedSpec
}

func (r *specificFixedCostRule) Apply(snapshot, out *table.Table, group, claimed []int, cx Context, sink *Warnings) {
	ocfRow := -1
	for _, i := range group {
		if variableOf(snapshot, i) == varOCF {
			ocfRow = i
			break
		}
	}
	for _, i := range claimed {
		out.SetCell(i, table.ColIDVariable, table.Text(varOPEXFixed))
		if ocfRow == -1 {
			fail(out, sink, r.Name(), []int{i}, "no %s row in group", varOCF)
			continue
		}
		ocf := snapshot.Cell(ocfRow, table.ColIDValue).NumOrNaN()
		v := snapshot.Cell(i, table.ColIDValue).NumOrNaN()
		out.SetCell(i, table.ColIDValue, table.Float(v/ocf))

		if ref, ok := snapshot.Cell(i, table.ColIDRefVariable).Str(); ok {
			out.SetCell(i, table.ColIDRefVariable, table.Text(capacityForm(ref)))
		}
		if refUnit, ok := snapshot.Cell(i, table.ColIDRefUnit).Str(); ok {
			out.SetCell(i, table.ColIDRefUnit, table.Text(perYear(refUnit)))
		}
	}
}

// perYear promotes a unit expression to its per-time form, keeping any
// variant suffix at the end: "MWh;LHV" -> "MWh/a;LHV".
func perYear(expr string) string {
	base, variant, err := units.SplitVariant(expr)
	if err != nil || variant == units.VariantNone {
		return expr + "/a"
	}
	return base + "/a;" + string(variant)
}

// capacityForm maps an activity variable to its capacity counterpart:
// "Input|Hydrogen" -> "Input Capacity|Hydrogen".
func capacityForm(activity string) string {
	head, tail, found := strings.Cut(activity, "|")
	if !found {
		return activity
	}
	return head + " Capacity|" + tail
}

// activityForm is the inverse of capacityForm.
func activityForm(capacity string) string {
	head, tail, found := strings.Cut(capacity, "|")
	if !found {
		return capacity
	}
	return strings.Replace(head, " Capacity", "", 1) + "|" + tail
}
