package engine

import (
	"fmt"
	"math"

	"github.com/PhilippVerpoort/posted-sub000/pkg/table"
)

// Normalise converts every row to its variable's canonical unit and folds
// the reference value to exactly 1.0, after which the reference unit is
// the quantity's unit of account. unitOverrides replaces the canonical
// unit per variable name. Unit errors are fatal here; inside the mapping
// pipeline they downgrade to warnings.
func (e *Engine) Normalise(t *table.Table, unitOverrides map[string]string) (*table.Table, error) {
	ureg := e.defs.Units()
	out := t.Clone()
	for i := 0; i < out.Len(); i++ {
		variable, ok := out.Cell(i, table.ColIDVariable).Str()
		if !ok {
			return nil, fmt.Errorf("row %d: missing variable", i)
		}
		def, ok := e.defs.Variable(variable)
		if !ok {
			return nil, fmt.Errorf("row %d: unknown variable %q", i, variable)
		}

		target := unitOverrides[variable]
		if target == "" {
			target = def.DefaultUnit
		}
		if target != "" {
			unit, _ := out.Cell(i, table.ColIDUnit).Str()
			if unit == "" {
				unit = target
			}
			factor, err := ureg.Factor(unit, target, e.defs.FlowOf(variable))
			if err != nil {
				return nil, fmt.Errorf("row %d, variable %q: %w", i, variable, err)
			}
			scaleCell(out, i, table.ColIDValue, factor)
			scaleCell(out, i, table.ColIDUncertainty, factor)
			out.SetCell(i, table.ColIDUnit, table.Text(target))
		}

		if err := e.foldReference(out, i, unitOverrides); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// foldReference normalises the reference side of a row: the reference
// value is converted to the reference variable's canonical unit and
// divided out, leaving it at exactly 1.0. A missing reference value reads
// as 1.0 in the reported reference unit.
func (e *Engine) foldReference(t *table.Table, row int, unitOverrides map[string]string) error {
	refVar, ok := t.Cell(row, table.ColIDRefVariable).Str()
	if !ok {
		return nil // absolute quantity
	}
	refDef, ok := e.defs.Variable(refVar)
	if !ok {
		return fmt.Errorf("row %d: unknown reference variable %q", row, refVar)
	}
	refTarget := unitOverrides[refVar]
	if refTarget == "" {
		refTarget = refDef.DefaultUnit
	}
	if refTarget == "" {
		return nil
	}

	refUnit, _ := t.Cell(row, table.ColIDRefUnit).Str()
	if refUnit == "" {
		refUnit = refTarget
	}
	refValue := t.Cell(row, table.ColIDRefValue).NumOrNaN()
	if math.IsNaN(refValue) {
		refValue = 1
	}
	converted, err := e.defs.Units().Convert(refValue, refUnit, refTarget, e.defs.FlowOf(refVar))
	if err != nil {
		return fmt.Errorf("row %d, reference %q: %w", row, refVar, err)
	}

	scaleCell(t, row, table.ColIDValue, 1/converted)
	scaleCell(t, row, table.ColIDUncertainty, 1/converted)
	t.SetCell(row, table.ColIDRefValue, table.Float(1))
	t.SetCell(row, table.ColIDRefUnit, table.Text(refTarget))
	return nil
}

func scaleCell(t *table.Table, row int, col string, factor float64) {
	if v, ok := t.Cell(row, col).Num(); ok {
		t.SetCell(row, col, table.Float(v*factor))
	}
}
