package mapping

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/PhilippVerpoort/posted-sub000/pkg/table"
)

// activityHarmonisationRule rewrites activity ratios reported against
// different reference activities so that every activity is expressed
// against one chosen reference. Each activity row contributes a linear
// equation value_i * x[ref_i] - x[var_i] = 0; a normalisation row pins the
// target reference at 1. Capacity rows referencing the harmonised
// activities are rescaled by the solved factors; the per-time convention
// (capacity unit = activity unit per year) keeps their units consistent.
//
// Values are assumed to be in their canonical units already, which holds
// whenever the pipeline runs on a normalised table.
// residTol bounds the relative residual of an accepted solve. Reported
// ratios are rarely better than a few significant digits, so the bound
// only has to separate rounding noise from contradictory data.
const residTol = 1e-6

type activityHarmonisationRule struct{}

func (r *activityHarmonisationRule) Name() string { return "activity-harmonisation" }

func (r *activityHarmonisationRule) Claims(snapshot *table.Table, row int, cx Context) bool {
	def, ok := cx.Defs.Variable(variableOf(snapshot, row))
	if !ok || !(def.Activity || def.Capacity) {
		return false
	}
	ref, ok := snapshot.Cell(row, table.ColIDRefVariable).Str()
	if !ok {
		return false
	}
	refDef, ok := cx.Defs.Variable(activityForm(ref))
	return ok && refDef.Activity
}

func (r *activityHarmonisationRule) Apply(snapshot, out *table.Table, group, claimed []int, cx Context, sink *Warnings) {
	var activityRows, capacityRows []int
	for _, i := range claimed {
		def, _ := cx.Defs.Variable(variableOf(snapshot, i))
		if def.Capacity {
			capacityRows = append(capacityRows, i)
		} else {
			activityRows = append(activityRows, i)
		}
	}

	target := r.chooseTarget(snapshot, activityRows, capacityRows)
	if target == "" {
		return
	}

	// Already consistent groups pass through untouched; running the
	// pipeline twice is a no-op.
	consistent := true
	for _, i := range activityRows {
		if ref, _ := snapshot.Cell(i, table.ColIDRefVariable).Str(); ref != target {
			consistent = false
			break
		}
	}
	for _, i := range capacityRows {
		if ref, _ := snapshot.Cell(i, table.ColIDRefVariable).Str(); activityForm(ref) != target {
			consistent = false
			break
		}
	}
	if consistent {
		return
	}

	scale, category, msg := r.solve(snapshot, activityRows, target)
	if scale == nil {
		fail(out, sink, r.Name()+"/"+category, claimed, "%s", msg)
		return
	}

	targetDef, _ := cx.Defs.Variable(target)
	for _, i := range activityRows {
		name := variableOf(snapshot, i)
		out.SetCell(i, table.ColIDRefVariable, table.Text(target))
		out.SetCell(i, table.ColIDValue, table.Float(scale[name]))
		if targetDef.DefaultUnit != "" {
			out.SetCell(i, table.ColIDRefUnit, table.Text(targetDef.DefaultUnit))
		}
	}

	capTarget := capacityForm(target)
	capDef, _ := cx.Defs.Variable(capTarget)
	for _, i := range capacityRows {
		ref, _ := snapshot.Cell(i, table.ColIDRefVariable).Str()
		refActivity := activityForm(ref)
		factor, ok := scale[refActivity]
		if !ok {
			fail(out, sink, r.Name(), []int{i},
				"capacity references %q, which no activity row defines", ref)
			continue
		}
		v := snapshot.Cell(i, table.ColIDValue).NumOrNaN()
		out.SetCell(i, table.ColIDValue, table.Float(v*factor))
		out.SetCell(i, table.ColIDRefVariable, table.Text(capTarget))
		if capDef.DefaultUnit != "" {
			out.SetCell(i, table.ColIDRefUnit, table.Text(capDef.DefaultUnit))
		}
	}
}

// chooseTarget picks the reference activity to express everything against:
// the most frequent reference among activity rows, ties broken
// lexicographically so the choice is deterministic.
func (r *activityHarmonisationRule) chooseTarget(snapshot *table.Table, activityRows, capacityRows []int) string {
	counts := make(map[string]int)
	for _, i := range activityRows {
		if ref, ok := snapshot.Cell(i, table.ColIDRefVariable).Str(); ok {
			counts[ref]++
		}
	}
	if len(counts) == 0 {
		for _, i := range capacityRows {
			if ref, ok := snapshot.Cell(i, table.ColIDRefVariable).Str(); ok {
				counts[activityForm(ref)]++
			}
		}
	}
	target, best := "", 0
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if counts[name] > best {
			target, best = name, counts[name]
		}
	}
	return target
}

// solve builds and solves the linear system. It returns the scale factor
// per activity name, or a nil map with a warning category distinguishing
// an underdetermined system from genuinely inconsistent reported data.
func (r *activityHarmonisationRule) solve(snapshot *table.Table, activityRows []int, target string) (map[string]float64, string, string) {
	index := map[string]int{target: 0}
	names := []string{target}
	add := func(name string) {
		if _, ok := index[name]; !ok {
			index[name] = len(names)
			names = append(names, name)
		}
	}
	for _, i := range activityRows {
		add(variableOf(snapshot, i))
		if ref, ok := snapshot.Cell(i, table.ColIDRefVariable).Str(); ok {
			add(ref)
		}
	}

	n := len(names)
	m := len(activityRows) + 1
	if m < n {
		return nil, "underdetermined",
			"fewer activity equations than activities; cannot harmonise"
	}

	a := mat.NewDense(m, n, nil)
	b := mat.NewVecDense(m, nil)
	for row, i := range activityRows {
		v := snapshot.Cell(i, table.ColIDValue).NumOrNaN()
		ref, _ := snapshot.Cell(i, table.ColIDRefVariable).Str()
		a.Set(row, index[ref], v)
		a.Set(row, index[variableOf(snapshot, i)], a.At(row, index[variableOf(snapshot, i)])-1)
	}
	a.Set(m-1, index[target], 1)
	b.SetVec(m-1, 1)

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return nil, "inconsistent",
			"singular activity system; reported activities are inconsistent"
	}

	// Overdetermined systems solve by least squares without error, so a
	// contradictory set of ratios has to be caught from the residual.
	var resid mat.VecDense
	resid.MulVec(a, &x)
	resid.SubVec(&resid, b)
	if mat.Norm(&resid, 2) > residTol*math.Max(1, mat.Norm(b, 2)) {
		return nil, "inconsistent",
			"reported activity ratios contradict each other; cannot harmonise"
	}

	scale := make(map[string]float64, n)
	for name, j := range index {
		scale[name] = x.AtVec(j)
	}
	return scale, "", ""
}
