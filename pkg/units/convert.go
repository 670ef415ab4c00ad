package units

import (
	"fmt"
	"math"
)

// familyDims maps each variant family to the dimension of its context
// parameter: energy content converts mass to energy, density converts
// volume to mass.
var familyDims = map[Family]Dimension{
	FamilyEnergyContent: {DimLength: 2, DimTime: -2},
	FamilyDensity:       {DimMass: 1, DimLength: -3},
}

// Convert converts a value between two unit expressions, optionally under a
// flow's variant context. NaN values propagate without error; they encode
// "no reference value", not a failure.
func (r *Registry) Convert(value float64, from, to string, flowID string) (float64, error) {
	if math.IsNaN(value) {
		return math.NaN(), nil
	}
	factor, err := r.Factor(from, to, flowID)
	if err != nil {
		return math.NaN(), err
	}
	return value * factor, nil
}

// Factor returns the multiplicative conversion factor from one unit
// expression to another under the flow's context.
func (r *Registry) Factor(from, to string, flowID string) (float64, error) {
	if from == to {
		return 1, nil
	}
	baseFrom, vf, err := SplitVariant(from)
	if err != nil {
		return 0, err
	}
	baseTo, vt, err := SplitVariant(to)
	if err != nil {
		return 0, err
	}
	uf, err := r.resolve(baseFrom)
	if err != nil {
		return 0, err
	}
	ut, err := r.resolve(baseTo)
	if err != nil {
		return 0, err
	}

	if uf.dim.Equal(ut.dim) {
		plain := uf.factor / ut.factor
		// Identical variant on both sides cancels analytically; no flow
		// parameter is consulted. Likewise a variant on only one side of a
		// commensurable conversion changes nothing.
		if vf != vt && FamilyOf(vf) == FamilyOf(vt) && vf != VariantNone {
			// Basis change within one family, e.g. MWh;LHV -> MWh;HHV.
			// Composing strip and re-apply gives the ratio of the two
			// parameters; the other family is never consulted.
			pf, err := r.flowParam(flowID, vf)
			if err != nil {
				return 0, err
			}
			pt, err := r.flowParam(flowID, vt)
			if err != nil {
				return 0, err
			}
			return plain * pt.si / pf.si, nil
		}
		return plain, nil
	}

	// Dimensional promotion or demotion: search the exponent combination
	// of the declared variants' parameter dimensions that bridges the two
	// sides. Feasibility is decided on dimensions alone, so a missing flow
	// parameter is only reported when that parameter is actually needed.
	efs := []int{0}
	if vf != VariantNone {
		efs = []int{1, -1}
	}
	ets := []int{0}
	if vt != VariantNone {
		ets = []int{1, -1}
	}
	for _, ef := range efs {
		for _, et := range ets {
			dim := uf.dim
			dim = dim.Mul(pow(familyDims[FamilyOf(vf)], ef))
			dim = dim.Mul(pow(familyDims[FamilyOf(vt)], et))
			if !dim.Equal(ut.dim) {
				continue
			}
			factor := uf.factor / ut.factor
			if ef != 0 {
				p, err := r.flowParam(flowID, vf)
				if err != nil {
					return 0, err
				}
				factor *= math.Pow(p.si, float64(ef))
			}
			if et != 0 {
				p, err := r.flowParam(flowID, vt)
				if err != nil {
					return 0, err
				}
				factor *= math.Pow(p.si, float64(et))
			}
			return factor, nil
		}
	}
	return 0, fmt.Errorf("%w: cannot convert %q (%s) to %q (%s)",
		ErrIncompatibleDimension, from, uf.dim, to, ut.dim)
}

func pow(d Dimension, e int) Dimension {
	out := Dimension{}
	for k, v := range d {
		out[k] = v * e
	}
	return out
}
