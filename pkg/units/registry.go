// Package units implements the unit and flow conversion layer: a registry
// of named physical units with dimension vectors and SI factors, plus the
// variant algebra (LHV/HHV energy-content basis, norm/standard density
// basis) that converts between reporting bases of a named flow.
package units

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors of the conversion taxonomy.
var (
	// ErrUnknownUnit is returned when a unit expression cannot be resolved
	// against the registry.
	ErrUnknownUnit = errors.New("unknown unit")
	// ErrIncompatibleDimension is returned when two unit expressions are not
	// commensurable, even after applying flow context.
	ErrIncompatibleDimension = errors.New("incompatible dimensions")
	// ErrMissingFlowContext is returned when a variant conversion needs a
	// flow parameter that is not defined.
	ErrMissingFlowContext = errors.New("missing flow context")
	// ErrUnknownFlow is returned when a flow id is not registered.
	ErrUnknownFlow = errors.New("unknown flow")
)

// Variant names an alternate reporting basis of a unit.
type Variant string

// The two variant families: energy-content basis and density basis.
const (
	VariantNone     Variant = ""
	VariantLHV      Variant = "LHV"
	VariantHHV      Variant = "HHV"
	VariantNorm     Variant = "norm"
	VariantStandard Variant = "standard"
)

// Family groups variants that share one flow context parameter kind.
type Family uint8

const (
	// FamilyNone marks the absence of a variant.
	FamilyNone Family = iota
	// FamilyEnergyContent covers LHV/HHV.
	FamilyEnergyContent
	// FamilyDensity covers norm/standard.
	FamilyDensity
)

// FamilyOf returns the family a variant belongs to.
func FamilyOf(v Variant) Family {
	switch v {
	case VariantLHV, VariantHHV:
		return FamilyEnergyContent
	case VariantNorm, VariantStandard:
		return FamilyDensity
	default:
		return FamilyNone
	}
}

// unit is a resolved unit: dimension vector plus factor to the coherent
// SI-ish base of that dimension.
type unit struct {
	name   string
	dim    Dimension
	factor float64
}

// Quantity is a value with a unit expression, as flows declare their
// context parameters.
type Quantity struct {
	Value float64 `yaml:"value" koanf:"value"`
	Unit  string  `yaml:"unit" koanf:"unit"`
}

// Flow supplies the variant context parameters of one flow (e.g.
// "hydrogen"). Any subset of the parameters may be defined.
type Flow struct {
	ID            string              `yaml:"id" koanf:"id"`
	EnergyContent map[string]Quantity `yaml:"energycontent" koanf:"energycontent"`
	Density       map[string]Quantity `yaml:"density" koanf:"density"`
}

// param holds a flow parameter normalised to SI.
type param struct {
	si  float64
	dim Dimension
}

type flowParams struct {
	id     string
	params map[Variant]param
}

// Registry is an immutable set of unit and flow definitions. It is
// populated once at startup and never mutated afterwards; engine calls
// receive it by reference.
type Registry struct {
	units map[string]unit
	flows map[string]flowParams
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		units: make(map[string]unit),
		flows: make(map[string]flowParams),
	}
}

// RegisterUnit adds a named unit with the dimension template and SI factor.
func (r *Registry) RegisterUnit(name, dimension string, factor float64) error {
	if name == "" {
		return fmt.Errorf("register unit: empty name")
	}
	if _, ok := r.units[name]; ok {
		return fmt.Errorf("register unit %q: duplicate definition", name)
	}
	dim, err := ParseDimension(dimension)
	if err != nil {
		return fmt.Errorf("register unit %q: %w", name, err)
	}
	if factor <= 0 {
		return fmt.Errorf("register unit %q: factor must be positive", name)
	}
	r.units[name] = unit{name: name, dim: dim, factor: factor}
	return nil
}

// RegisterFlow adds a flow, converting its declared parameters to SI. The
// declared parameter units must already be registered.
func (r *Registry) RegisterFlow(f Flow) error {
	if f.ID == "" {
		return fmt.Errorf("register flow: empty id")
	}
	if _, ok := r.flows[f.ID]; ok {
		return fmt.Errorf("register flow %q: duplicate definition", f.ID)
	}
	fp := flowParams{id: f.ID, params: make(map[Variant]param)}
	add := func(v Variant, q Quantity, wantDim string) error {
		u, err := r.resolve(q.Unit)
		if err != nil {
			return fmt.Errorf("flow %q parameter %s: %w", f.ID, v, err)
		}
		want, _ := ParseDimension(wantDim)
		if !u.dim.Equal(want) {
			return fmt.Errorf("flow %q parameter %s: unit %q is not %s", f.ID, v, q.Unit, wantDim)
		}
		fp.params[v] = param{si: q.Value * u.factor, dim: u.dim}
		return nil
	}
	for name, q := range f.EnergyContent {
		v := Variant(name)
		if FamilyOf(v) != FamilyEnergyContent {
			return fmt.Errorf("flow %q: %q is not an energy-content variant", f.ID, name)
		}
		if err := add(v, q, "energy/mass"); err != nil {
			return err
		}
	}
	for name, q := range f.Density {
		v := Variant(name)
		if FamilyOf(v) != FamilyDensity {
			return fmt.Errorf("flow %q: %q is not a density variant", f.ID, name)
		}
		if err := add(v, q, "density"); err != nil {
			return err
		}
	}
	r.flows[f.ID] = fp
	return nil
}

// HasFlow reports whether a flow id is registered.
func (r *Registry) HasFlow(id string) bool {
	_, ok := r.flows[id]
	return ok
}

// HasUnit reports whether a unit expression resolves.
func (r *Registry) HasUnit(expr string) bool {
	base, _, err := SplitVariant(expr)
	if err != nil {
		return false
	}
	_, err = r.resolve(base)
	return err == nil
}

// Dim returns the dimension of a unit expression (variant suffix ignored).
func (r *Registry) Dim(expr string) (Dimension, error) {
	base, _, err := SplitVariant(expr)
	if err != nil {
		return nil, err
	}
	u, err := r.resolve(base)
	if err != nil {
		return nil, err
	}
	return u.dim, nil
}

// SplitVariant separates "MWh;LHV" into base expression and variant.
func SplitVariant(expr string) (string, Variant, error) {
	base, suffix, found := strings.Cut(expr, ";")
	if !found {
		return expr, VariantNone, nil
	}
	v := Variant(suffix)
	if FamilyOf(v) == FamilyNone {
		return "", VariantNone, fmt.Errorf("unit %q: unknown variant %q", expr, suffix)
	}
	return base, v, nil
}

// resolve looks up a unit expression, deriving division chains such as
// "USD/kW/a" from registered units on demand.
func (r *Registry) resolve(expr string) (unit, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return unit{}, fmt.Errorf("%w: empty unit expression", ErrUnknownUnit)
	}
	if u, ok := r.units[expr]; ok {
		return u, nil
	}
	parts := strings.Split(expr, "/")
	out := unit{name: expr, dim: Dimension{}, factor: 1}
	for i, p := range parts {
		u, ok := r.units[strings.TrimSpace(p)]
		if !ok {
			return unit{}, fmt.Errorf("%w: %q", ErrUnknownUnit, expr)
		}
		if i == 0 {
			out.dim = out.dim.Mul(u.dim)
			out.factor *= u.factor
		} else {
			out.dim = out.dim.Div(u.dim)
			out.factor /= u.factor
		}
	}
	return out, nil
}

// flowParam fetches a flow's parameter for a variant.
func (r *Registry) flowParam(flowID string, v Variant) (param, error) {
	if flowID == "" {
		return param{}, fmt.Errorf("%w: variant %q requires a flow", ErrMissingFlowContext, v)
	}
	fp, ok := r.flows[flowID]
	if !ok {
		return param{}, fmt.Errorf("%w: %q", ErrUnknownFlow, flowID)
	}
	p, ok := fp.params[v]
	if !ok {
		return param{}, fmt.Errorf("%w: flow %q does not define %s", ErrMissingFlowContext, flowID, v)
	}
	return p, nil
}
