package units

import (
	"fmt"
	"sort"
	"strings"
)

// Dimension is a vector of base-dimension exponents. A nil or empty map is
// dimensionless.
type Dimension map[string]int

// Base dimension names used by the packaged unit set.
const (
	DimMass     = "mass"
	DimLength   = "length"
	DimTime     = "time"
	DimCurrency = "currency"
)

// namedDimensions maps the dimension template names used in definition
// files to their base-dimension vectors.
var namedDimensions = map[string]Dimension{
	"dimensionless": {},
	"mass":          {DimMass: 1},
	"length":        {DimLength: 1},
	"time":          {DimTime: 1},
	"currency":      {DimCurrency: 1},
	"area":          {DimLength: 2},
	"volume":        {DimLength: 3},
	"energy":        {DimMass: 1, DimLength: 2, DimTime: -2},
	"power":         {DimMass: 1, DimLength: 2, DimTime: -3},
	"density":       {DimMass: 1, DimLength: -3},
}

// ParseDimension resolves a dimension template such as "currency/power" or
// "energy/mass" into a base-dimension vector.
func ParseDimension(template string) (Dimension, error) {
	parts := strings.Split(template, "/")
	dim := Dimension{}
	for i, p := range parts {
		p = strings.TrimSpace(p)
		d, ok := namedDimensions[p]
		if !ok {
			return nil, fmt.Errorf("unknown dimension %q in template %q", p, template)
		}
		if i == 0 {
			dim = dim.Mul(d)
		} else {
			dim = dim.Div(d)
		}
	}
	return dim, nil
}

// Mul returns the product of two dimensions.
func (d Dimension) Mul(o Dimension) Dimension {
	out := Dimension{}
	for k, v := range d {
		out[k] = v
	}
	for k, v := range o {
		out[k] += v
		if out[k] == 0 {
			delete(out, k)
		}
	}
	return out
}

// Div returns the quotient of two dimensions.
func (d Dimension) Div(o Dimension) Dimension {
	inv := Dimension{}
	for k, v := range o {
		inv[k] = -v
	}
	return d.Mul(inv)
}

// Equal reports whether two dimensions are commensurable.
func (d Dimension) Equal(o Dimension) bool {
	if len(normalize(d)) != len(normalize(o)) {
		return false
	}
	for k, v := range d {
		if v != 0 && o[k] != v {
			return false
		}
	}
	return true
}

// IsDimensionless reports whether all exponents are zero.
func (d Dimension) IsDimensionless() bool { return len(normalize(d)) == 0 }

func normalize(d Dimension) Dimension {
	out := Dimension{}
	for k, v := range d {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

// String renders a canonical form such as "mass·length²·time⁻²" reduced to
// plain ASCII ("mass*length^2*time^-2") for error messages.
func (d Dimension) String() string {
	n := normalize(d)
	if len(n) == 0 {
		return "dimensionless"
	}
	keys := make([]string, 0, len(n))
	for k := range n {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		if n[k] == 1 {
			parts[i] = k
		} else {
			parts[i] = fmt.Sprintf("%s^%d", k, n[k])
		}
	}
	return strings.Join(parts, "*")
}
