// Package registry provides the definition registry: canonical variables,
// categorical fields, and the unit/flow registry they reference. It is
// populated once at startup from packaged defaults plus optional user
// definition files, and injected read-only into every engine call.
package registry

import (
	"fmt"
	"strings"

	"github.com/PhilippVerpoort/posted-sub000/pkg/table"
	"github.com/PhilippVerpoort/posted-sub000/pkg/units"
)

// FieldKind distinguishes case fields from component fields.
type FieldKind string

const (
	// FieldCase identifies a reporting context dimension.
	FieldCase FieldKind = "case"
	// FieldComponent identifies a sub-breakdown summed over during
	// aggregation.
	FieldComponent FieldKind = "component"
	// FieldComment is free text carried through untouched.
	FieldComment FieldKind = "comment"
)

// FieldDef describes one categorical column.
type FieldDef struct {
	ID     string    `yaml:"id" koanf:"id"`
	Kind   FieldKind `yaml:"kind" koanf:"kind"`
	Coded  bool      `yaml:"coded" koanf:"coded"`
	Codes  []string  `yaml:"codes" koanf:"codes"`
	Period bool      `yaml:"period" koanf:"period"`
}

// ColumnKind maps the field kind onto the table schema.
func (f FieldDef) ColumnKind() table.ColumnKind {
	switch f.Kind {
	case FieldComponent:
		return table.ColComponentField
	case FieldComment:
		return table.ColComment
	default:
		return table.ColCaseField
	}
}

// VariableDef describes one canonical variable. Names may end in "|*" to
// define a whole family, e.g. "Input|*" covering "Input|Hydrogen".
type VariableDef struct {
	Name        string `yaml:"name" koanf:"name"`
	Dimension   string `yaml:"dimension" koanf:"dimension"`
	DefaultUnit string `yaml:"default_unit" koanf:"default_unit"`
	Role        string `yaml:"role" koanf:"role"`
	// Mapped marks variables produced by the mapping pipeline; their raw
	// form on input differs.
	Mapped bool `yaml:"mapped" koanf:"mapped"`
	// Activity marks ratio variables that take part in activity
	// harmonisation; Capacity marks their per-time counterparts.
	Activity bool `yaml:"activity" koanf:"activity"`
	Capacity bool `yaml:"capacity" koanf:"capacity"`
}

// Definitions is the document shape of a definition file.
type Definitions struct {
	Fields    []FieldDef    `yaml:"fields" koanf:"fields"`
	Variables []VariableDef `yaml:"variables" koanf:"variables"`
}

// Registry is the immutable definition registry.
type Registry struct {
	units      *units.Registry
	fields     map[string]FieldDef
	fieldOrder []string
	variables  map[string]VariableDef
	varOrder   []string
}

// build validates a merged definition set and assembles the registry.
func build(defs Definitions, ureg *units.Registry) (*Registry, error) {
	r := &Registry{
		units:     ureg,
		fields:    make(map[string]FieldDef),
		variables: make(map[string]VariableDef),
	}
	for _, f := range defs.Fields {
		if f.ID == "" {
			return nil, fmt.Errorf("field definition without id")
		}
		if _, dup := r.fields[f.ID]; dup {
			return nil, fmt.Errorf("duplicate field definition %q", f.ID)
		}
		if f.Coded && len(f.Codes) == 0 {
			return nil, fmt.Errorf("field %q is coded but has no codes", f.ID)
		}
		if f.Period && f.Kind != FieldCase {
			return nil, fmt.Errorf("field %q: period fields must be case fields", f.ID)
		}
		r.fields[f.ID] = f
		r.fieldOrder = append(r.fieldOrder, f.ID)
	}
	for _, v := range defs.Variables {
		if v.Name == "" {
			return nil, fmt.Errorf("variable definition without name")
		}
		if _, dup := r.variables[v.Name]; dup {
			return nil, fmt.Errorf("duplicate variable definition %q", v.Name)
		}
		if _, err := units.ParseDimension(v.Dimension); err != nil {
			return nil, fmt.Errorf("variable %q: %w", v.Name, err)
		}
		if v.DefaultUnit != "" && !ureg.HasUnit(v.DefaultUnit) {
			return nil, fmt.Errorf("variable %q: unknown default unit %q", v.Name, v.DefaultUnit)
		}
		r.variables[v.Name] = v
		r.varOrder = append(r.varOrder, v.Name)
	}
	return r, nil
}

// Units returns the unit/flow registry.
func (r *Registry) Units() *units.Registry { return r.units }

// Field looks up a field definition by column id.
func (r *Registry) Field(id string) (FieldDef, bool) {
	f, ok := r.fields[id]
	return f, ok
}

// Fields returns all field definitions in declaration order.
func (r *Registry) Fields() []FieldDef {
	out := make([]FieldDef, 0, len(r.fieldOrder))
	for _, id := range r.fieldOrder {
		out = append(out, r.fields[id])
	}
	return out
}

// Variable resolves a variable name, falling back to its "Family|*"
// pattern definition.
func (r *Registry) Variable(name string) (VariableDef, bool) {
	if v, ok := r.variables[name]; ok {
		return v, true
	}
	if head, _, found := strings.Cut(name, "|"); found {
		if v, ok := r.variables[head+"|*"]; ok {
			return v, true
		}
	}
	return VariableDef{}, false
}

// Variables returns all variable definitions in declaration order.
func (r *Registry) Variables() []VariableDef {
	out := make([]VariableDef, 0, len(r.varOrder))
	for _, name := range r.varOrder {
		out = append(out, r.variables[name])
	}
	return out
}

// FlowOf derives the flow id a variable refers to from the suffix after
// "|", e.g. "Input|Hydrogen" -> "hydrogen". Empty if the suffix is not a
// registered flow.
func (r *Registry) FlowOf(variable string) string {
	_, tail, found := strings.Cut(variable, "|")
	if !found {
		return ""
	}
	id := strings.ToLower(strings.TrimSpace(tail))
	if r.units.HasFlow(id) {
		return id
	}
	return ""
}
