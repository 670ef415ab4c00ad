package units

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Definitions is the document shape of a unit/flow definition file.
type Definitions struct {
	Units []UnitDef `yaml:"units"`
	Flows []Flow    `yaml:"flows"`
}

// UnitDef declares one named unit.
type UnitDef struct {
	Name      string  `yaml:"name"`
	Dimension string  `yaml:"dimension"`
	Factor    float64 `yaml:"factor"`
}

// Default returns a registry populated with the packaged unit and flow
// definitions. The packaged set is known good; a failure here is a
// programming error.
func Default() *Registry {
	r := NewRegistry()
	if err := r.LoadDefinitions(defaultsYAML); err != nil {
		panic(fmt.Sprintf("units: packaged definitions: %v", err))
	}
	return r
}

// LoadDefinitions parses a YAML definition document and registers its
// units and flows. Units are registered before flows so that flow
// parameters can reference them.
func (r *Registry) LoadDefinitions(data []byte) error {
	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return fmt.Errorf("parse unit definitions: %w", err)
	}
	for _, u := range defs.Units {
		if err := r.RegisterUnit(u.Name, u.Dimension, u.Factor); err != nil {
			return err
		}
	}
	for _, f := range defs.Flows {
		if err := r.RegisterFlow(f); err != nil {
			return err
		}
	}
	return nil
}
