package registry

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/PhilippVerpoort/posted-sub000/pkg/units"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// UnitsFileName is the optional unit/flow definition file in a
// definitions directory.
const UnitsFileName = "units.yaml"

// DefinitionsFileName is the optional field/variable definition file in a
// definitions directory.
const DefinitionsFileName = "definitions.yaml"

// Default returns a registry holding only the packaged definitions.
func Default() *Registry {
	r, err := load(nil, nil)
	if err != nil {
		panic(fmt.Sprintf("registry: packaged definitions: %v", err))
	}
	return r
}

// Load builds a registry from the packaged defaults overlaid with the
// definition files found in dir (units.yaml, definitions.yaml). A missing
// directory or file is not an error; user definitions with a known id or
// name replace the packaged entry, new ones are appended.
func Load(dir string) (*Registry, error) {
	if dir == "" {
		return Default(), nil
	}
	var unitDocs [][]byte
	if data, err := os.ReadFile(filepath.Join(dir, UnitsFileName)); err == nil {
		unitDocs = append(unitDocs, data)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", UnitsFileName, err)
	}

	var userDefs *Definitions
	defPath := filepath.Join(dir, DefinitionsFileName)
	if _, err := os.Stat(defPath); err == nil {
		k := koanf.New(".")
		if err := k.Load(file.Provider(defPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", DefinitionsFileName, err)
		}
		var defs Definitions
		if err := k.Unmarshal("", &defs); err != nil {
			return nil, fmt.Errorf("parse %s: %w", DefinitionsFileName, err)
		}
		userDefs = &defs
	}
	return load(unitDocs, userDefs)
}

func load(unitDocs [][]byte, userDefs *Definitions) (*Registry, error) {
	ureg := units.Default()
	for _, doc := range unitDocs {
		if err := ureg.LoadDefinitions(doc); err != nil {
			return nil, err
		}
	}

	var defs Definitions
	if err := yamlv3.Unmarshal(defaultsYAML, &defs); err != nil {
		return nil, fmt.Errorf("parse packaged definitions: %w", err)
	}
	if userDefs != nil {
		defs = merge(defs, *userDefs)
	}
	return build(defs, ureg)
}

// merge overlays user definitions onto the packaged set.
func merge(base, user Definitions) Definitions {
	out := Definitions{}
	fields := make(map[string]int)
	for _, f := range base.Fields {
		fields[f.ID] = len(out.Fields)
		out.Fields = append(out.Fields, f)
	}
	for _, f := range user.Fields {
		if i, ok := fields[f.ID]; ok {
			out.Fields[i] = f
		} else {
			fields[f.ID] = len(out.Fields)
			out.Fields = append(out.Fields, f)
		}
	}
	vars := make(map[string]int)
	for _, v := range base.Variables {
		vars[v.Name] = len(out.Variables)
		out.Variables = append(out.Variables, v)
	}
	for _, v := range user.Variables {
		if i, ok := vars[v.Name]; ok {
			out.Variables[i] = v
		} else {
			vars[v.Name] = len(out.Variables)
			out.Variables = append(out.Variables, v)
		}
	}
	return out
}
