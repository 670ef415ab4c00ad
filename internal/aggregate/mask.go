// Package aggregate implements the two-stage weighted reduction: component
// sums within a case, then masked weighted averages across case
// dimensions such as sources.
package aggregate

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/PhilippVerpoort/posted-sub000/pkg/table"
)

// UseClause assigns a weight to rows matching its condition.
type UseClause struct {
	Match  map[string][]string `yaml:"match" koanf:"match"`
	Weight float64             `yaml:"weight" koanf:"weight"`
}

// Mask is a predicate plus weighting rule over one case group. When the
// Where condition matches all rows of a group, every row's weight is
// multiplied by the weight of the first Use clause it matches; rows
// matching no clause get the Other weight, which defaults to NaN so that
// unmatched rows are dropped.
type Mask struct {
	Where map[string][]string `yaml:"where" koanf:"where"`
	Use   []UseClause         `yaml:"use" koanf:"use"`
	Other *float64            `yaml:"other" koanf:"other"`
}

// LoadMasks reads a YAML mask file: a document holding a list of masks
// under the "masks" key.
func LoadMasks(path string) ([]Mask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mask file: %w", err)
	}
	var doc struct {
		Masks []Mask `yaml:"masks"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse mask file %s: %w", path, err)
	}
	return doc.Masks, nil
}

// matches reports whether a row satisfies a condition map: every named
// column must hold one of the accepted values.
func matches(t *table.Table, row int, cond map[string][]string) bool {
	for col, accepted := range cond {
		cell := t.Cell(row, col)
		ok := false
		for _, v := range accepted {
			if cell.String() == v {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// AppliesTo reports whether the mask's Where condition matches every row
// of the group.
func (m Mask) AppliesTo(t *table.Table, group []int) bool {
	for _, i := range group {
		if !matches(t, i, m.Where) {
			return false
		}
	}
	return true
}

// WeightFor returns the mask's weight factor for one row.
func (m Mask) WeightFor(t *table.Table, row int) float64 {
	for _, use := range m.Use {
		if matches(t, row, use.Match) {
			return use.Weight
		}
	}
	if m.Other != nil {
		return *m.Other
	}
	return math.NaN()
}
