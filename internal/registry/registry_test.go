package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhilippVerpoort/posted-sub000/pkg/units"
)

func buildForTest(defs Definitions) (*Registry, error) {
	return build(defs, units.Default())
}

func TestDefault_PackagedDefinitions(t *testing.T) {
	r := Default()

	f, ok := r.Field("period")
	require.True(t, ok)
	assert.True(t, f.Period)
	assert.Equal(t, FieldCase, f.Kind)

	f, ok = r.Field("component")
	require.True(t, ok)
	assert.Equal(t, FieldComponent, f.Kind)

	v, ok := r.Variable("CAPEX")
	require.True(t, ok)
	assert.Equal(t, "USD/kW", v.DefaultUnit)

	assert.NotEmpty(t, r.Fields())
	assert.NotEmpty(t, r.Variables())
}

func TestVariable_PatternFallback(t *testing.T) {
	r := Default()

	v, ok := r.Variable("Input|Electricity")
	require.True(t, ok, "resolved through the Input|* pattern")
	assert.True(t, v.Activity)
	assert.Equal(t, "MWh;LHV", v.DefaultUnit)

	v, ok = r.Variable("Output Capacity|Hydrogen")
	require.True(t, ok)
	assert.True(t, v.Capacity)

	_, ok = r.Variable("Sideways|Hydrogen")
	assert.False(t, ok)
}

func TestFlowOf(t *testing.T) {
	r := Default()

	assert.Equal(t, "hydrogen", r.FlowOf("Input|Hydrogen"))
	assert.Equal(t, "electricity", r.FlowOf("Output|Electricity"))
	assert.Equal(t, "", r.FlowOf("CAPEX"), "no flow suffix")
	assert.Equal(t, "", r.FlowOf("Input|Stardust"), "unregistered flow")
}

func TestLoad_EmptyDirUsesDefaults(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)
	_, ok := r.Variable("CAPEX")
	assert.True(t, ok)
}

func TestLoad_MissingDirIsNotAnError(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "definitely-not-there"))
	require.NoError(t, err)
	_, ok := r.Variable("CAPEX")
	assert.True(t, ok)
}

func TestLoad_UserDefinitionsOverlay(t *testing.T) {
	dir := t.TempDir()
	defs := `fields:
  - id: scenario
    kind: case
variables:
  - name: CAPEX
    dimension: currency/power
    default_unit: USD/MW
  - name: Water Demand
    dimension: mass
    default_unit: t
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefinitionsFileName), []byte(defs), 0o644))

	r, err := Load(dir)
	require.NoError(t, err)

	_, ok := r.Field("scenario")
	assert.True(t, ok, "new field appended")
	_, ok = r.Field("period")
	assert.True(t, ok, "packaged fields survive")

	v, ok := r.Variable("CAPEX")
	require.True(t, ok)
	assert.Equal(t, "USD/MW", v.DefaultUnit, "packaged variable replaced by name")

	v, ok = r.Variable("Water Demand")
	require.True(t, ok)
	assert.Equal(t, "t", v.DefaultUnit)
}

func TestLoad_UserUnits(t *testing.T) {
	dir := t.TempDir()
	unitsDoc := `units:
  - {name: EUR, dimension: currency, factor: 1.08}
flows:
  - id: syngas
    energycontent:
      LHV: {value: 6.0, unit: kWh/kg}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, UnitsFileName), []byte(unitsDoc), 0o644))

	r, err := Load(dir)
	require.NoError(t, err)
	assert.True(t, r.Units().HasUnit("EUR"))
	assert.True(t, r.Units().HasFlow("syngas"))

	got, err := r.Units().Factor("EUR", "USD", "")
	require.NoError(t, err)
	assert.InEpsilon(t, 1.08, got, 1e-12)
}

func TestBuild_Validation(t *testing.T) {
	tests := []struct {
		name string
		defs Definitions
	}{
		{"field without id", Definitions{Fields: []FieldDef{{Kind: FieldCase}}}},
		{"duplicate field", Definitions{Fields: []FieldDef{
			{ID: "region", Kind: FieldCase}, {ID: "region", Kind: FieldCase},
		}}},
		{"coded without codes", Definitions{Fields: []FieldDef{
			{ID: "region", Kind: FieldCase, Coded: true},
		}}},
		{"period on component field", Definitions{Fields: []FieldDef{
			{ID: "widget", Kind: FieldComponent, Period: true},
		}}},
		{"variable without name", Definitions{Variables: []VariableDef{{Dimension: "mass"}}}},
		{"unknown dimension", Definitions{Variables: []VariableDef{
			{Name: "X", Dimension: "vibes"},
		}}},
		{"unknown default unit", Definitions{Variables: []VariableDef{
			{Name: "X", Dimension: "mass", DefaultUnit: "smidgen"},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildForTest(tt.defs)
			require.Error(t, err)
		})
	}
}
