package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRegistry returns a registry with round hydrogen parameters so
// expected factors stay exact: LHV 3.6 MJ/kg, HHV 4.0 MJ/kg.
func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := Default()
	require.NoError(t, r.RegisterFlow(Flow{
		ID: "testgas",
		EnergyContent: map[string]Quantity{
			"LHV": {Value: 3.6, Unit: "MJ/kg"},
			"HHV": {Value: 4.0, Unit: "MJ/kg"},
		},
		Density: map[string]Quantity{
			"norm": {Value: 0.09, Unit: "kg/m**3"},
		},
	}))
	return r
}

func TestFactor_PlainUnits(t *testing.T) {
	r := Default()

	tests := []struct {
		name string
		from string
		to   string
		want float64
	}{
		{"energy scale", "kWh", "MJ", 3.6},
		{"power scale", "MW", "kW", 1000},
		{"division chain", "USD/kW", "USD/MW", 1000},
		{"nested division is left associative", "USD/kW/a", "USD/kW/h", 1.0 / 8760},
		{"percent to dimensionless", "pct", "dimensionless", 0.01},
		{"mass", "t", "kg", 1000},
		{"identity", "MWh", "MWh", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Factor(tt.from, tt.to, "")
			require.NoError(t, err)
			assert.InEpsilon(t, tt.want, got, 1e-12)
		})
	}
}

func TestFactor_UnknownUnit(t *testing.T) {
	r := Default()

	_, err := r.Factor("furlong", "m", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownUnit)
}

func TestFactor_IncompatibleDimensions(t *testing.T) {
	r := Default()

	_, err := r.Factor("kg", "USD", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncompatibleDimension)
}

func TestFactor_SameVariantCancels(t *testing.T) {
	r := Default()

	// Identical variants on both sides must not consult flow context at
	// all, so conversion succeeds even without naming a flow.
	got, err := r.Factor("MWh;LHV", "GJ;LHV", "")
	require.NoError(t, err)
	assert.InEpsilon(t, 3.6, got, 1e-12)
}

func TestFactor_VariantBasisChange(t *testing.T) {
	r := testRegistry(t)

	// Within one unit, switching basis is the parameter ratio.
	got, err := r.Factor("MWh;LHV", "MWh;HHV", "testgas")
	require.NoError(t, err)
	assert.InEpsilon(t, 4.0/3.6, got, 1e-12)

	// The shortcut must agree with going through mass explicitly.
	toKg, err := r.Factor("MWh;LHV", "kg", "testgas")
	require.NoError(t, err)
	backToHHV, err := r.Factor("kg", "MWh;HHV", "testgas")
	require.NoError(t, err)
	assert.InEpsilon(t, got, toKg*backToHHV, 1e-12)
}

func TestFactor_EnergyMassPromotion(t *testing.T) {
	r := testRegistry(t)

	// 1 MWh at 3.6 MJ/kg is 1000 kg.
	got, err := r.Factor("MWh;LHV", "kg", "testgas")
	require.NoError(t, err)
	assert.InEpsilon(t, 1000, got, 1e-12)

	// And back up on the other basis: 1 kg at 4 MJ/kg is 1/900 MWh.
	got, err = r.Factor("kg", "MWh;HHV", "testgas")
	require.NoError(t, err)
	assert.InEpsilon(t, 1.0/900.0, got, 1e-12)
}

func TestFactor_DensityPromotion(t *testing.T) {
	r := testRegistry(t)

	// 1 m3 at 0.09 kg/m3 is 0.09 kg.
	got, err := r.Factor("m**3;norm", "kg", "testgas")
	require.NoError(t, err)
	assert.InEpsilon(t, 0.09, got, 1e-12)

	// Inverse direction divides by the density.
	got, err = r.Factor("kg", "m**3;norm", "testgas")
	require.NoError(t, err)
	assert.InEpsilon(t, 1/0.09, got, 1e-12)
}

func TestFactor_MissingFlowContext(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		name   string
		from   string
		to     string
		flow   string
		target error
	}{
		{"no flow named", "MWh;LHV", "kg", "", ErrMissingFlowContext},
		{"flow not registered", "MWh;LHV", "kg", "unobtainium", ErrUnknownFlow},
		{"parameter not defined", "m**3;standard", "kg", "testgas", ErrMissingFlowContext},
		{"flow without parameters", "MWh;LHV", "kg", "electricity", ErrMissingFlowContext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Factor(tt.from, tt.to, tt.flow)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestFactor_VariantIrrelevantWhenDimensionsMatch(t *testing.T) {
	r := Default()

	// A variant on one side of a commensurable conversion never needs the
	// flow parameter: the promotion is infeasible dimensionally, so it is
	// not attempted.
	got, err := r.Factor("MWh;LHV", "GJ", "")
	require.NoError(t, err)
	assert.InEpsilon(t, 3.6, got, 1e-12)
}

func TestConvert_NaNPropagates(t *testing.T) {
	r := Default()

	got, err := r.Convert(math.NaN(), "kWh", "MJ", "")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))
}

func TestConvert_RoundTripIsIdentity(t *testing.T) {
	r := testRegistry(t)

	units := []string{"MWh", "USD/kW/a", "MWh;LHV", "kg"}
	for _, u := range units {
		fwd, err := r.Factor(u, "GJ;HHV", "testgas")
		if err != nil {
			continue
		}
		back, err := r.Factor("GJ;HHV", u, "testgas")
		require.NoError(t, err)
		assert.InEpsilon(t, 1.0, fwd*back, 1e-12, "round trip through %s", u)
	}
}

func TestSplitVariant(t *testing.T) {
	base, v, err := SplitVariant("MWh;LHV")
	require.NoError(t, err)
	assert.Equal(t, "MWh", base)
	assert.Equal(t, VariantLHV, v)

	base, v, err = SplitVariant("MWh")
	require.NoError(t, err)
	assert.Equal(t, "MWh", base)
	assert.Equal(t, VariantNone, v)

	_, _, err = SplitVariant("MWh;wet")
	require.Error(t, err)
}

func TestRegisterFlow_RejectsWrongParameterDimension(t *testing.T) {
	r := Default()

	err := r.RegisterFlow(Flow{
		ID: "broken",
		EnergyContent: map[string]Quantity{
			"LHV": {Value: 1, Unit: "kg/m**3"},
		},
	})
	require.Error(t, err)
}

func TestDefault_PackagedDefinitions(t *testing.T) {
	r := Default()

	assert.True(t, r.HasUnit("MWh"))
	assert.True(t, r.HasUnit("USD/kW/a"))
	assert.True(t, r.HasFlow("hydrogen"))

	got, err := r.Factor("MWh;LHV", "kg", "hydrogen")
	require.NoError(t, err)
	assert.InEpsilon(t, 1000.0/33.33, got, 1e-9)
}
