package aggregate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhilippVerpoort/posted-sub000/pkg/table"
)

func componentTable() *table.Table {
	t := table.New([]table.Column{
		{ID: "source", Kind: table.ColCaseField},
		{ID: "component", Kind: table.ColComponentField},
		{ID: table.ColIDVariable, Kind: table.ColVariable},
		{ID: table.ColIDValue, Kind: table.ColValue},
	})
	t.AppendRow(table.Row{"source": table.Text("A"), "component": table.Text("stack"), table.ColIDVariable: table.Text("CAPEX"), table.ColIDValue: table.Float(500)})
	t.AppendRow(table.Row{"source": table.Text("A"), "component": table.Text("bop"), table.ColIDVariable: table.Text("CAPEX"), table.ColIDValue: table.Float(300)})
	t.AppendRow(table.Row{"source": table.Text("B"), "component": table.Text("stack"), table.ColIDVariable: table.Text("CAPEX"), table.ColIDValue: table.Float(600)})
	return t
}

func TestComponentSum(t *testing.T) {
	tbl := componentTable()

	out := ComponentSum(tbl, []string{"component"})
	require.Equal(t, 2, out.Len())
	assert.Equal(t, 800.0, out.Cell(0, table.ColIDValue).NumOrNaN())
	assert.Equal(t, 600.0, out.Cell(1, table.ColIDValue).NumOrNaN())
	c, _ := out.Cell(0, "component").Str()
	assert.Equal(t, table.ComponentTotalToken, c)
}

func TestComponentSum_AllMissingStaysMissing(t *testing.T) {
	tbl := table.New([]table.Column{
		{ID: "component", Kind: table.ColComponentField},
		{ID: table.ColIDValue, Kind: table.ColValue},
	})
	tbl.AppendRow(table.Row{"component": table.Text("stack"), table.ColIDValue: table.Missing()})
	tbl.AppendRow(table.Row{"component": table.Text("bop"), table.ColIDValue: table.Missing()})

	out := ComponentSum(tbl, []string{"component"})
	require.Equal(t, 1, out.Len())
	assert.True(t, out.Cell(0, table.ColIDValue).IsMissing())
}

func sourceTable(values map[string]float64) *table.Table {
	t := table.New([]table.Column{
		{ID: "source", Kind: table.ColCaseField},
		{ID: table.ColIDVariable, Kind: table.ColVariable},
		{ID: table.ColIDValue, Kind: table.ColValue},
	})
	for _, src := range []string{"A", "B", "C"} {
		v, ok := values[src]
		if !ok {
			continue
		}
		t.AppendRow(table.Row{"source": table.Text(src), table.ColIDVariable: table.Text("CAPEX"), table.ColIDValue: table.Float(v)})
	}
	return t
}

func TestWeightedAverage_UnmaskedIsMean(t *testing.T) {
	tbl := sourceTable(map[string]float64{"A": 10, "B": 20, "C": 60})

	out := WeightedAverage(tbl, []string{"source"}, nil)
	require.Equal(t, 1, out.Len())
	assert.InEpsilon(t, 30.0, out.Cell(0, table.ColIDValue).NumOrNaN(), 1e-12)
	_, ok := out.Column("source")
	assert.False(t, ok, "aggregated field is dropped")
}

func TestWeightedAverage_MaskWeights(t *testing.T) {
	tbl := sourceTable(map[string]float64{"A": 10, "B": 20})
	one := 1.0
	masks := []Mask{{
		Use:   []UseClause{{Match: map[string][]string{"source": {"A"}}, Weight: 3}},
		Other: &one,
	}}

	out := WeightedAverage(tbl, []string{"source"}, masks)
	require.Equal(t, 1, out.Len())
	// (3*10 + 1*20) / 4
	assert.InEpsilon(t, 12.5, out.Cell(0, table.ColIDValue).NumOrNaN(), 1e-12)
}

func TestWeightedAverage_DefaultOtherDrops(t *testing.T) {
	tbl := sourceTable(map[string]float64{"A": 10, "B": 20})
	masks := []Mask{{
		Use: []UseClause{{Match: map[string][]string{"source": {"A"}}, Weight: 1}},
	}}

	out := WeightedAverage(tbl, []string{"source"}, masks)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, 10.0, out.Cell(0, table.ColIDValue).NumOrNaN(), "unmatched source drops out")
}

func TestWeightedAverage_AllDroppedYieldsNoRow(t *testing.T) {
	tbl := sourceTable(map[string]float64{"A": 10, "B": 20})
	masks := []Mask{{
		Use: []UseClause{{Match: map[string][]string{"source": {"Z"}}, Weight: 1}},
	}}

	out := WeightedAverage(tbl, []string{"source"}, masks)
	assert.Equal(t, 0, out.Len())
}

func annotatedTable() *table.Table {
	t := table.New([]table.Column{
		{ID: "source", Kind: table.ColCaseField},
		{ID: table.ColIDVariable, Kind: table.ColVariable},
		{ID: table.ColIDValue, Kind: table.ColValue},
		{ID: table.ColIDUncertainty, Kind: table.ColUncertainty},
		{ID: table.ColIDComment, Kind: table.ColComment},
	})
	t.AppendRow(table.Row{
		"source":               table.Text("A"),
		table.ColIDVariable:    table.Text("CAPEX"),
		table.ColIDValue:       table.Float(10),
		table.ColIDUncertainty: table.Float(50),
		table.ColIDComment:     table.Text("from fig 3"),
	})
	t.AppendRow(table.Row{
		"source":               table.Text("B"),
		table.ColIDVariable:    table.Text("CAPEX"),
		table.ColIDValue:       table.Float(20),
		table.ColIDUncertainty: table.Float(80),
		table.ColIDComment:     table.Text("table 2"),
	})
	return t
}

func TestWeightedAverage_AnnotationsDoNotSplitGroups(t *testing.T) {
	tbl := annotatedTable()

	out := WeightedAverage(tbl, []string{"source"}, nil)
	require.Equal(t, 1, out.Len(), "comment and uncertainty must not separate cases")
	assert.InEpsilon(t, 15.0, out.Cell(0, table.ColIDValue).NumOrNaN(), 1e-12)
	assert.True(t, out.Cell(0, table.ColIDUncertainty).IsMissing())
	assert.True(t, out.Cell(0, table.ColIDComment).IsMissing())
}

func TestComponentSum_AnnotationsDoNotSplitGroups(t *testing.T) {
	tbl := table.New([]table.Column{
		{ID: "component", Kind: table.ColComponentField},
		{ID: table.ColIDValue, Kind: table.ColValue},
		{ID: table.ColIDComment, Kind: table.ColComment},
	})
	tbl.AppendRow(table.Row{"component": table.Text("stack"), table.ColIDValue: table.Float(500), table.ColIDComment: table.Text("stack only")})
	tbl.AppendRow(table.Row{"component": table.Text("bop"), table.ColIDValue: table.Float(300), table.ColIDComment: table.Text("rest of plant")})

	out := ComponentSum(tbl, []string{"component"})
	require.Equal(t, 1, out.Len())
	assert.Equal(t, 800.0, out.Cell(0, table.ColIDValue).NumOrNaN())
	assert.True(t, out.Cell(0, table.ColIDComment).IsMissing())
}

func TestWeightedAverage_SingleRowKeepsAnnotations(t *testing.T) {
	tbl := annotatedTable()
	masks := []Mask{{
		Use: []UseClause{{Match: map[string][]string{"source": {"A"}}, Weight: 1}},
	}}

	out := WeightedAverage(tbl, []string{"source"}, masks)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, 50.0, out.Cell(0, table.ColIDUncertainty).NumOrNaN())
	c, _ := out.Cell(0, table.ColIDComment).Str()
	assert.Equal(t, "from fig 3", c)
}

func TestWeightedAverage_ZeroTotalWeightDropsGroup(t *testing.T) {
	tbl := sourceTable(map[string]float64{"A": 10, "B": 20})
	masks := []Mask{{
		Use: []UseClause{{Match: map[string][]string{}, Weight: 0}},
	}}

	out := WeightedAverage(tbl, []string{"source"}, masks)
	assert.Equal(t, 0, out.Len(), "zero total weight behaves like all rows dropped")
}

func TestWeightedAverage_WhereGatesWholeGroup(t *testing.T) {
	tbl := table.New([]table.Column{
		{ID: "source", Kind: table.ColCaseField},
		{ID: table.ColIDVariable, Kind: table.ColVariable},
		{ID: table.ColIDValue, Kind: table.ColValue},
	})
	tbl.AppendRow(table.Row{"source": table.Text("A"), table.ColIDVariable: table.Text("CAPEX"), table.ColIDValue: table.Float(10)})
	tbl.AppendRow(table.Row{"source": table.Text("B"), table.ColIDVariable: table.Text("CAPEX"), table.ColIDValue: table.Float(20)})
	tbl.AppendRow(table.Row{"source": table.Text("A"), table.ColIDVariable: table.Text("OCF"), table.ColIDValue: table.Float(0.4)})
	tbl.AppendRow(table.Row{"source": table.Text("B"), table.ColIDVariable: table.Text("OCF"), table.ColIDValue: table.Float(0.8)})

	// Boost source A, but only for CAPEX groups.
	masks := []Mask{{
		Where: map[string][]string{table.ColIDVariable: {"CAPEX"}},
		Use: []UseClause{
			{Match: map[string][]string{"source": {"A"}}, Weight: 3},
			{Match: map[string][]string{}, Weight: 1},
		},
	}}

	out := WeightedAverage(tbl, []string{"source"}, masks)
	require.Equal(t, 2, out.Len())
	assert.InEpsilon(t, 12.5, out.Cell(0, table.ColIDValue).NumOrNaN(), 1e-12, "CAPEX is weighted")
	assert.InEpsilon(t, 0.6, out.Cell(1, table.ColIDValue).NumOrNaN(), 1e-12, "OCF stays a plain mean")
}

func TestWeightedAverage_FirstMatchingUseClauseWins(t *testing.T) {
	tbl := sourceTable(map[string]float64{"A": 10})
	masks := []Mask{{
		Use: []UseClause{
			{Match: map[string][]string{"source": {"A"}}, Weight: 2},
			{Match: map[string][]string{"source": {"A"}}, Weight: 100},
		},
	}}

	out := WeightedAverage(tbl, []string{"source"}, masks)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, 10.0, out.Cell(0, table.ColIDValue).NumOrNaN())
}

func TestLoadMasks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "masks.yaml")
	doc := `masks:
  - where:
      variable: [CAPEX]
    use:
      - match: {source: [A, B]}
        weight: 2
    other: 0.5
  - use:
      - match: {source: [C]}
        weight: 1
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	masks, err := LoadMasks(path)
	require.NoError(t, err)
	require.Len(t, masks, 2)
	assert.Equal(t, []string{"CAPEX"}, masks[0].Where["variable"])
	require.NotNil(t, masks[0].Other)
	assert.Equal(t, 0.5, *masks[0].Other)
	assert.Nil(t, masks[1].Other, "omitted other defaults to dropping")
	assert.Equal(t, 2.0, masks[0].Use[0].Weight)
}

func TestLoadMasks_MissingFile(t *testing.T) {
	_, err := LoadMasks(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
