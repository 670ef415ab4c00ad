package loader

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhilippVerpoort/posted-sub000/internal/registry"
	"github.com/PhilippVerpoort/posted-sub000/pkg/table"
)

const sampleCSV = `period,region,source,component,variable,reference_variable,value,reference_value,uncertainty,unit,reference_unit,comment
2020,DEU,Smith2020,stack,CAPEX,Output Capacity|Hydrogen,500,1,50,USD/kW,MWh/a;LHV,from fig 3
*,FRA,Smith2020,,OCF,,0.5,,,dimensionless,,
2030,N/S,Jones2021,,Input|Electricity,Output|Hydrogen,1.4,,,MWh;LHV,MWh;LHV,
`

func TestRead_ColumnKindsAndCells(t *testing.T) {
	tbl, err := Read(strings.NewReader(sampleCSV), registry.Default())
	require.NoError(t, err)
	require.Equal(t, 3, tbl.Len())

	col, ok := tbl.Column("region")
	require.True(t, ok)
	assert.Equal(t, table.ColCaseField, col.Kind)
	col, _ = tbl.Column("component")
	assert.Equal(t, table.ColComponentField, col.Kind)
	col, _ = tbl.Column("comment")
	assert.Equal(t, table.ColComment, col.Kind)
	col, _ = tbl.Column(table.ColIDValue)
	assert.Equal(t, table.ColValue, col.Kind)

	assert.Equal(t, 2020.0, tbl.Cell(0, "period").NumOrNaN(), "periods parse numerically")
	assert.Equal(t, table.KindWildcard, tbl.Cell(1, "period").Kind())
	assert.Equal(t, table.KindNotSpecified, tbl.Cell(2, "region").Kind())
	assert.True(t, tbl.Cell(1, "component").IsMissing())
	assert.Equal(t, 500.0, tbl.Cell(0, table.ColIDValue).NumOrNaN())
	assert.Equal(t, 50.0, tbl.Cell(0, table.ColIDUncertainty).NumOrNaN())
	s, _ := tbl.Cell(0, "comment").Str()
	assert.Equal(t, "from fig 3", s)
}

func TestRead_UnknownHeaderBecomesComment(t *testing.T) {
	tbl, err := Read(strings.NewReader("variable,scribble\nCAPEX,hello\n"), registry.Default())
	require.NoError(t, err)

	col, ok := tbl.Column("scribble")
	require.True(t, ok)
	assert.Equal(t, table.ColComment, col.Kind)
	s, _ := tbl.Cell(0, "scribble").Str()
	assert.Equal(t, "hello", s)
}

func TestRead_ShortRecordsLeaveCellsMissing(t *testing.T) {
	tbl, err := Read(strings.NewReader("variable,value,unit\nCAPEX,800\n"), registry.Default())
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.True(t, tbl.Cell(0, table.ColIDUnit).IsMissing())
}

func TestRead_BadHeader(t *testing.T) {
	_, err := Read(strings.NewReader(""), registry.Default())
	require.Error(t, err)
}

func TestWrite_RoundTrip(t *testing.T) {
	defs := registry.Default()
	tbl, err := Read(strings.NewReader(sampleCSV), defs)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl))

	back, err := Read(&buf, defs)
	require.NoError(t, err)
	require.Equal(t, tbl.Len(), back.Len())
	assert.Equal(t, tbl.ColumnIDs(), back.ColumnIDs())

	for i := 0; i < tbl.Len(); i++ {
		for _, id := range tbl.ColumnIDs() {
			assert.True(t, back.Cell(i, id).Equal(tbl.Cell(i, id)),
				"row %d column %s: %q vs %q", i, id, back.Cell(i, id), tbl.Cell(i, id))
		}
	}
}

func TestReadFile_MissingFile(t *testing.T) {
	_, err := ReadFile("/nonexistent/table.csv", registry.Default())
	require.Error(t, err)
}
