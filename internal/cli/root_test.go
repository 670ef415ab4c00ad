package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "sample.csv")
	data := `period,region,source,variable,reference_variable,value,reference_value,unit,reference_unit
2020,DEU,Smith22,CAPEX,Output Capacity|Hydrogen,500,1,USD/kW,MWh/a;LHV
2030,DEU,Smith22,CAPEX,Output Capacity|Hydrogen,300,1,USD/kW,MWh/a;LHV
2020,DEU,Jones24,CAPEX,Output Capacity|Hydrogen,700,1,USD/kW,MWh/a;LHV
2030,DEU,Jones24,CAPEX,Output Capacity|Hydrogen,500,1,USD/kW,MWh/a;LHV
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestRootCmd_Version(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "posted")
}

func TestRootCmd_Fields(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := runCommand(t, "fields")
	require.NoError(t, err)
	assert.Contains(t, out, "CAPEX")
	assert.Contains(t, out, "period")
}

func TestRootCmd_SelectCSV(t *testing.T) {
	path := writeSample(t)

	out, err := runCommand(t, "select", path, "--period", "2025", "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "400", "Smith22 interpolated midpoint")
	assert.Contains(t, out, "600", "Jones24 interpolated midpoint")
}

func TestRootCmd_AggregateCSV(t *testing.T) {
	path := writeSample(t)

	out, err := runCommand(t, "aggregate", path, "--period", "2025", "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "500", "mean of the two interpolated sources")
}

func TestRootCmd_SelectMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := runCommand(t, "select", "absent.csv")
	require.Error(t, err)
}

func TestRootCmd_WritesOutputFile(t *testing.T) {
	path := writeSample(t)
	outPath := filepath.Join(filepath.Dir(path), "out.csv")

	_, err := runCommand(t, "normalise", path, "--out", outPath)
	require.NoError(t, err)
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "USD/kW")
}
