package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/xlsx2parquet/internal/pipeline"
	"github.com/ajitpratap0/xlsx2parquet/pkg/errors"
	"github.com/ajitpratap0/xlsx2parquet/pkg/json"
	"github.com/ajitpratap0/xlsx2parquet/pkg/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDefaultOutput(t *testing.T) {
	tests := map[string]string{
		"sales.xlsx":          "sales.parquet",
		"/data/in/sales.xlsx": "/data/in/sales.parquet",
		"book.xlsx.zst":       "book.parquet",
		"book.XLSX.gz":        "book.parquet",
		"noext":               "noext.parquet",
	}
	for input, want := range tests {
		assert.Equal(t, want, defaultOutput(input), input)
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, &pipeline.Report{
		Output:        "out.parquet",
		SizeMB:        12.3456,
		Rows:          1234567,
		Sheet:         "Data",
		IgnoredSheets: []string{"Notes", "Pivot"},
	})
	assert.Equal(t,
		"Wrote out.parquet (12.35 MB, 1,234,567 rows)\n"+
			"Warning: only sheet \"Data\" was converted; ignored Notes, Pivot\n",
		buf.String())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "the first sheet has no data rows",
		describe(errors.New(errors.ErrorTypeEmptySource, "sheet has no data rows")))
	assert.Equal(t, "conversion interrupted",
		describe(errors.New(errors.ErrorTypeCanceled, "read canceled")))
	assert.Contains(t,
		describe(errors.New(errors.ErrorTypeColumnCountMismatch, "row has 3 cells").WithDetail("row", 7)),
		"row 7 has more cells than the header")
	assert.Equal(t, assert.AnError.Error(), describe(assert.AnError))
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteRows(t, dir, "sales.xlsx",
		[]string{"id", "name", "amount", "active"}, testutil.GenerateRows(1500))
	reportPath := filepath.Join(dir, "report.json")
	metricsPath := filepath.Join(dir, "metrics.prom")
	tracePath := filepath.Join(dir, "trace.json")

	out, err := execute(t, "convert", input,
		"--batch-size", "100",
		"--compression", "zstd",
		"--log-level", "warn",
		"--report", reportPath,
		"--metrics-file", metricsPath,
		"--trace-file", tracePath,
	)
	require.NoError(t, err)
	output := filepath.Join(dir, "sales.parquet")
	assert.Contains(t, out, "Wrote "+output)
	assert.Contains(t, out, "1,500 rows")
	assert.FileExists(t, output)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "zstd", report["codec"])
	assert.EqualValues(t, 100, report["batch_size"])
	assert.EqualValues(t, 15, report["batches"])

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "xlsx2parquet_rows_total 1500")

	trace, err := os.ReadFile(tracePath)
	require.NoError(t, err)
	assert.Contains(t, string(trace), `"Name": "convert"`)

	out, err = execute(t, "inspect", output)
	require.NoError(t, err)
	assert.Contains(t, out, "Rows:       1,500")
	assert.Contains(t, out, "Codec:      zstd")
	assert.Contains(t, out, "amount")
}

func TestConvertCommandConfigFile(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteRows(t, dir, "cfg.xlsx", []string{"id"}, [][]interface{}{{1}, {2}, {3}})
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
conversion:
  batch_size: 2
  compression: gzip
  strategy: stream
logging:
  level: error
`), 0o600))

	output := filepath.Join(dir, "custom.parquet")
	reportPath := filepath.Join(dir, "report.json")
	_, err := execute(t, "convert", input, "--config", cfgPath, "-o", output, "--report", reportPath)
	require.NoError(t, err)

	var report pipeline.Report
	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "stream", report.Strategy)
	assert.Equal(t, "gzip", report.Codec)
	assert.Equal(t, 2, report.Batches)
	assert.Equal(t, output, report.Output)
}

func TestConvertFlagsReachConfig(t *testing.T) {
	require.NotPanics(t, func() { newRootCmd() }, "every config flag binds")

	dir := t.TempDir()
	input := testutil.WriteRows(t, dir, "flags.xlsx", []string{"id"}, [][]interface{}{{1}, {2}, {3}})
	reportPath := filepath.Join(dir, "report.json")
	_, err := execute(t, "convert", input,
		"--strategy", "stream",
		"--pipelined",
		"--batch-size", "1",
		"--row-group-size", "2",
		"--compression", "gzip",
		"--log-level", "error",
		"--report", reportPath)
	require.NoError(t, err)

	var report pipeline.Report
	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "stream", report.Strategy)
	assert.True(t, report.Pipelined)
	assert.Equal(t, 1, report.BatchSize)
	assert.Equal(t, 3, report.Batches)
	assert.Equal(t, "gzip", report.Codec)
}

func TestConvertCommandFailure(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteRows(t, dir, "empty.xlsx", []string{"id", "name"}, nil)
	reportPath := filepath.Join(dir, "report.json")

	_, err := execute(t, "convert", input, "--log-level", "error", "--report", reportPath)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeEmptySource))
	assert.NoFileExists(t, filepath.Join(dir, "empty.parquet"))

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error_type": "empty_source"`)
}

func TestConvertCommandRejectsBadFlags(t *testing.T) {
	_, err := execute(t, "convert", "in.xlsx", "--batch-size", "0", "--log-level", "error")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = execute(t, "convert")
	assert.Error(t, err, "input is required")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "xlsx2parquet v"+version)
}
