package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/codec"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/recon"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/sink"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/source"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/storage"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/pkg/types"
)

const invoicesYAML = `
name: invoices
columns:
  - family: d
    qualifier: name
    type: string
    default: "unknown"
  - family: d
    qualifier: amt
    type: decimal
    target: amount
row_key:
  delimiter: "|"
  fields:
    - name: gstin
    - name: period
recon:
  - column: amount
    operations: [sum, count]
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// setupJob writes a table definition and job configuration under a temp dir
// and returns the configuration path and data directory.
func setupJob(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "invoices.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(invoicesYAML), 0644))

	dataDir := filepath.Join(dir, "data")
	cfgPath := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
data_dir: `+dataDir+`
job:
  schema_file: `+schemaPath+`
  workers: 2
  partition_size: 1
sink:
  compression: zstd
logging:
  level: error
  output_paths: [stderr]
`), 0644))
	return cfgPath, dataDir
}

func seedSource(t *testing.T, dataDir string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, os.MkdirAll(dataDir, 0755))
	src, err := source.OpenSQLiteSource(ctx, filepath.Join(dataDir, "source.db"), "cells", 3, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer src.Close()

	c := codec.New()
	dec := func(s string) []byte {
		b, err := c.Encode(s, codec.Decimal)
		require.NoError(t, err)
		return b
	}
	rows := map[string][]types.Cell{
		"27AAA|202401": {
			{Family: "d", Qualifier: "name", Timestamp: 1, Kind: types.CellPut, Value: []byte("acme")},
			{Family: "d", Qualifier: "amt", Timestamp: 1, Kind: types.CellPut, Value: dec("10.5")},
		},
		"27BBB|202401": {
			{Family: "d", Qualifier: "amt", Timestamp: 2, Kind: types.CellPut, Value: dec("4")},
		},
		"27CCC|202401": {
			{Family: "d", Qualifier: "amt", Timestamp: 1, Kind: types.CellPut, Value: dec("99")},
			{Family: "d", Timestamp: 5, Kind: types.CellDeleteFamily},
		},
	}
	for key, cells := range rows {
		require.NoError(t, src.WriteCells(ctx, []byte(key), cells))
	}
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"gstin=27AAA", "period=2024=01"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"gstin": "27AAA", "period": "2024=01"}, got)

	for _, bad := range [][]string{{"gstin"}, {"=x"}, {"a=1", "a=2"}} {
		_, err := parseAssignments(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "hbase2hive version dev")
}

func TestValidateSchemaCommand(t *testing.T) {
	cfgPath, _ := setupJob(t)
	schemaPath := filepath.Join(filepath.Dir(cfgPath), "invoices.yaml")

	out, err := execute(t, "validate-schema", schemaPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Table: invoices")
	assert.Contains(t, out, "d:amt")
	assert.Contains(t, out, "amount")
	assert.Contains(t, out, "sum, count")

	_, err = execute(t, "validate-schema")
	assert.Error(t, err)
}

func TestRowKeyCommand(t *testing.T) {
	cfgPath, _ := setupJob(t)
	schemaPath := filepath.Join(filepath.Dir(cfgPath), "invoices.yaml")

	out, err := execute(t, "rowkey", "--schema", schemaPath, "gstin=27AAA", "period=202401")
	require.NoError(t, err)
	assert.Equal(t, "32374141417c323032343031\n", out)

	out, err = execute(t, "rowkey", "--schema", schemaPath, "--decode", "32374141417c323032343031")
	require.NoError(t, err)
	assert.Equal(t, "gstin=27AAA\nperiod=202401\n", out)

	_, err = execute(t, "rowkey", "--schema", schemaPath, "gstin=27AAA")
	assert.Error(t, err, "missing key field")
}

func TestMigrateAndVerify(t *testing.T) {
	cfgPath, dataDir := setupJob(t)
	seedSource(t, dataDir)

	out, err := execute(t, "migrate", "--config", cfgPath, "--job-id", "job-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Rows:         3")
	assert.Contains(t, out, "Inserted:     2")
	assert.Contains(t, out, "Deleted:      1")
	assert.Contains(t, out, "Mismatches:   0")

	for _, role := range []string{sink.RoleSource, sink.RoleTarget} {
		p := filepath.Join(dataDir, "storage", filepath.FromSlash(
			sink.ReportObjectPath("invoices", "job-1", role, codec.Zstd)))
		_, err := os.Stat(p)
		assert.NoError(t, err, "%s report", role)
	}

	out, err = execute(t, "verify", "--config", cfgPath, "--table", "invoices")
	require.NoError(t, err)
	assert.Equal(t, "job-1: OK (2 rows)\n", out)
}

func TestVerifyDetectsMismatch(t *testing.T) {
	cfgPath, dataDir := setupJob(t)
	ctx := context.Background()

	store, err := storage.NewLocalStorage(filepath.Join(dataDir, "storage"))
	require.NoError(t, err)
	entity := recon.NewReconEntity()
	require.NoError(t, entity.Add(map[string]string{"amount": "3"},
		recon.ColumnOperations{"amount": {recon.OpSum, recon.OpCount}}))
	reports := sink.NewFileReconSink(t.TempDir(), store, "job-2", sink.RoleSource)
	require.NoError(t, reports.Write(ctx, "invoices", entity))

	out, err := execute(t, "verify", "--config", cfgPath, "--table", "invoices", "--job", "job-2")
	require.Error(t, err)
	assert.Contains(t, out, "job-2: MISMATCH")
	assert.Contains(t, out, "amount_sum")

	_, err = execute(t, "verify", "--config", cfgPath, "--table", "orders")
	assert.Error(t, err, "no reports for table")
}
