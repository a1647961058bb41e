package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/xlsx2parquet/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, NewDefaultConfig(), cfg)
}

func TestLoadFileWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_XLSX_CODEC", "zstd")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
conversion:
  batch_size: 500
  compression: ${TEST_XLSX_CODEC}
  strategy: stream
logging:
  level: debug
  format: json
observability:
  metrics_file: /tmp/run.prom
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Conversion.BatchSize)
	assert.Equal(t, "zstd", cfg.Conversion.Compression)
	assert.True(t, cfg.Conversion.IsStreaming())
	assert.Equal(t, DefaultRowGroupSize, cfg.Conversion.RowGroupSize, "unset keys keep their defaults")
	assert.True(t, cfg.Conversion.InferTypes)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/tmp/run.prom", cfg.Observability.MetricsFile)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("XLSX2PARQUET_CONVERSION_BATCH_SIZE", "1234")
	t.Setenv("XLSX2PARQUET_CONVERSION_PIPELINED", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1234, cfg.Conversion.BatchSize)
	assert.True(t, cfg.Conversion.Pipelined)
}

func TestLoaderFlagOverride(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("batch-size", DefaultBatchSize, "")
	fs.String("compression", DefaultCompression, "")
	require.NoError(t, fs.Parse([]string{"--batch-size", "10"}))

	l := NewLoader()
	require.NoError(t, l.BindFlag("conversion.batch_size", fs.Lookup("batch-size")))
	require.NoError(t, l.BindFlag("conversion.compression", fs.Lookup("compression")))
	assert.Error(t, l.BindFlag("conversion.strategy", fs.Lookup("strategy")))

	cfg, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Conversion.BatchSize)
	assert.Equal(t, DefaultCompression, cfg.Conversion.Compression)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("conversion:\n  strategy: sideways\n"), 0o600))
	_, err = Load(path)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"batch size", func(c *Config) { c.Conversion.BatchSize = -1 }},
		{"row group size", func(c *Config) { c.Conversion.RowGroupSize = 0 }},
		{"strategy", func(c *Config) { c.Conversion.Strategy = "" }},
		{"level", func(c *Config) { c.Logging.Level = "loud" }},
		{"format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.True(t, errors.IsType(cfg.Validate(), errors.ErrorTypeConfig))
		})
	}

	cfg := NewDefaultConfig()
	cfg.Conversion.Compression = "lzma"
	assert.NoError(t, cfg.Validate(), "codecs are checked by the writer")
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Conversion.BatchSize = 42
	cfg.Conversion.Compression = "gzip"
	cfg.Observability.TraceFile = "trace.json"

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
