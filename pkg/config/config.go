// Package config defines the configuration of a conversion run.
//
// The configuration is organized into three sections:
//   - Conversion: batch size, codec, write strategy and reader options
//   - Logging: level, encoding and development mode
//   - Observability: optional metrics and trace output files
//
// Values are layered, lowest precedence first: NewDefaultConfig, a YAML file
// (with ${VAR} environment substitution), XLSX2PARQUET_* environment
// variables, and command-line flags bound through Loader.BindFlag.
//
// Example usage:
//
//	cfg := config.NewDefaultConfig()
//	cfg.Conversion.BatchSize = 5000
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/xlsx2parquet/pkg/errors"
)

// Write strategies
const (
	// StrategyAssemble accumulates every batch, assembles one table and
	// writes it at the end
	StrategyAssemble = "assemble"
	// StrategyStream scans the source for its schema, then appends each batch
	// to the output as it is read
	StrategyStream = "stream"
)

// Defaults
const (
	DefaultBatchSize    = 25000
	DefaultCompression  = "snappy"
	DefaultRowGroupSize = 64 * 1024
)

// Config is the complete configuration of a conversion run
type Config struct {
	// Conversion controls how the workbook is read and the Parquet file written
	Conversion ConversionConfig `yaml:"conversion" json:"conversion" mapstructure:"conversion"`

	// Logging configures the zap logger
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`

	// Observability enables metrics and trace output
	Observability ObservabilityConfig `yaml:"observability" json:"observability" mapstructure:"observability"`
}

// ConversionConfig contains the settings that shape the conversion
type ConversionConfig struct {
	// BatchSize is the number of rows read per batch
	BatchSize int `yaml:"batch_size" json:"batch_size" mapstructure:"batch_size"`
	// Compression is the Parquet codec (none, snappy, gzip, brotli, zstd, lz4)
	Compression string `yaml:"compression" json:"compression" mapstructure:"compression"`
	// Strategy is assemble or stream
	Strategy string `yaml:"strategy" json:"strategy" mapstructure:"strategy"`
	// Pipelined reads the next batch while the current one is columnarized
	Pipelined bool `yaml:"pipelined" json:"pipelined" mapstructure:"pipelined"`
	// RowGroupSize caps the rows in one Parquet row group
	RowGroupSize int `yaml:"row_group_size" json:"row_group_size" mapstructure:"row_group_size"`
	// InferTypes decodes numbers, booleans and dates from cell text
	InferTypes bool `yaml:"infer_types" json:"infer_types" mapstructure:"infer_types"`
	// CountRows counts the data rows up front so progress has a total
	CountRows bool `yaml:"count_rows" json:"count_rows" mapstructure:"count_rows"`
}

// LoggingConfig configures the logger
type LoggingConfig struct {
	// Level is debug, info, warn or error
	Level string `yaml:"level" json:"level" mapstructure:"level"`
	// Format is console or json
	Format string `yaml:"format" json:"format" mapstructure:"format"`
	// Development enables zap's development mode
	Development bool `yaml:"development" json:"development" mapstructure:"development"`
}

// ObservabilityConfig names the optional metrics and trace outputs
type ObservabilityConfig struct {
	// MetricsFile receives the run's metrics in Prometheus text format
	MetricsFile string `yaml:"metrics_file" json:"metrics_file" mapstructure:"metrics_file"`
	// TraceFile receives the run's spans as JSON
	TraceFile string `yaml:"trace_file" json:"trace_file" mapstructure:"trace_file"`
}

// NewDefaultConfig returns the configuration used when nothing is overridden
func NewDefaultConfig() *Config {
	return &Config{
		Conversion: ConversionConfig{
			BatchSize:    DefaultBatchSize,
			Compression:  DefaultCompression,
			Strategy:     StrategyAssemble,
			Pipelined:    false,
			RowGroupSize: DefaultRowGroupSize,
			InferTypes:   true,
			CountRows:    true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks that every value is in range. The compression codec is
// checked by the writer, which reports unsupported codecs as write failures.
func (c *Config) Validate() error {
	if c.Conversion.BatchSize <= 0 {
		return errors.Newf(errors.ErrorTypeConfig, "batch_size must be positive, got %d", c.Conversion.BatchSize)
	}
	if c.Conversion.RowGroupSize <= 0 {
		return errors.Newf(errors.ErrorTypeConfig, "row_group_size must be positive, got %d", c.Conversion.RowGroupSize)
	}
	switch c.Conversion.Strategy {
	case StrategyAssemble, StrategyStream:
	default:
		return errors.Newf(errors.ErrorTypeConfig, "strategy must be %q or %q, got %q",
			StrategyAssemble, StrategyStream, c.Conversion.Strategy)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid logging level")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "logging format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// IsStreaming returns true if batches are written as they are read
func (c *ConversionConfig) IsStreaming() bool {
	return c.Strategy == StrategyStream
}
