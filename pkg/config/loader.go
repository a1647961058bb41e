package config

import (
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/xlsx2parquet/pkg/errors"
)

// EnvPrefix prefixes the environment variables that override configuration
// keys, e.g. XLSX2PARQUET_CONVERSION_BATCH_SIZE
const EnvPrefix = "XLSX2PARQUET"

// Loader resolves a Config from defaults, a YAML file, the environment and
// bound flags
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader seeded with NewDefaultConfig
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v, NewDefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("conversion.batch_size", d.Conversion.BatchSize)
	v.SetDefault("conversion.compression", d.Conversion.Compression)
	v.SetDefault("conversion.strategy", d.Conversion.Strategy)
	v.SetDefault("conversion.pipelined", d.Conversion.Pipelined)
	v.SetDefault("conversion.row_group_size", d.Conversion.RowGroupSize)
	v.SetDefault("conversion.infer_types", d.Conversion.InferTypes)
	v.SetDefault("conversion.count_rows", d.Conversion.CountRows)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.development", d.Logging.Development)
	v.SetDefault("observability.metrics_file", d.Observability.MetricsFile)
	v.SetDefault("observability.trace_file", d.Observability.TraceFile)
}

// BindFlag makes a command-line flag override key when the flag is set
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return errors.Newf(errors.ErrorTypeConfig, "no flag to bind to %s", key)
	}
	if err := l.v.BindPFlag(key, flag); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to bind flag").WithDetail("key", key)
	}
	return nil
}

// Load reads the YAML file at path, if path is not empty, and returns the
// validated configuration
func (l *Loader) Load(path string) (*Config, error) {
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the operator
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file").
				WithDetail("path", path)
		}

		l.v.SetConfigType("yaml")
		if err := l.v.ReadConfig(strings.NewReader(substituteEnvVars(string(data)))); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse YAML").
				WithDetail("path", path)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load is a shorthand for NewLoader().Load(path)
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}

// Save writes cfg to a YAML file
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to marshal YAML")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to write config file").
			WithDetail("path", path)
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
	}
	return content
}
