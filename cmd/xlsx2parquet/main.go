package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ajitpratap0/xlsx2parquet/internal/pipeline"
	"github.com/ajitpratap0/xlsx2parquet/pkg/compression"
	"github.com/ajitpratap0/xlsx2parquet/pkg/config"
	"github.com/ajitpratap0/xlsx2parquet/pkg/errors"
	"github.com/ajitpratap0/xlsx2parquet/pkg/formats/parquet"
	"github.com/ajitpratap0/xlsx2parquet/pkg/logger"
	"github.com/ajitpratap0/xlsx2parquet/pkg/metrics"
	"github.com/ajitpratap0/xlsx2parquet/pkg/observability"
	"github.com/ajitpratap0/xlsx2parquet/pkg/performance"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand
type globalFlags struct {
	configFile string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	var gf globalFlags

	root := &cobra.Command{
		Use:   "xlsx2parquet",
		Short: "Convert Excel workbooks to Parquet files",
		Long: `xlsx2parquet streams the first sheet of an .xlsx workbook in bounded batches
and writes it as a single Parquet file with one typed column per header cell.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&gf.configFile, "config", "", "Path to a YAML configuration file")
	root.PersistentFlags().StringVar(&gf.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&gf.logFormat, "log-format", "console", "Log format (console, json)")

	root.AddCommand(newConvertCmd(&gf))
	root.AddCommand(newInspectCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "xlsx2parquet v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})
	return root
}

// convertFlags holds the flags of the convert command that are not part of
// the configuration file
type convertFlags struct {
	output     string
	report     string
	cpuProfile string
	memProfile string
}

func newConvertCmd(gf *globalFlags) *cobra.Command {
	var cf convertFlags
	loader := config.NewLoader()
	defaults := config.NewDefaultConfig()

	cmd := &cobra.Command{
		Use:   "convert <input.xlsx>",
		Short: "Convert the first sheet of a workbook to Parquet",
		Long: `Convert reads the first sheet of the workbook in batches of --batch-size rows
and writes the rows to a Parquet file. The first row is the header.

Example:
  xlsx2parquet convert sales.xlsx -o sales.parquet --compression zstd`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, loader, gf, &cf, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cf.output, "output", "o", "", "Output Parquet file (default: input name with .parquet)")
	flags.StringVar(&cf.report, "report", "", "Write a JSON run report to this file")
	flags.StringVar(&cf.cpuProfile, "cpu-profile", "", "Write a pprof CPU profile to this file")
	flags.StringVar(&cf.memProfile, "mem-profile", "", "Write a pprof heap profile to this file")
	flags.Int("batch-size", defaults.Conversion.BatchSize, "Rows read per batch. Smaller batches lower peak memory")
	flags.String("compression", defaults.Conversion.Compression, "Parquet codec (none, snappy, gzip, brotli, zstd, lz4)")
	flags.String("strategy", defaults.Conversion.Strategy, "Write strategy (assemble, stream)")
	flags.Bool("pipelined", defaults.Conversion.Pipelined, "Read the next batch while the current one is columnarized")
	flags.Int("row-group-size", defaults.Conversion.RowGroupSize, "Maximum rows per Parquet row group")
	flags.Bool("infer-types", defaults.Conversion.InferTypes, "Decode numbers, booleans and dates from cell text")
	flags.Bool("count-rows", defaults.Conversion.CountRows, "Count rows up front so progress reports a total")
	flags.String("metrics-file", "", "Write Prometheus metrics to this textfile")
	flags.String("trace-file", "", "Write trace spans as JSON to this file")

	bindings := map[string]string{
		"conversion.batch_size":      "batch-size",
		"conversion.compression":     "compression",
		"conversion.strategy":        "strategy",
		"conversion.pipelined":       "pipelined",
		"conversion.row_group_size":  "row-group-size",
		"conversion.infer_types":     "infer-types",
		"conversion.count_rows":      "count-rows",
		"observability.metrics_file": "metrics-file",
		"observability.trace_file":   "trace-file",
	}
	for key, name := range bindings {
		if err := loader.BindFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind --%s to %s: %v", name, key, err))
		}
	}
	return cmd
}

func runConvert(cmd *cobra.Command, loader *config.Loader, gf *globalFlags, cf *convertFlags, input string) error {
	// Persistent flags are only known once the command line is parsed
	root := cmd.Root().PersistentFlags()
	for key, name := range map[string]string{"logging.level": "log-level", "logging.format": "log-format"} {
		if err := loader.BindFlag(key, root.Lookup(name)); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "failed to bind flag").
				WithDetail("flag", name)
		}
	}

	cfg, err := loader.Load(gf.configFile)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Encoding:    cfg.Logging.Format,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to create logger")
	}
	logger.Set(log)
	defer func() { _ = log.Sync() }()

	prof, err := performance.StartProfiler(performance.ProfilerConfig{
		CPUProfile: cf.cpuProfile,
		MemProfile: cf.memProfile,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := prof.Stop(); err != nil {
			log.Warn("failed to write profiles", zap.Error(err))
		}
	}()

	ctx := cmd.Context()
	tracingCfg := observability.DefaultTracingConfig()
	tracingCfg.ServiceVersion = version
	tracingCfg.File = cfg.Observability.TraceFile
	tracing, err := observability.InitTracing(ctx, tracingCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			log.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	output := cf.output
	if output == "" {
		output = defaultOutput(input)
	}

	collector := metrics.NewCollector()
	conv := pipeline.NewConverter(cfg.Conversion,
		pipeline.WithLogger(log),
		pipeline.WithMetrics(collector),
		pipeline.WithTracing(tracing),
	)

	report, runErr := conv.Run(ctx, input, output)

	if cf.report != "" {
		if err := report.WriteJSON(cf.report); err != nil {
			log.Warn("failed to write report", zap.String("path", cf.report), zap.Error(err))
		}
	}
	if path := cfg.Observability.MetricsFile; path != "" {
		if err := collector.WriteTextfile(path); err != nil {
			log.Warn("failed to write metrics", zap.String("path", path), zap.Error(err))
		}
	}

	if runErr != nil {
		return runErr
	}
	printSummary(cmd.OutOrStdout(), report)
	return nil
}

// defaultOutput replaces the workbook extension of input, and any
// compression extension before it, with .parquet
func defaultOutput(input string) string {
	_, base := compression.Detect(input)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".parquet"
}

func printSummary(w io.Writer, r *pipeline.Report) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "Wrote %s (%.2f MB, %d rows)\n", r.Output, r.SizeMB, r.Rows)
	if len(r.IgnoredSheets) > 0 {
		fmt.Fprintf(w, "Warning: only sheet %q was converted; ignored %s\n",
			r.Sheet, strings.Join(r.IgnoredSheets, ", "))
	}
}

// describe turns err into the message printed on failure
func describe(err error) string {
	var e *errors.Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	switch e.Type {
	case errors.ErrorTypeSourceUnreadable:
		return "cannot read the input as a spreadsheet: " + e.Error()
	case errors.ErrorTypeEmptySource:
		return "the first sheet has no data rows"
	case errors.ErrorTypeColumnCountMismatch:
		if row, ok := e.Details["row"]; ok {
			return fmt.Sprintf("row %v has more cells than the header: %s", row, e.Error())
		}
	case errors.ErrorTypeWriteFailure:
		return "cannot write the Parquet file: " + e.Error()
	case errors.ErrorTypeCanceled:
		return "conversion interrupted"
	}
	return e.Error()
}

func newInspectCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <file.parquet>",
		Short: "Show the schema and layout of a Parquet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := parquet.Inspect(args[0])
			if err != nil {
				return err
			}
			return printInfo(cmd.OutOrStdout(), info, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the file summary as JSON")
	return cmd
}
