// Package pipeline drives a conversion run from workbook to Parquet file.
//
// # Overview
//
// A Converter wires the stages together and owns the run's lifecycle:
//   - Reader: streams row batches from the first sheet (pkg/source/xlsx)
//   - Accumulator: columnarizes each batch and releases its rows (pkg/columnar)
//   - Assembler: joins the columnar batches into one table (pkg/columnar)
//   - Writer: writes the Parquet file atomically (pkg/formats/parquet)
//
// # Strategies
//
// The assemble strategy keeps every columnar batch until the sheet is
// exhausted, assembles one table and writes it. The stream strategy scans
// the sheet once to fix the schema, then reads it again and appends each
// columnar batch to the output as it arrives, so at most one batch is held
// in memory at a time.
//
// With Pipelined set the reader runs in its own goroutine and fills a
// channel of capacity one while the previous batch is columnarized. Batch
// order is preserved.
//
// # Basic Usage
//
//	conv := pipeline.NewConverter(cfg.Conversion,
//	    pipeline.WithLogger(logger),
//	    pipeline.WithMetrics(metrics.NewCollector()),
//	)
//
//	report, err := conv.Run(ctx, "sales.xlsx", "sales.parquet")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(report.Rows, report.SizeMB)
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/xlsx2parquet/pkg/columnar"
	"github.com/ajitpratap0/xlsx2parquet/pkg/config"
	"github.com/ajitpratap0/xlsx2parquet/pkg/errors"
	"github.com/ajitpratap0/xlsx2parquet/pkg/formats/parquet"
	"github.com/ajitpratap0/xlsx2parquet/pkg/logger"
	"github.com/ajitpratap0/xlsx2parquet/pkg/metrics"
	"github.com/ajitpratap0/xlsx2parquet/pkg/models"
	"github.com/ajitpratap0/xlsx2parquet/pkg/observability"
	"github.com/ajitpratap0/xlsx2parquet/pkg/performance"
	"github.com/ajitpratap0/xlsx2parquet/pkg/source/xlsx"
)

// Option configures a Converter
type Option func(*Converter)

// WithLogger sets the logger. Without it the global logger is used.
func WithLogger(l *zap.Logger) Option {
	return func(c *Converter) { c.logger = l }
}

// WithMetrics records the run into collector
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Converter) { c.metrics = collector }
}

// WithTracing records one span per stage through t
func WithTracing(t *observability.Tracing) Option {
	return func(c *Converter) { c.tracing = t }
}

// WithProgress adds an observer called after every accumulated batch
func WithProgress(fn columnar.ProgressFunc) Option {
	return func(c *Converter) { c.observer = fn }
}

// WithProgressInterval sets how often progress is logged
func WithProgressInterval(d time.Duration) Option {
	return func(c *Converter) { c.interval = d }
}

// Converter converts workbooks to Parquet files. A Converter may run any
// number of conversions, one at a time.
type Converter struct {
	cfg      config.ConversionConfig
	logger   *zap.Logger
	metrics  *metrics.Collector
	tracing  *observability.Tracing
	monitor  *performance.ResourceMonitor
	observer columnar.ProgressFunc
	interval time.Duration
}

// NewConverter creates a converter for cfg
func NewConverter(cfg config.ConversionConfig, opts ...Option) *Converter {
	c := &Converter{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get()
	}
	if c.metrics == nil {
		c.metrics = metrics.NewCollector()
	}
	if c.tracing == nil {
		c.tracing, _ = observability.InitTracing(context.Background(), observability.DefaultTracingConfig())
	}
	c.monitor = performance.NewResourceMonitor()
	return c
}

// Metrics returns the collector the converter records into
func (c *Converter) Metrics() *metrics.Collector { return c.metrics }

// run carries the state of one Run call
type run struct {
	ctx      context.Context
	logger   *zap.Logger
	report   *Report
	states   *stateMachine
	progress *ProgressReporter
}

// Run converts the first sheet of input into the Parquet file output.
//
// The returned report describes the run whether or not it succeeded. On
// failure no file exists at output, and the error carries one of the
// source_unreadable, empty_source, column_count_mismatch, schema_mismatch,
// write_failure or canceled types.
func (c *Converter) Run(ctx context.Context, input, output string) (*Report, error) {
	runID := uuid.NewString()
	ctx = context.WithValue(ctx, logger.RunIDKey, runID)
	ctx = context.WithValue(ctx, logger.InputKey, input)
	log := logger.WithContext(ctx, c.logger)

	r := &run{
		ctx:    ctx,
		logger: log,
		report: &Report{
			RunID:     runID,
			Input:     input,
			Output:    output,
			Strategy:  c.cfg.Strategy,
			Pipelined: c.cfg.Pipelined,
			BatchSize: c.cfg.BatchSize,
			StartedAt: time.Now(),
		},
		states:   newStateMachine(log),
		progress: NewProgressReporter(log, c.metrics, c.monitor),
	}
	if c.interval > 0 {
		r.progress.SetInterval(c.interval)
	}

	log.Info("starting conversion",
		zap.String("output", output),
		zap.String("strategy", c.cfg.Strategy),
		zap.Int("batch_size", c.cfg.BatchSize),
		zap.String("compression", c.cfg.Compression),
		zap.Bool("pipelined", c.cfg.Pipelined))

	spanCtx, span := c.tracing.StartSpan(ctx, "convert",
		attribute.String("run_id", runID),
		attribute.String("input", input),
		attribute.String("output", output),
		attribute.String("strategy", c.cfg.Strategy))
	r.ctx = spanCtx

	r.progress.Start()
	err := c.execute(r)
	r.progress.Stop()

	c.finish(r, err)
	observability.EndSpan(span, err)
	return r.report, err
}

func (c *Converter) execute(r *run) error {
	codec, err := parquet.ParseCodec(c.cfg.Compression)
	if err != nil {
		return err
	}
	r.report.Codec = parquet.CodecName(codec)

	if c.cfg.BatchSize <= 0 {
		return errors.Newf(errors.ErrorTypeValidation, "batch size must be positive, got %d", c.cfg.BatchSize)
	}

	if c.cfg.IsStreaming() {
		return c.stream(r)
	}
	return c.assemble(r)
}

// assemble keeps every columnar batch, assembles one table and writes it
func (c *Converter) assemble(r *run) error {
	if err := r.states.advance(StateReading); err != nil {
		return err
	}
	rd, err := c.open(r, c.cfg.CountRows)
	if err != nil {
		return err
	}
	defer rd.Close()

	if err := r.states.advance(StateAccumulating); err != nil {
		return err
	}
	acc := columnar.NewAccumulator(rd.Header(), rd.TotalRows(), columnar.WithProgress(c.progressFunc(r)))
	if err := c.accumulate(r, rd, acc); err != nil {
		return err
	}
	_ = rd.Close()

	if err := r.states.advance(StateAssembling); err != nil {
		return err
	}
	var table *models.Table
	err = c.stage(r, "assemble", func(context.Context) error {
		var err error
		table, err = columnar.Assemble(acc.Batches())
		return err
	})
	if err != nil {
		return err
	}
	r.report.Schema = table.Schema()

	if err := r.states.advance(StateWriting); err != nil {
		return err
	}
	var res parquet.Result
	err = c.stage(r, "write", func(ctx context.Context) error {
		var err error
		res, err = parquet.Write(ctx, table, r.report.Output, c.writerConfig(r))
		return err
	})
	if err != nil {
		return err
	}
	c.recordResult(r, res)
	return nil
}

// stream fixes the schema with a scan pass, then appends each columnar
// batch to the output as it is produced
func (c *Converter) stream(r *run) error {
	if err := r.states.advance(StateReading); err != nil {
		return err
	}

	var (
		schema models.Schema
		total  int64
	)
	err := c.stage(r, "scan_schema", func(ctx context.Context) error {
		var err error
		schema, total, err = c.scanSchema(r)
		return err
	})
	if err != nil {
		return err
	}
	r.report.Schema = schema

	rd, err := c.open(r, false)
	if err != nil {
		return err
	}
	defer rd.Close()

	st, err := parquet.OpenStream(r.report.Output, schema, c.writerConfig(r))
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			st.Abort()
		}
	}()

	if err := r.states.advance(StateAccumulating); err != nil {
		return err
	}
	sink := func(b *models.ColumnarBatch) error {
		cb, err := columnar.Conform(b, schema)
		if err != nil {
			return err
		}
		return st.AppendBatch(r.ctx, cb)
	}
	acc := columnar.NewAccumulator(rd.Header(), total,
		columnar.WithProgress(c.progressFunc(r)),
		columnar.WithSink(sink))
	if err := c.accumulate(r, rd, acc); err != nil {
		return err
	}

	if err := r.states.advance(StateWriting); err != nil {
		return err
	}
	var res parquet.Result
	err = c.stage(r, "write", func(context.Context) error {
		var err error
		res, err = st.Commit()
		return err
	})
	committed = true
	if err != nil {
		return err
	}
	c.recordResult(r, res)
	return nil
}

// scanSchema reads the whole sheet once and returns the unified schema of
// its columnar batches and the number of data rows
func (c *Converter) scanSchema(r *run) (models.Schema, int64, error) {
	rd, err := c.open(r, false)
	if err != nil {
		return nil, 0, err
	}
	defer rd.Close()

	var (
		sb   columnar.SchemaBuilder
		rows int64
	)
	err = c.readBatches(r.ctx, rd, func(b *models.RowBatch) error {
		cb, err := columnar.Columnarize(b, rd.Header())
		b.Release()
		if err != nil {
			return err
		}
		rows += int64(cb.NumRows)
		return sb.Observe(cb)
	})
	if err != nil {
		return nil, 0, err
	}
	if sb.Batches() == 0 {
		return nil, 0, errors.New(errors.ErrorTypeEmptySource, "sheet has no data rows").
			WithDetail("sheet", rd.Sheet())
	}

	r.logger.Debug("schema scan complete",
		zap.Int64("rows", rows),
		zap.Int("batches", sb.Batches()),
		zap.Strings("columns", sb.Schema().Names()))
	return sb.Schema(), rows, nil
}

// open opens the input and records what it found in the report
func (c *Converter) open(r *run, countRows bool) (*xlsx.Reader, error) {
	var rd *xlsx.Reader
	err := c.stage(r, "open", func(ctx context.Context) error {
		var err error
		rd, err = xlsx.Open(ctx, r.report.Input, xlsx.Options{
			InferTypes: c.cfg.InferTypes,
			CountRows:  countRows,
			Logger:     r.logger,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if r.report.Sheet == "" {
		r.report.Sheet = rd.Sheet()
		r.report.IgnoredSheets = rd.IgnoredSheets()
		if len(r.report.IgnoredSheets) > 0 {
			r.logger.Warn("workbook has more than one sheet, only the first is converted",
				zap.String("sheet", rd.Sheet()),
				zap.Strings("ignored_sheets", r.report.IgnoredSheets))
		}
		r.logger.Info("opened workbook",
			zap.String("sheet", rd.Sheet()),
			zap.Int("columns", rd.Header().Len()),
			zap.Int64("total_rows", rd.TotalRows()))
	}
	return rd, nil
}

// accumulate feeds every batch of rd into acc
func (c *Converter) accumulate(r *run, rd *xlsx.Reader, acc *columnar.Accumulator) error {
	return c.stage(r, "accumulate", func(ctx context.Context) error {
		err := c.readBatches(ctx, rd, func(b *models.RowBatch) error {
			n := b.Len()
			timer := metrics.NewTimer("columnarize")
			if err := acc.Add(b); err != nil {
				return err
			}
			c.metrics.ObserveStage(timer.Name(), timer.Stop())
			c.metrics.ObserveBatch(n)
			r.report.Batches++
			return nil
		})
		r.report.Rows = acc.Processed()
		return err
	})
}

// readBatches calls fn with every batch of rd in order, reading ahead on a
// separate goroutine when the converter is pipelined. fn owns each batch
// and must release it.
func (c *Converter) readBatches(ctx context.Context, rd *xlsx.Reader, fn func(*models.RowBatch) error) error {
	if !c.cfg.Pipelined {
		for {
			b, err := c.nextBatch(ctx, rd)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if err := fn(b); err != nil {
				return err
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan *models.RowBatch, 1)

	g.Go(func() error {
		defer close(batches)
		for {
			b, err := c.nextBatch(gctx, rd)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case batches <- b:
			case <-gctx.Done():
				b.Release()
				return gctx.Err()
			}
		}
	})

	g.Go(func() error {
		for b := range batches {
			if err := fn(b); err != nil {
				return err
			}
		}
		return nil
	})

	err := g.Wait()
	for b := range batches {
		b.Release()
	}
	if err != nil && !errors.As(err, new(*errors.Error)) {
		// The producer saw the group context end before reporting its own error
		return errors.Wrap(err, errors.ErrorTypeCanceled, "read canceled")
	}
	return err
}

func (c *Converter) nextBatch(ctx context.Context, rd *xlsx.Reader) (*models.RowBatch, error) {
	timer := metrics.NewTimer("read")
	b, err := rd.NextBatch(ctx, c.cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	c.metrics.ObserveStage(timer.Name(), timer.Stop())
	return b, nil
}

// stage runs fn inside a span and records its duration
func (c *Converter) stage(r *run, name string, fn func(context.Context) error) error {
	ctx, span := c.tracing.StartSpan(r.ctx, name)
	timer := metrics.NewTimer(name)
	err := fn(ctx)
	d := timer.Stop()
	c.metrics.ObserveStage(name, d)
	observability.EndSpan(span, err)

	r.logger.Debug("stage finished", zap.String("stage", name), zap.Duration("duration", d), zap.Error(err))
	return err
}

func (c *Converter) progressFunc(r *run) columnar.ProgressFunc {
	return func(processed, total int64) {
		r.progress.ReportProgress(processed, total)
		if c.observer != nil {
			c.observer(processed, total)
		}
	}
}

func (c *Converter) writerConfig(r *run) parquet.WriterConfig {
	cfg := parquet.DefaultWriterConfig()
	cfg.Compression = c.cfg.Compression
	if c.cfg.RowGroupSize > 0 {
		cfg.RowGroupSize = c.cfg.RowGroupSize
	}
	cfg.Logger = r.logger
	return cfg
}

func (c *Converter) recordResult(r *run, res parquet.Result) {
	r.report.Output = res.Path
	r.report.Bytes = res.Bytes
	r.report.SizeMB = res.SizeMB()
	r.report.RowGroups = res.RowGroups
	r.report.Codec = res.Codec
	c.metrics.SetOutputBytes(res.Bytes)
}

// finish moves the run to its terminal state and completes the report
func (c *Converter) finish(r *run, err error) {
	rep := r.report
	if err == nil {
		err = r.states.advance(StateSucceeded)
	}
	if err != nil {
		r.states.fail(err)
		rep.Error = err.Error()
		rep.ErrorType = string(errors.TypeOf(err))
	}

	rep.State = r.states.current()
	rep.Transitions = r.states.history
	rep.Duration = time.Since(rep.StartedAt)
	rep.PeakRSS = c.monitor.PeakRSS()
	c.metrics.SetPeakRSS(rep.PeakRSS)
	c.metrics.RunFinished(string(rep.State), rep.ErrorType)

	if err != nil {
		r.logger.Error("conversion failed",
			zap.String("error_type", rep.ErrorType),
			zap.Duration("duration", rep.Duration),
			zap.Error(err))
		return
	}
	r.logger.Info("conversion completed",
		zap.String("output", rep.Output),
		zap.Int64("rows", rep.Rows),
		zap.Int("batches", rep.Batches),
		zap.Int("row_groups", rep.RowGroups),
		zap.Int64("bytes", rep.Bytes),
		zap.Duration("duration", rep.Duration),
		zap.Uint64("peak_rss", rep.PeakRSS))
}
