// Package observability provides tracing for conversion runs.
//
// Spans are exported with the OpenTelemetry stdout exporter into a JSON
// trace file, one span per conversion stage under a root span for the run.
// When no trace file is configured a no-op tracer is used and nothing is
// recorded.
package observability

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ajitpratap0/xlsx2parquet/pkg/errors"
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	// File receives the exported spans; empty disables tracing
	File string
	// Writer receives the exported spans when File is empty
	Writer io.Writer
}

// DefaultTracingConfig returns a configuration with tracing disabled
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName:    "xlsx2parquet",
		ServiceVersion: "dev",
	}
}

// Tracing owns a tracer provider and its output
type Tracing struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	file     *os.File
}

// InitTracing creates a tracer exporting to cfg.File or cfg.Writer. With
// neither set the returned Tracing records nothing.
func InitTracing(ctx context.Context, cfg TracingConfig) (*Tracing, error) {
	if cfg.File == "" && cfg.Writer == nil {
		return &Tracing{tracer: noop.NewTracerProvider().Tracer(cfg.ServiceName)}, nil
	}

	t := &Tracing{}
	w := cfg.Writer
	if cfg.File != "" {
		f, err := os.Create(cfg.File)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create trace file").
				WithDetail("path", cfg.File)
		}
		t.file = f
		w = f
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
	)
	if err != nil {
		t.closeFile()
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create resource")
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		t.closeFile()
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create stdout exporter")
	}

	t.provider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(t.provider)
	t.tracer = t.provider.Tracer(cfg.ServiceName)
	return t, nil
}

// Tracer returns the run's tracer
func (t *Tracing) Tracer() trace.Tracer { return t.tracer }

// StartSpan starts a span named after a conversion stage
func (t *Tracing) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan marks span as failed when err is not nil and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.type", string(errors.TypeOf(err))))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Shutdown flushes pending spans and closes the trace file
func (t *Tracing) Shutdown(ctx context.Context) error {
	var firstErr error
	if t.provider != nil {
		if err := t.provider.Shutdown(ctx); err != nil {
			firstErr = errors.Wrap(err, errors.ErrorTypeInternal, "failed to shutdown tracer")
		}
	}
	if err := t.closeFile(); err != nil && firstErr == nil {
		firstErr = errors.Wrap(err, errors.ErrorTypeInternal, "failed to close trace file")
	}
	return firstErr
}

func (t *Tracing) closeFile() error {
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}
