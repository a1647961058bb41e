// Package metrics records the measurements of a conversion run with
// Prometheus collectors.
//
// Each run gets its own Collector backed by a private registry, so runs in
// the same process (tests, repeated CLI invocations in one binary) never
// share counters. A finished run can be exported in the Prometheus text
// format for the node exporter's textfile collector.
//
// # Basic Usage
//
//	c := metrics.NewCollector()
//
//	timer := metrics.NewTimer("read")
//	batch := readBatch()
//	c.ObserveStage("read", timer.Stop())
//	c.ObserveBatch(batch.Len())
//
//	c.RunFinished("succeeded", "")
//	_ = c.WriteTextfile("/var/lib/node_exporter/xlsx2parquet.prom")
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ajitpratap0/xlsx2parquet/pkg/errors"
)

// Namespace prefixes every metric name
const Namespace = "xlsx2parquet"

// Collector holds the metrics of one conversion run
type Collector struct {
	registry      *prometheus.Registry
	rowsTotal     prometheus.Counter       // Data rows columnarized
	batchesTotal  prometheus.Counter       // Row batches read
	batchRows     prometheus.Histogram     // Rows per batch
	stageDuration *prometheus.HistogramVec // Time spent per stage
	outputBytes   prometheus.Gauge         // Size of the written file
	peakRSS       prometheus.Gauge         // Peak resident set size
	runs          *prometheus.CounterVec   // Finished runs by final state
	startTime     time.Time
}

// NewCollector creates a collector on a fresh registry
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		rowsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rows_total",
			Help:      "Total number of data rows converted",
		}),
		batchesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "batches_total",
			Help:      "Total number of row batches read from the workbook",
		}),
		batchRows: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "batch_rows",
			Help:      "Number of rows per batch",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 7),
		}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each conversion stage",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		outputBytes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "output_bytes",
			Help:      "Size of the written Parquet file in bytes",
		}),
		peakRSS: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "peak_rss_bytes",
			Help:      "Peak resident set size observed during the run",
		}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "runs_total",
			Help:      "Finished runs by final state and error type",
		}, []string{"state", "error_type"}),
		startTime: time.Now(),
	}
}

// Registry returns the collector's private registry
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// StartTime returns when the collector was created
func (c *Collector) StartTime() time.Time { return c.startTime }

// ObserveBatch records one batch of rows
func (c *Collector) ObserveBatch(rows int) {
	c.batchesTotal.Inc()
	c.rowsTotal.Add(float64(rows))
	c.batchRows.Observe(float64(rows))
}

// ObserveStage records time spent in a stage
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SetOutputBytes records the output file size
func (c *Collector) SetOutputBytes(n int64) { c.outputBytes.Set(float64(n)) }

// SetPeakRSS records the peak resident set size
func (c *Collector) SetPeakRSS(n uint64) { c.peakRSS.Set(float64(n)) }

// RunFinished counts the run under its final state. errType is empty on
// success.
func (c *Collector) RunFinished(state, errType string) {
	c.runs.WithLabelValues(state, errType).Inc()
}

// WriteTextfile writes every metric to path in the Prometheus text format.
// The file is written to a temporary name and renamed into place.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to write metrics textfile").
			WithDetail("path", path)
	}
	return nil
}

// Timer provides a simple timing mechanism for measuring stage durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the name the timer was created with
func (t *Timer) Name() string { return t.name }

// Stop returns the elapsed duration since creation. The timer can be
// stopped multiple times.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
