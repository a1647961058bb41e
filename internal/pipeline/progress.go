package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/xlsx2parquet/pkg/metrics"
	"github.com/ajitpratap0/xlsx2parquet/pkg/performance"
)

const (
	defaultReportInterval = 10 * time.Second
	defaultSampleInterval = 100 * time.Millisecond
)

// ProgressReporter tracks the rows accumulated by a run and logs progress
// periodically while the run is active
type ProgressReporter struct {
	logger    *zap.Logger
	collector *metrics.Collector
	monitor   *performance.ResourceMonitor

	// Progress tracking
	totalRows     int64
	processedRows int64
	startTime     time.Time
	lastReport    time.Time
	lastSample    time.Time

	reportInterval time.Duration
	sampleInterval time.Duration
	mu             sync.Mutex

	// Reporting control
	stopCh  chan struct{}
	wg      sync.WaitGroup
	stopped bool
}

// NewProgressReporter creates a progress reporter. monitor may be nil, in
// which case no memory figures are reported.
func NewProgressReporter(logger *zap.Logger, collector *metrics.Collector, monitor *performance.ResourceMonitor) *ProgressReporter {
	now := time.Now()
	return &ProgressReporter{
		logger:         logger,
		collector:      collector,
		monitor:        monitor,
		startTime:      now,
		lastReport:     now,
		reportInterval: defaultReportInterval,
		sampleInterval: defaultSampleInterval,
		stopCh:         make(chan struct{}),
	}
}

// SetInterval changes how often progress is logged. It must be called
// before Start.
func (pr *ProgressReporter) SetInterval(d time.Duration) {
	if d > 0 {
		pr.reportInterval = d
	}
}

// Start begins periodic progress reporting
func (pr *ProgressReporter) Start() {
	pr.wg.Add(1)
	go func() {
		defer pr.wg.Done()
		ticker := time.NewTicker(pr.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-pr.stopCh:
				return
			case <-ticker.C:
				pr.reportCurrentProgress()
			}
		}
	}()
}

// Stop stops periodic reporting and logs the final summary. Calling Stop
// more than once has no further effect.
func (pr *ProgressReporter) Stop() {
	pr.mu.Lock()
	if pr.stopped {
		pr.mu.Unlock()
		return
	}
	pr.stopped = true
	pr.mu.Unlock()

	close(pr.stopCh)
	pr.wg.Wait()

	pr.sample(true)
	pr.reportFinalProgress()
}

// ReportProgress records the rows accumulated so far. It has the signature
// of columnar.ProgressFunc so it can observe an Accumulator directly.
func (pr *ProgressReporter) ReportProgress(processed, total int64) {
	atomic.StoreInt64(&pr.processedRows, processed)
	if total > 0 {
		atomic.StoreInt64(&pr.totalRows, total)
	}
	pr.sample(false)
}

// sample takes a resource sample unless one was taken recently
func (pr *ProgressReporter) sample(force bool) {
	if pr.monitor == nil {
		return
	}
	pr.mu.Lock()
	if !force && time.Since(pr.lastSample) < pr.sampleInterval {
		pr.mu.Unlock()
		return
	}
	pr.lastSample = time.Now()
	pr.mu.Unlock()

	pr.monitor.Sample()
	if pr.collector != nil {
		pr.collector.SetPeakRSS(pr.monitor.PeakRSS())
	}
}

// GetProgress returns current progress
func (pr *ProgressReporter) GetProgress() (processed, total int64) {
	return atomic.LoadInt64(&pr.processedRows), atomic.LoadInt64(&pr.totalRows)
}

// GetElapsedTime returns time since start
func (pr *ProgressReporter) GetElapsedTime() time.Duration {
	return time.Since(pr.startTime)
}

// GetThroughput returns the average rows per second since start
func (pr *ProgressReporter) GetThroughput() float64 {
	elapsed := time.Since(pr.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&pr.processedRows)) / elapsed
}

// GetETA estimates time remaining. It is 0 when the total is unknown.
func (pr *ProgressReporter) GetETA() time.Duration {
	processed, total := pr.GetProgress()
	if processed == 0 || total == 0 || processed >= total {
		return 0
	}

	rate := pr.GetThroughput()
	if rate == 0 {
		return 0
	}
	remaining := total - processed
	return time.Duration(float64(remaining) / rate * float64(time.Second))
}

// Snapshot returns the current progress
func (pr *ProgressReporter) Snapshot() ProgressSnapshot {
	processed, total := pr.GetProgress()
	s := ProgressSnapshot{
		ProcessedRows: processed,
		TotalRows:     total,
		Elapsed:       pr.GetElapsedTime(),
		Throughput:    pr.GetThroughput(),
		ETA:           pr.GetETA(),
	}
	if total > 0 {
		s.Percentage = float64(processed) / float64(total) * 100
	}
	if pr.monitor != nil {
		s.PeakRSS = pr.monitor.PeakRSS()
	}
	return s
}

// reportCurrentProgress logs current progress
func (pr *ProgressReporter) reportCurrentProgress() {
	s := pr.Snapshot()

	pr.mu.Lock()
	interval := time.Since(pr.lastReport)
	pr.lastReport = time.Now()
	pr.mu.Unlock()

	fields := []zap.Field{
		zap.Int64("processed", s.ProcessedRows),
		zap.Float64("rows_per_sec", s.Throughput),
		zap.Duration("elapsed", s.Elapsed),
		zap.Duration("interval", interval),
	}
	if s.TotalRows > 0 {
		fields = append(fields,
			zap.Int64("total", s.TotalRows),
			zap.Float64("percentage", s.Percentage),
			zap.Duration("eta", s.ETA),
		)
	}
	if s.PeakRSS > 0 {
		fields = append(fields, zap.Uint64("peak_rss", s.PeakRSS))
	}

	pr.logger.Info("progress update", fields...)
}

// reportFinalProgress logs final progress summary
func (pr *ProgressReporter) reportFinalProgress() {
	s := pr.Snapshot()

	fields := []zap.Field{
		zap.Int64("total_processed", s.ProcessedRows),
		zap.Duration("total_time", s.Elapsed),
		zap.Float64("avg_rows_per_sec", s.Throughput),
	}
	if s.TotalRows > 0 {
		fields = append(fields,
			zap.Int64("expected_total", s.TotalRows),
			zap.Float64("completion_percentage", s.Percentage),
		)
	}
	if s.PeakRSS > 0 {
		fields = append(fields, zap.Uint64("peak_rss", s.PeakRSS))
	}

	pr.logger.Info("processing completed", fields...)
}

// ProgressSnapshot represents a point-in-time progress snapshot
type ProgressSnapshot struct {
	ProcessedRows int64         `json:"processed_rows"`
	TotalRows     int64         `json:"total_rows"`
	Percentage    float64       `json:"percentage"`
	Elapsed       time.Duration `json:"elapsed"`
	Throughput    float64       `json:"rows_per_sec"`
	ETA           time.Duration `json:"eta"`
	PeakRSS       uint64        `json:"peak_rss"`
}
