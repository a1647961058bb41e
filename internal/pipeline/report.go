package pipeline

import (
	"os"
	"time"

	"github.com/ajitpratap0/xlsx2parquet/pkg/errors"
	"github.com/ajitpratap0/xlsx2parquet/pkg/json"
	"github.com/ajitpratap0/xlsx2parquet/pkg/models"
)

// Report summarizes one conversion run. A report is returned for failed
// runs too, with State, Error and ErrorType set.
type Report struct {
	RunID         string        `json:"run_id"`
	Input         string        `json:"input"`
	Output        string        `json:"output"`
	Sheet         string        `json:"sheet,omitempty"`
	IgnoredSheets []string      `json:"ignored_sheets,omitempty"`
	Strategy      string        `json:"strategy"`
	Pipelined     bool          `json:"pipelined"`
	BatchSize     int           `json:"batch_size"`
	Codec         string        `json:"codec"`
	Rows          int64         `json:"rows"`
	Batches       int           `json:"batches"`
	RowGroups     int           `json:"row_groups"`
	Bytes         int64         `json:"bytes"`
	SizeMB        float64       `json:"size_mb"`
	Schema        models.Schema `json:"schema,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration_ns"`
	PeakRSS       uint64        `json:"peak_rss_bytes"`
	State         State         `json:"state"`
	Error         string        `json:"error,omitempty"`
	ErrorType     string        `json:"error_type,omitempty"`
	Transitions   []Transition  `json:"transitions"`
}

// Succeeded reports whether the run finished without error
func (r *Report) Succeeded() bool { return r.State == StateSucceeded }

// WriteJSON writes the report to path as indented JSON
func (r *Report) WriteJSON(path string) error {
	f, err := os.Create(path) //nolint:gosec // G304: path is supplied by the operator
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create report").
			WithDetail("path", path)
	}
	if err := json.WriteIndented(f, r); err != nil {
		_ = f.Close()
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to write report").
			WithDetail("path", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to close report").
			WithDetail("path", path)
	}
	return nil
}
