package columnar

import (
	"github.com/ajitpratap0/xlsx2parquet/pkg/errors"
	"github.com/ajitpratap0/xlsx2parquet/pkg/models"
)

// ProgressFunc observes the number of rows accumulated so far. total is 0
// when the source did not report a row count.
type ProgressFunc func(processed, total int64)

// SinkFunc receives each columnar batch instead of the accumulator keeping it
type SinkFunc func(*models.ColumnarBatch) error

// Option configures an Accumulator
type Option func(*Accumulator)

// WithProgress installs a progress observer called after every batch
func WithProgress(fn ProgressFunc) Option {
	return func(a *Accumulator) { a.progress = fn }
}

// WithSink forwards every columnar batch to fn. Batches handed to a sink are
// not retained and Batches returns nil.
func WithSink(fn SinkFunc) Option {
	return func(a *Accumulator) { a.sink = fn }
}

// Accumulator collects the columnar form of every row batch of a run.
// It is not safe for concurrent use.
type Accumulator struct {
	header    models.Header
	total     int64
	processed int64
	batches   []*models.ColumnarBatch
	progress  ProgressFunc
	sink      SinkFunc
}

// NewAccumulator creates an accumulator for a source with the given header
// and total data row count
func NewAccumulator(header models.Header, total int64, opts ...Option) *Accumulator {
	a := &Accumulator{header: header, total: total}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add columnarizes batch and records the result. The row batch is released
// before Add returns, whether or not it succeeds.
func (a *Accumulator) Add(batch *models.RowBatch) error {
	cb, err := Columnarize(batch, a.header)
	batch.Release()
	if err != nil {
		return err
	}

	if a.sink != nil {
		if err := a.sink(cb); err != nil {
			return err
		}
	} else {
		a.batches = append(a.batches, cb)
	}

	a.processed += int64(cb.NumRows)
	if a.progress != nil {
		a.progress(a.processed, a.total)
	}
	return nil
}

// Batches returns the retained columnar batches in arrival order
func (a *Accumulator) Batches() []*models.ColumnarBatch { return a.batches }

// Processed returns the number of rows added so far
func (a *Accumulator) Processed() int64 { return a.processed }

// Total returns the source row count the accumulator was created with
func (a *Accumulator) Total() int64 { return a.total }

// Columnarize transposes batch into one column per header entry. Column i
// holds row[i] of every row, in row order. Each column's Kind is the
// unification of its cells' kinds, and every cell is converted to it, so the
// same cell reads the same whichever batch it landed in.
//
// Values are copied out of the batch, so the batch may be released as soon
// as Columnarize returns. A row whose length differs from the header fails
// with column_count_mismatch.
func Columnarize(batch *models.RowBatch, header models.Header) (*models.ColumnarBatch, error) {
	width := header.Len()
	n := batch.Len()

	for i, row := range batch.Rows {
		if len(row) != width {
			return nil, errors.Newf(errors.ErrorTypeColumnCountMismatch,
				"row has %d cells, header has %d columns", len(row), width).
				WithDetail("row", batch.StartRow+i).
				WithDetail("cells", len(row)).
				WithDetail("columns", width)
		}
	}

	cb := &models.ColumnarBatch{
		StartRow: batch.StartRow,
		NumRows:  n,
		Columns:  make([]models.Column, width),
	}
	for c := 0; c < width; c++ {
		kind := models.KindNull
		for _, row := range batch.Rows {
			kind = models.Unify(kind, row[c].Kind())
		}
		values := make([]models.Value, n)
		for r, row := range batch.Rows {
			values[r] = row[c].Convert(kind)
		}
		cb.Columns[c] = models.Column{Name: header[c], Kind: kind, Values: values}
	}
	return cb, nil
}
