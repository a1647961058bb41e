// Package pool provides typed object pooling. The converter uses it to recycle
// row storage between batches, so the row-oriented form of the sheet never
// grows beyond one batch regardless of how many rows the sheet has.
//
// Example usage:
//
//	rows := pool.GetRows(batchSize)
//	defer pool.PutRows(rows)
package pool

import (
	"sync"
	"sync/atomic"

	"github.com/ajitpratap0/xlsx2parquet/pkg/models"
)

// Pool represents a generic object pool with type safety.
// It wraps sync.Pool with statistics tracking and an optional reset
// function. The pool is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	new   func() T
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		gets      int64
	}
}

// New creates a new typed pool with custom allocation and reset functions.
// reset, if non-nil, runs before an object goes back into the pool.
func New[T any](new func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{
		new:   new,
		reset: reset,
	}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return new()
	}
	return p
}

// Get retrieves an object from the pool, allocating when it is empty
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	atomic.AddInt64(&p.stats.gets, 1)
	return p.pool.Get().(T)
}

// Put resets obj and returns it to the pool
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns the number of objects allocated by the pool, currently
// checked out, and handed out in total
func (p *Pool[T]) Stats() (allocated, inUse, gets int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.gets)
}

// RowBuffer is reusable storage for one batch of rows
type RowBuffer struct {
	Rows []models.Row
}

// Reset clears every cell so no string payload stays reachable, keeping the
// row capacity for the next batch.
func (b *RowBuffer) Reset() {
	for i := range b.Rows {
		clear(b.Rows[i])
		b.Rows[i] = b.Rows[i][:0]
	}
	b.Rows = b.Rows[:0]
}

// Next returns the next row slot with length zero and at least width
// capacity, growing the buffer if needed.
func (b *RowBuffer) Next(width int) models.Row {
	n := len(b.Rows)
	if n < cap(b.Rows) {
		b.Rows = b.Rows[:n+1]
	} else {
		b.Rows = append(b.Rows, nil)
	}
	row := b.Rows[n]
	if cap(row) < width {
		row = make(models.Row, 0, width)
	}
	b.Rows[n] = row[:0]
	return b.Rows[n]
}

// Set stores the filled row back into slot i
func (b *RowBuffer) Set(i int, row models.Row) {
	b.Rows[i] = row
}

// RowPool recycles row buffers between batches
var RowPool = New(
	func() *RowBuffer { return &RowBuffer{} },
	func(b *RowBuffer) { b.Reset() },
)

// GetRows checks out an empty row buffer with room for capacity rows
func GetRows(capacity int) *RowBuffer {
	b := RowPool.Get()
	if cap(b.Rows) < capacity {
		b.Rows = make([]models.Row, 0, capacity)
	}
	return b
}

// PutRows returns a row buffer to the pool
func PutRows(b *RowBuffer) {
	if b != nil {
		RowPool.Put(b)
	}
}
