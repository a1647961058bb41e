// Package parquet writes conversion results as Parquet files and reads them
// back. Files are produced atomically: data goes to a temporary file next to
// the destination, which is renamed into place only after the footer has
// been written and synced. An interrupted or failed write leaves no file at
// the destination path.
package parquet

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	pq "github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"go.uber.org/zap"

	"github.com/ajitpratap0/xlsx2parquet/pkg/errors"
	"github.com/ajitpratap0/xlsx2parquet/pkg/models"
)

// DefaultRowGroupSize is the maximum number of rows per row group
const DefaultRowGroupSize = 64 * 1024

// WriterConfig configures a Parquet writer
type WriterConfig struct {
	// Compression is a codec name accepted by ParseCodec
	Compression string
	// RowGroupSize caps the rows in one row group
	RowGroupSize int
	Allocator    memory.Allocator
	Logger       *zap.Logger
}

// DefaultWriterConfig returns snappy compression and 64k-row row groups
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		Compression:  CodecSnappy,
		RowGroupSize: DefaultRowGroupSize,
	}
}

// Result describes a committed output file
type Result struct {
	Path      string `json:"path"`
	Bytes     int64  `json:"bytes"`
	Rows      int64  `json:"rows"`
	RowGroups int    `json:"row_groups"`
	Codec     string `json:"codec"`
}

// SizeMB returns the file size in megabytes
func (r Result) SizeMB() float64 { return float64(r.Bytes) / (1024 * 1024) }

// Write serializes table to path in row groups of cfg.RowGroupSize rows.
// It fails with write_failure on unsupported codecs and I/O errors and
// leaves no file at path when it fails.
func Write(ctx context.Context, table *models.Table, path string, cfg WriterConfig) (Result, error) {
	s, err := OpenStream(path, table.Schema(), cfg)
	if err != nil {
		return Result{}, err
	}

	step := s.rowGroupSize
	for from := 0; from < table.NumRows; from += step {
		to := from + step
		if to > table.NumRows {
			to = table.NumRows
		}
		if err := s.AppendBatch(ctx, table.Slice(from, to)); err != nil {
			s.Abort()
			return Result{}, err
		}
	}
	return s.Commit()
}

// Stream is a Parquet file being written one columnar batch at a time. Each
// appended batch becomes one or more row groups. Nothing is visible at the
// destination path until Commit succeeds.
type Stream struct {
	path         string
	tmp          *os.File
	fw           *pqarrow.FileWriter
	schema       models.Schema
	arrowSchema  *arrow.Schema
	mem          memory.Allocator
	codec        compress.Compression
	rowGroupSize int
	logger       *zap.Logger

	rows      int64
	rowGroups int
	done      bool
}

// sink hides the file's Close from the Parquet writer, which would otherwise
// close it before it can be synced.
type sink struct{ w io.Writer }

func (s sink) Write(p []byte) (int, error) { return s.w.Write(p) }

// OpenStream creates a temporary file in the directory of path and prepares
// a writer for schema.
func OpenStream(path string, schema models.Schema, cfg WriterConfig) (*Stream, error) {
	codec, err := ParseCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}
	if cfg.RowGroupSize <= 0 {
		cfg.RowGroupSize = DefaultRowGroupSize
	}
	if cfg.Allocator == nil {
		cfg.Allocator = memory.NewGoAllocator()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeWriteFailure, "failed to create temporary output file").
			WithDetail("path", path)
	}

	arrowSchema := ArrowSchema(schema)
	props := pq.NewWriterProperties(
		pq.WithCompression(codec),
		pq.WithMaxRowGroupLength(int64(cfg.RowGroupSize)),
		pq.WithDictionaryDefault(true),
		pq.WithCreatedBy("xlsx2parquet"),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(cfg.Allocator),
		pqarrow.WithStoreSchema(),
	)

	fw, err := pqarrow.NewFileWriter(arrowSchema, sink{tmp}, props, arrowProps)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, errors.Wrap(err, errors.ErrorTypeWriteFailure, "failed to create Parquet writer").
			WithDetail("path", path)
	}

	cfg.Logger.Debug("opened parquet output",
		zap.String("path", path),
		zap.String("tmp", tmp.Name()),
		zap.String("codec", CodecName(codec)),
		zap.Int("row_group_size", cfg.RowGroupSize),
		zap.Int("columns", len(schema)))

	return &Stream{
		path:         path,
		tmp:          tmp,
		fw:           fw,
		schema:       schema,
		arrowSchema:  arrowSchema,
		mem:          cfg.Allocator,
		codec:        codec,
		rowGroupSize: cfg.RowGroupSize,
		logger:       cfg.Logger,
	}, nil
}

// Schema returns the schema the stream was opened with
func (s *Stream) Schema() models.Schema { return s.schema }

// AppendBatch writes b as row groups. Each column's kind must be
// representable by the matching schema field, otherwise it fails with
// schema_mismatch.
func (s *Stream) AppendBatch(ctx context.Context, b *models.ColumnarBatch) error {
	if s.done {
		return errors.New(errors.ErrorTypeInternal, "append to a closed stream")
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeCanceled, "write canceled")
	}
	if err := s.check(b); err != nil {
		return err
	}
	if b.NumRows == 0 {
		return nil
	}

	rec := buildRecord(s.mem, s.arrowSchema, s.schema, b)
	defer rec.Release()

	if err := s.fw.Write(rec); err != nil {
		return errors.Wrap(err, errors.ErrorTypeWriteFailure, "failed to write row group").
			WithDetail("path", s.path).
			WithDetail("start_row", b.StartRow)
	}
	s.rows += int64(b.NumRows)
	s.rowGroups += (b.NumRows + s.rowGroupSize - 1) / s.rowGroupSize
	return nil
}

func (s *Stream) check(b *models.ColumnarBatch) error {
	if len(b.Columns) != len(s.schema) {
		return errors.Newf(errors.ErrorTypeSchemaMismatch,
			"batch has %d columns, output has %d", len(b.Columns), len(s.schema)).
			WithDetail("start_row", b.StartRow)
	}
	for i, f := range s.schema {
		c := &b.Columns[i]
		if c.Name != f.Name {
			return errors.Newf(errors.ErrorTypeSchemaMismatch,
				"column %d is named %q, output has %q", i, c.Name, f.Name).
				WithDetail("start_row", b.StartRow)
		}
		if models.Unify(c.Kind, f.Kind) != f.Kind {
			return errors.Newf(errors.ErrorTypeSchemaMismatch,
				"column %q of kind %s does not fit output kind %s", c.Name, c.Kind, f.Kind).
				WithDetail("start_row", b.StartRow)
		}
	}
	return nil
}

// Commit writes the footer, syncs the file and renames it into place
func (s *Stream) Commit() (Result, error) {
	if s.done {
		return Result{}, errors.New(errors.ErrorTypeInternal, "commit of a closed stream")
	}
	s.done = true
	tmpName := s.tmp.Name()

	fail := func(err error, msg string) (Result, error) {
		_ = s.tmp.Close()
		_ = os.Remove(tmpName)
		return Result{}, errors.Wrap(err, errors.ErrorTypeWriteFailure, msg).WithDetail("path", s.path)
	}

	if err := s.fw.Close(); err != nil {
		return fail(err, "failed to finish Parquet file")
	}
	if err := s.tmp.Sync(); err != nil {
		return fail(err, "failed to sync output file")
	}
	if err := s.tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return Result{}, errors.Wrap(err, errors.ErrorTypeWriteFailure, "failed to close output file").
			WithDetail("path", s.path)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return Result{}, errors.Wrap(err, errors.ErrorTypeWriteFailure, "failed to move output into place").
			WithDetail("path", s.path)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return Result{}, errors.Wrap(err, errors.ErrorTypeWriteFailure, "failed to stat output file").
			WithDetail("path", s.path)
	}

	res := Result{
		Path:      s.path,
		Bytes:     info.Size(),
		Rows:      s.rows,
		RowGroups: s.rowGroups,
		Codec:     CodecName(s.codec),
	}
	s.logger.Debug("committed parquet output",
		zap.String("path", res.Path),
		zap.Int64("bytes", res.Bytes),
		zap.Int64("rows", res.Rows),
		zap.Int("row_groups", res.RowGroups))
	return res, nil
}

// Abort discards everything written so far. It is a no-op after Commit.
func (s *Stream) Abort() {
	if s.done {
		return
	}
	s.done = true
	_ = s.fw.Close()
	_ = s.tmp.Close()
	if err := os.Remove(s.tmp.Name()); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove temporary output", zap.String("tmp", s.tmp.Name()), zap.Error(err))
	}
}
