// Package xlsx reads the first sheet of a spreadsheet workbook as a stream of
// bounded row batches. The first row is the header; every later row is data.
//
// Rows are pulled from the sheet XML one at a time through two excelize
// streaming iterators kept in lock-step, one yielding the stored cell values
// and one the text the sheet displays. The reader never materializes the
// whole sheet: only the rows of the batch being built are held, in pooled
// storage that is recycled when the consumer releases the batch.
package xlsx

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ajitpratap0/xlsx2parquet/pkg/compression"
	"github.com/ajitpratap0/xlsx2parquet/pkg/errors"
	"github.com/ajitpratap0/xlsx2parquet/pkg/models"
	"github.com/ajitpratap0/xlsx2parquet/pkg/pool"
)

// Options configures a Reader
type Options struct {
	// InferTypes decodes numbers, booleans and dates from cell text. When
	// false every non-empty cell is read as a string.
	InferTypes bool
	// CountRows runs a counting pass at Open so TotalRows is known up front.
	// When false TotalRows reports 0.
	CountRows bool
	Logger    *zap.Logger
}

// DefaultOptions returns the options used by the converter
func DefaultOptions() Options {
	return Options{InferTypes: true, CountRows: true}
}

// Reader streams data rows from the first sheet of a workbook
type Reader struct {
	path    string
	opts    Options
	logger  *zap.Logger
	file    *excelize.File
	rows    *sheetRows
	decoder cellDecoder
	sheet   string
	ignored []string
	header  models.Header
	total   int64

	// nextRow is the 1-based sheet row number of the next unread data row
	nextRow int
	// positioned means rows.Next already moved onto an unread row
	positioned bool
	done       bool
}

// Open opens the workbook at path, reads the header row of its first sheet
// and positions the reader on the first data row.
//
// It fails with source_unreadable when the file is not a readable workbook
// and with empty_source when the first sheet has no data rows.
func Open(ctx context.Context, path string, opts Options) (*Reader, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeCanceled, "open canceled")
	}

	f, err := openWorkbook(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSourceUnreadable, "failed to open workbook").
			WithDetail("path", path)
	}

	r := &Reader{
		path:    path,
		opts:    opts,
		logger:  logger,
		file:    f,
		decoder: cellDecoder{infer: opts.InferTypes},
		nextRow: 2,
	}
	if err := r.init(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func openWorkbook(path string) (*excelize.File, error) {
	alg, _ := compression.Detect(path)
	if alg == compression.None {
		return excelize.OpenFile(path)
	}

	fh, err := os.Open(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	rc, err := compression.NewReader(fh, alg)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return excelize.OpenReader(rc)
}

func (r *Reader) init() error {
	sheets := r.file.GetSheetList()
	if len(sheets) == 0 {
		return errors.New(errors.ErrorTypeSourceUnreadable, "workbook has no sheets").
			WithDetail("path", r.path)
	}
	r.sheet = sheets[0]
	r.ignored = append([]string(nil), sheets[1:]...)
	if len(r.ignored) > 0 {
		r.logger.Warn("workbook has more than one sheet, only the first is converted",
			zap.String("sheet", r.sheet),
			zap.Strings("ignored_sheets", r.ignored))
	}

	if props, err := r.file.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		r.decoder.date1904 = *props.Date1904
	}

	rows, err := openSheetRows(r.file, r.sheet)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSourceUnreadable, "failed to open rows iterator").
			WithDetail("sheet", r.sheet)
	}
	r.rows = rows

	if !rows.Next() {
		if err := rows.Error(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeSourceUnreadable, "failed to read header row").
				WithDetail("sheet", r.sheet)
		}
		return errors.New(errors.ErrorTypeEmptySource, "sheet has no header row").
			WithDetail("sheet", r.sheet)
	}
	_, cells, err := rows.Columns()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSourceUnreadable, "failed to read header row").
			WithDetail("sheet", r.sheet)
	}
	if len(cells) == 0 {
		return errors.New(errors.ErrorTypeSourceUnreadable, "header row is empty").
			WithDetail("sheet", r.sheet)
	}
	r.header = normalizeHeader(cells)

	if !rows.Next() {
		if err := rows.Error(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeSourceUnreadable, "failed to read sheet rows").
				WithDetail("sheet", r.sheet)
		}
		return errors.New(errors.ErrorTypeEmptySource, "sheet has no data rows").
			WithDetail("sheet", r.sheet)
	}
	r.positioned = true

	total, err := r.countRows()
	if err != nil {
		return err
	}
	r.total = total

	r.logger.Debug("opened workbook",
		zap.String("path", r.path),
		zap.String("sheet", r.sheet),
		zap.Int("columns", len(r.header)),
		zap.Int64("total_rows", r.total))
	return nil
}

// countRows counts the data rows with a separate streaming pass over the
// sheet. Reading the sheet dimension instead would parse the whole worksheet
// into memory.
func (r *Reader) countRows() (int64, error) {
	if !r.opts.CountRows {
		return 0, nil
	}

	rows, err := r.file.Rows(r.sheet)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeSourceUnreadable, "failed to count rows").
			WithDetail("sheet", r.sheet)
	}
	defer rows.Close()

	var n int64
	for rows.Next() {
		n++
	}
	if err := rows.Error(); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeSourceUnreadable, "failed to count rows").
			WithDetail("sheet", r.sheet)
	}
	if n > 0 {
		n-- // header
	}
	return n, nil
}

// normalizeHeader names blank header cells column_<n> and suffixes repeated
// names with the lowest _<k> (k >= 2) not already taken, so every column has
// a unique, non-empty name.
func normalizeHeader(cells []string) models.Header {
	header := make(models.Header, len(cells))
	taken := make(map[string]bool, len(cells))
	for _, c := range cells {
		if name := strings.TrimSpace(c); name != "" {
			taken[name] = true
		}
	}

	used := make(map[string]bool, len(cells))
	for i, c := range cells {
		name := strings.TrimSpace(c)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		if used[name] {
			base := name
			for k := 2; used[name] || taken[name]; k++ {
				name = fmt.Sprintf("%s_%d", base, k)
			}
		}
		used[name] = true
		header[i] = name
	}
	return header
}

// Header returns the column names of the first sheet
func (r *Reader) Header() models.Header { return r.header }

// TotalRows returns the number of data rows (excluding the header), or 0
// when counting was disabled
func (r *Reader) TotalRows() int64 { return r.total }

// Sheet returns the name of the sheet being converted
func (r *Reader) Sheet() string { return r.sheet }

// IgnoredSheets returns the names of the sheets after the first, which are
// not converted
func (r *Reader) IgnoredSheets() []string { return r.ignored }

// NextBatch returns up to maxRows consecutive data rows following the last
// row returned. Rows shorter than the header are padded with nulls; longer
// rows are passed through as-is. It returns io.EOF once every data row has
// been returned.
//
// The batch's storage is pooled: the caller must Release it once the rows
// have been consumed.
func (r *Reader) NextBatch(ctx context.Context, maxRows int) (*models.RowBatch, error) {
	if maxRows <= 0 {
		return nil, errors.Newf(errors.ErrorTypeValidation, "batch size must be positive, got %d", maxRows)
	}
	if r.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeCanceled, "read canceled")
	}

	width := len(r.header)
	buf := pool.GetRows(maxRows)
	start := r.nextRow

	for len(buf.Rows) < maxRows {
		if !r.positioned && !r.rows.Next() {
			r.done = true
			break
		}
		r.positioned = false

		stored, display, err := r.rows.Columns()
		if err != nil {
			pool.PutRows(buf)
			return nil, errors.Wrap(err, errors.ErrorTypeSourceUnreadable, "failed to read row").
				WithDetail("sheet", r.sheet).
				WithDetail("row", r.nextRow)
		}

		row := buf.Next(width)
		for i, n := 0, max(len(stored), len(display)); i < n; i++ {
			row = append(row, r.decoder.decode(cellAt(stored, i), cellAt(display, i)))
		}
		for len(row) < width {
			row = append(row, models.Null())
		}
		buf.Set(len(buf.Rows)-1, row)
		r.nextRow++
	}

	if r.done {
		if err := r.rows.Error(); err != nil {
			pool.PutRows(buf)
			return nil, errors.Wrap(err, errors.ErrorTypeSourceUnreadable, "failed to read sheet rows").
				WithDetail("sheet", r.sheet)
		}
	}

	if len(buf.Rows) == 0 {
		pool.PutRows(buf)
		return nil, io.EOF
	}

	return models.NewRowBatch(start, buf.Rows, func(*models.RowBatch) { pool.PutRows(buf) }), nil
}

// sheetRows walks one sheet with two excelize iterators in lock-step. Both
// see the same rows, including the empty rows excelize synthesizes for gaps.
type sheetRows struct {
	stored  *excelize.Rows
	display *excelize.Rows
}

func openSheetRows(f *excelize.File, sheet string) (*sheetRows, error) {
	stored, err := f.Rows(sheet)
	if err != nil {
		return nil, err
	}
	display, err := f.Rows(sheet)
	if err != nil {
		_ = stored.Close()
		return nil, err
	}
	return &sheetRows{stored: stored, display: display}, nil
}

func (s *sheetRows) Next() bool {
	ok := s.stored.Next()
	return s.display.Next() && ok
}

// Columns returns the stored values and the displayed text of the current row
func (s *sheetRows) Columns() (stored, display []string, err error) {
	stored, err = s.stored.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, err
	}
	display, err = s.display.Columns()
	if err != nil {
		return nil, nil, err
	}
	return stored, display, nil
}

func (s *sheetRows) Error() error {
	if err := s.stored.Error(); err != nil {
		return err
	}
	return s.display.Error()
}

func (s *sheetRows) Close() error {
	err := s.stored.Close()
	if derr := s.display.Close(); err == nil {
		err = derr
	}
	return err
}

func cellAt(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}

// Close releases the row iterators and the workbook
func (r *Reader) Close() error {
	var firstErr error
	if r.rows != nil {
		if err := r.rows.Close(); err != nil {
			firstErr = err
		}
		r.rows = nil
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.file = nil
	}
	return firstErr
}
