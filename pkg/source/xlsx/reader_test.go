package xlsx

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/xlsx2parquet/pkg/compression"
	"github.com/ajitpratap0/xlsx2parquet/pkg/errors"
	"github.com/ajitpratap0/xlsx2parquet/pkg/models"
	"github.com/ajitpratap0/xlsx2parquet/pkg/testutil"
)

func openTest(t *testing.T, path string) *Reader {
	t.Helper()
	opts := DefaultOptions()
	opts.Logger = testutil.TestLogger(t)
	r, err := Open(context.Background(), path, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func readAll(t *testing.T, r *Reader, batchSize int) ([]models.Row, []int) {
	t.Helper()
	var rows []models.Row
	var sizes []int
	for {
		b, err := r.NextBatch(context.Background(), batchSize)
		if err == io.EOF {
			return rows, sizes
		}
		require.NoError(t, err)
		sizes = append(sizes, b.Len())
		for _, row := range b.Rows {
			rows = append(rows, append(models.Row(nil), row...))
		}
		b.Release()
	}
}

func TestReaderExampleScenario(t *testing.T) {
	path := testutil.WriteRows(t, t.TempDir(), "example.xlsx",
		[]string{"id", "name", "amount"},
		[][]interface{}{{1, "A", 10.5}, {2, "B", 20.0}})

	r := openTest(t, path)
	assert.Equal(t, models.Header{"id", "name", "amount"}, r.Header())
	assert.Equal(t, int64(2), r.TotalRows())
	assert.Equal(t, "Sheet1", r.Sheet())
	assert.Empty(t, r.IgnoredSheets())

	b, err := r.NextBatch(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, b.StartRow)
	require.Equal(t, 1, b.Len())
	assert.Equal(t, models.Row{models.Int(1), models.String("A"), models.Float(10.5)}, b.Rows[0])
	b.Release()

	b, err = r.NextBatch(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, b.StartRow)
	assert.Equal(t, models.Row{models.Int(2), models.String("B"), models.Int(20)}, b.Rows[0])
	b.Release()

	_, err = r.NextBatch(context.Background(), 1)
	assert.Equal(t, io.EOF, err)
	_, err = r.NextBatch(context.Background(), 1)
	assert.Equal(t, io.EOF, err, "end marker is sticky")
}

func TestReaderBatchSizes(t *testing.T) {
	path := testutil.WriteRows(t, t.TempDir(), "batches.xlsx",
		[]string{"id", "name", "amount", "active"}, testutil.GenerateRows(10))

	r := openTest(t, path)
	rows, sizes := readAll(t, r, 4)
	assert.Equal(t, []int{4, 4, 2}, sizes)
	require.Len(t, rows, 10)
	for i, row := range rows {
		require.Len(t, row, 4)
		assert.Equal(t, models.Int(int64(i+1)), row[0], "row %d out of order", i)
	}
}

func TestReaderPadsShortRows(t *testing.T) {
	path := testutil.WriteRows(t, t.TempDir(), "ragged.xlsx",
		[]string{"a", "b", "c"},
		[][]interface{}{{1}, {}, {1, 2, 3, 4}})

	r := openTest(t, path)
	rows, _ := readAll(t, r, 10)
	require.Len(t, rows, 3)
	assert.Equal(t, models.Row{models.Int(1), models.Null(), models.Null()}, rows[0])
	assert.Equal(t, models.Row{models.Null(), models.Null(), models.Null()}, rows[1])
	assert.Len(t, rows[2], 4, "longer rows are passed through")
}

func TestReaderEmptySource(t *testing.T) {
	path := testutil.WriteRows(t, t.TempDir(), "header-only.xlsx", []string{"id", "name"}, nil)

	_, err := Open(context.Background(), path, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeEmptySource), "got %v", err)
}

func TestReaderSourceUnreadable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip archive"), 0o600))

	_, err := Open(context.Background(), path, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSourceUnreadable), "got %v", err)

	_, err = Open(context.Background(), filepath.Join(dir, "missing.xlsx"), DefaultOptions())
	assert.True(t, errors.IsType(err, errors.ErrorTypeSourceUnreadable), "got %v", err)
}

func TestReaderIgnoredSheets(t *testing.T) {
	path := testutil.WriteWorkbook(t, t.TempDir(), "multi.xlsx",
		testutil.Sheet{Name: "Data", Rows: [][]interface{}{{"x"}, {1}}},
		testutil.Sheet{Name: "Notes", Rows: [][]interface{}{{"ignored"}}},
	)

	r := openTest(t, path)
	assert.Equal(t, "Data", r.Sheet())
	assert.Equal(t, []string{"Notes"}, r.IgnoredSheets())
}

func TestReaderHeaderNormalization(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		want  models.Header
	}{
		{"blank and repeated", []string{"id", "", "id", " name "}, models.Header{"id", "column_2", "id_2", "name"}},
		{"suffix already used", []string{"a", "a_2", "a"}, models.Header{"a", "a_2", "a_3"}},
		{"suffix used later", []string{"a", "a", "a_2"}, models.Header{"a", "a_3", "a_2"}},
		{"repeated three times", []string{"x", "x", "x"}, models.Header{"x", "x_2", "x_3"}},
		{"blank collides with name", []string{"column_2", ""}, models.Header{"column_2", "column_2_2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeHeader(tt.cells)
			assert.Equal(t, tt.want, got)

			seen := make(map[string]bool, len(got))
			for _, n := range got {
				assert.False(t, seen[n], "duplicate column %q", n)
				seen[n] = true
			}
		})
	}
}

func TestReaderWithoutTypeInference(t *testing.T) {
	path := testutil.WriteRows(t, t.TempDir(), "text.xlsx",
		[]string{"id"}, [][]interface{}{{1}})

	opts := DefaultOptions()
	opts.InferTypes = false
	opts.CountRows = false
	r, err := Open(context.Background(), path, opts)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, int64(0), r.TotalRows())
	rows, _ := readAll(t, r, 10)
	assert.Equal(t, []models.Row{{models.String("1")}}, rows)
}

func TestReaderCompressedInput(t *testing.T) {
	dir := t.TempDir()
	plain := testutil.WriteRows(t, dir, "plain.xlsx", []string{"id"}, [][]interface{}{{1}, {2}})
	data, err := os.ReadFile(plain)
	require.NoError(t, err)

	path := filepath.Join(dir, "packed.xlsx.zst")
	fh, err := os.Create(path)
	require.NoError(t, err)
	w, err := compression.NewWriter(fh, compression.Zstd)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, fh.Close())

	r := openTest(t, path)
	rows, _ := readAll(t, r, 10)
	assert.Equal(t, []models.Row{{models.Int(1)}, {models.Int(2)}}, rows)
}

func TestReaderCanceledContext(t *testing.T) {
	path := testutil.WriteRows(t, t.TempDir(), "cancel.xlsx", []string{"id"}, [][]interface{}{{1}})
	r := openTest(t, path)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.NextBatch(ctx, 10)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCanceled))
}

func TestReaderNumberFormatsKeepStoredValues(t *testing.T) {
	a, b := 0.1, 0.2
	path := testutil.WriteRows(t, t.TempDir(), "formats.xlsx",
		[]string{"amount", "pct", "raw", "big", "day", "at"},
		[][]interface{}{
			{
				testutil.Styled{Value: 10.5, NumFmt: 4},
				testutil.Styled{Value: 0.25, NumFmt: 9},
				a + b,
				1e20,
				testutil.Styled{Value: 45306.0, NumFmt: 14},
				testutil.Styled{Value: 45306.5, Format: "yyyy-mm-dd hh:mm:ss"},
			},
			{
				testutil.Styled{Value: 1234, NumFmt: 4},
				testutil.Styled{Value: 0.5, NumFmt: 9},
				1.0 / 3,
				nil,
				nil,
				nil,
			},
		})

	r := openTest(t, path)
	rows, _ := readAll(t, r, 10)
	require.Len(t, rows, 2)

	assert.Equal(t, models.Float(10.5), rows[0][0], "#,##0.00 keeps the number")
	assert.Equal(t, models.Int(1234), rows[1][0])
	assert.Equal(t, models.Float(0.25), rows[0][1], "percent keeps the fraction")
	assert.Equal(t, models.Float(0.5), rows[1][1])
	assert.Equal(t, a+b, rows[0][2].AsFloat(), "no rounding to 15 digits")
	assert.Equal(t, 1.0/3, rows[1][2].AsFloat())
	assert.Equal(t, models.Float(1e20), rows[0][3])

	require.Equal(t, models.KindDate, rows[0][4].Kind())
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), rows[0][4].AsTime())
	require.Equal(t, models.KindTimestamp, rows[0][5].Kind())
	assert.Equal(t, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), rows[0][5].AsTime())
}

func TestReaderTextCellsStayText(t *testing.T) {
	path := testutil.WriteRows(t, t.TempDir(), "text.xlsx",
		[]string{"code", "flag", "until"},
		[][]interface{}{{"007", true, "9999-12-31"}, {"1.50", false, "1600-01-01"}})

	r := openTest(t, path)
	rows, _ := readAll(t, r, 10)
	require.Len(t, rows, 2)

	assert.Equal(t, models.String("007"), rows[0][0])
	assert.Equal(t, models.String("1.50"), rows[1][0])
	assert.Equal(t, models.Bool(true), rows[0][1])
	assert.Equal(t, models.Bool(false), rows[1][1])
	assert.Equal(t, time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC), rows[0][2].AsTime())
	assert.Equal(t, time.Date(1600, 1, 1, 0, 0, 0, 0, time.UTC), rows[1][2].AsTime())
}
