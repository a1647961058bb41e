// Package testutil provides testing utilities for xlsx2parquet
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// Sheet is one worksheet of a fixture workbook
type Sheet struct {
	Name string
	Rows [][]interface{}
}

// Styled is a fixture cell written with a number format. NumFmt is one of
// the built-in format ids; Format, when set, is a custom format code.
type Styled struct {
	Value  interface{}
	NumFmt int
	Format string
}

// WriteWorkbook saves a workbook with the given sheets into dir and returns
// its path. The first sheet replaces the default "Sheet1". Cell values are
// written with excelize's SetCellValue typing: ints and floats become numeric
// cells, bools boolean cells, nil an empty cell. Styled cells additionally
// get their number format.
func WriteWorkbook(t *testing.T, dir, name string, sheets ...Sheet) string {
	t.Helper()
	require.NotEmpty(t, sheets, "workbook needs at least one sheet")

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if s.Name != "" && s.Name != "Sheet1" {
				require.NoError(t, f.SetSheetName("Sheet1", s.Name))
			}
		} else {
			_, err := f.NewSheet(s.Name)
			require.NoError(t, err)
		}
		sheetName := s.Name
		if sheetName == "" {
			sheetName = "Sheet1"
		}
		for r, row := range s.Rows {
			if len(row) == 0 {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			values := make([]interface{}, len(row))
			for c, v := range row {
				values[c] = v
				if st, ok := v.(Styled); ok {
					values[c] = st.Value
				}
			}
			require.NoError(t, f.SetSheetRow(sheetName, cell, &values))
			for c, v := range row {
				if st, ok := v.(Styled); ok {
					setNumFmt(t, f, sheetName, c+1, r+1, st)
				}
			}
		}
	}

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func setNumFmt(t *testing.T, f *excelize.File, sheet string, col, row int, st Styled) {
	t.Helper()
	style := &excelize.Style{NumFmt: st.NumFmt}
	if st.Format != "" {
		code := st.Format
		style.CustomNumFmt = &code
	}
	id, err := f.NewStyle(style)
	require.NoError(t, err)
	cell, err := excelize.CoordinatesToCellName(col, row)
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, cell, cell, id))
}

// WriteRows saves a single-sheet workbook whose first row is header
func WriteRows(t *testing.T, dir, name string, header []string, rows [][]interface{}) string {
	t.Helper()
	all := make([][]interface{}, 0, len(rows)+1)
	h := make([]interface{}, len(header))
	for i, c := range header {
		h[i] = c
	}
	all = append(all, h)
	all = append(all, rows...)
	return WriteWorkbook(t, dir, name, Sheet{Rows: all})
}

// GenerateRows builds n data rows of the shape [id, name, amount, active]
// with a deterministic mix of values, including empty cells.
func GenerateRows(n int) [][]interface{} {
	rows := make([][]interface{}, n)
	for i := 0; i < n; i++ {
		var name interface{} = fmt.Sprintf("item-%d", i)
		if i%7 == 3 {
			name = nil
		}
		rows[i] = []interface{}{i + 1, name, float64(i) * 1.25, i%2 == 0}
	}
	return rows
}
