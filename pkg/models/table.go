package models

// Table is the complete columnar dataset: every column has NumRows values
// and a unified Kind. A Table is not modified after it has been assembled.
type Table struct {
	Columns []Column
	NumRows int
}

// NumCols returns the number of columns
func (t *Table) NumCols() int { return len(t.Columns) }

// Schema returns the table's column names and kinds
func (t *Table) Schema() Schema {
	s := make(Schema, len(t.Columns))
	for i, c := range t.Columns {
		s[i] = Field{Name: c.Name, Kind: c.Kind, Type: c.Kind.String()}
	}
	return s
}

// Row returns a copy of row i across all columns
func (t *Table) Row(i int) Row {
	row := make(Row, len(t.Columns))
	for c := range t.Columns {
		row[c] = t.Columns[c].Values[i]
	}
	return row
}

// Column returns the column with the given name
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Slice returns the columnar batch of rows [from, to). Values are shared
// with the table.
func (t *Table) Slice(from, to int) *ColumnarBatch {
	b := &ColumnarBatch{StartRow: from, NumRows: to - from, Columns: make([]Column, len(t.Columns))}
	for i, c := range t.Columns {
		b.Columns[i] = Column{Name: c.Name, Kind: c.Kind, Values: c.Values[from:to]}
	}
	return b
}

// Equal reports whether two tables have the same schema and cell values
func (t *Table) Equal(o *Table) bool {
	if t.NumRows != o.NumRows || len(t.Columns) != len(o.Columns) {
		return false
	}
	for i := range t.Columns {
		a, b := &t.Columns[i], &o.Columns[i]
		if a.Name != b.Name || a.Kind != b.Kind || len(a.Values) != len(b.Values) {
			return false
		}
		for r := range a.Values {
			if !a.Values[r].Equal(b.Values[r]) {
				return false
			}
		}
	}
	return true
}
