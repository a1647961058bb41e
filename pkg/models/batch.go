package models

// Header is the ordered list of column names read from the first sheet row
type Header []string

// Len returns the column count
func (h Header) Len() int { return len(h) }

// Row is one spreadsheet row
type Row []Value

// RowBatch is a bounded run of consecutive source rows. Its storage belongs
// to whoever produced it; consumers must call Release once the rows have been
// copied out, after which Rows is nil.
type RowBatch struct {
	// StartRow is the 1-based sheet row number of Rows[0]
	StartRow int
	Rows     []Row

	release func(*RowBatch)
}

// NewRowBatch wraps rows. release, if non-nil, is invoked once by Release to
// hand the storage back to its owner.
func NewRowBatch(startRow int, rows []Row, release func(*RowBatch)) *RowBatch {
	return &RowBatch{StartRow: startRow, Rows: rows, release: release}
}

// Len returns the number of rows in the batch
func (b *RowBatch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Rows)
}

// Release hands the row storage back to its owner. It is safe to call more
// than once.
func (b *RowBatch) Release() {
	if b == nil {
		return
	}
	if b.release != nil {
		b.release(b)
		b.release = nil
	}
	b.Rows = nil
}

// Column is a named sequence of values sharing one Kind. Every non-null
// value has exactly that Kind.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// Len returns the number of values in the column
func (c *Column) Len() int { return len(c.Values) }

// Field is a column name and kind
type Field struct {
	Name string `json:"name"`
	Kind Kind   `json:"-"`
	Type string `json:"type"`
}

// Schema is the ordered set of fields of a batch or table
type Schema []Field

// NewSchema builds a schema from parallel name and kind slices
func NewSchema(names []string, kinds []Kind) Schema {
	s := make(Schema, len(names))
	for i, n := range names {
		s[i] = Field{Name: n, Kind: kinds[i], Type: kinds[i].String()}
	}
	return s
}

// Names returns the field names in order
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// ColumnarBatch is a RowBatch transposed into one Column per header entry
type ColumnarBatch struct {
	StartRow int
	NumRows  int
	Columns  []Column
}

// Names returns the column names in order
func (b *ColumnarBatch) Names() []string {
	names := make([]string, len(b.Columns))
	for i := range b.Columns {
		names[i] = b.Columns[i].Name
	}
	return names
}

// Schema returns the batch's column names and kinds
func (b *ColumnarBatch) Schema() Schema {
	s := make(Schema, len(b.Columns))
	for i, c := range b.Columns {
		s[i] = Field{Name: c.Name, Kind: c.Kind, Type: c.Kind.String()}
	}
	return s
}
