package columnar

import (
	"github.com/ajitpratap0/xlsx2parquet/pkg/errors"
	"github.com/ajitpratap0/xlsx2parquet/pkg/models"
)

// SchemaBuilder folds the schemas of successive columnar batches into one.
// The first batch fixes column count and names; kinds are unified.
type SchemaBuilder struct {
	names   []string
	kinds   []models.Kind
	batches int
}

// Observe merges the schema of b. It fails with schema_mismatch when b
// disagrees with earlier batches on column count or names.
func (s *SchemaBuilder) Observe(b *models.ColumnarBatch) error {
	if s.batches == 0 {
		s.names = b.Names()
		s.kinds = make([]models.Kind, len(b.Columns))
		for i := range b.Columns {
			s.kinds[i] = b.Columns[i].Kind
		}
		s.batches++
		return nil
	}

	if len(b.Columns) != len(s.names) {
		return errors.Newf(errors.ErrorTypeSchemaMismatch,
			"batch has %d columns, expected %d", len(b.Columns), len(s.names)).
			WithDetail("batch", s.batches).
			WithDetail("start_row", b.StartRow)
	}
	for i := range b.Columns {
		if b.Columns[i].Name != s.names[i] {
			return errors.Newf(errors.ErrorTypeSchemaMismatch,
				"column %d is named %q, expected %q", i, b.Columns[i].Name, s.names[i]).
				WithDetail("batch", s.batches).
				WithDetail("start_row", b.StartRow)
		}
	}
	for i := range b.Columns {
		s.kinds[i] = models.Unify(s.kinds[i], b.Columns[i].Kind)
	}
	s.batches++
	return nil
}

// Schema returns the unified schema of every batch observed so far
func (s *SchemaBuilder) Schema() models.Schema {
	return models.NewSchema(s.names, s.kinds)
}

// Batches returns the number of batches observed
func (s *SchemaBuilder) Batches() int { return s.batches }

// Conform returns b with every column converted to the kind of the matching
// field in schema. Columns already of the right kind share their values with
// b. It fails with schema_mismatch when names differ or a column's kind
// cannot be represented by the schema's kind.
func Conform(b *models.ColumnarBatch, schema models.Schema) (*models.ColumnarBatch, error) {
	if len(b.Columns) != len(schema) {
		return nil, errors.Newf(errors.ErrorTypeSchemaMismatch,
			"batch has %d columns, schema has %d", len(b.Columns), len(schema)).
			WithDetail("start_row", b.StartRow)
	}

	out := &models.ColumnarBatch{StartRow: b.StartRow, NumRows: b.NumRows, Columns: make([]models.Column, len(schema))}
	for i, f := range schema {
		col := b.Columns[i]
		if col.Name != f.Name {
			return nil, errors.Newf(errors.ErrorTypeSchemaMismatch,
				"column %d is named %q, schema has %q", i, col.Name, f.Name).
				WithDetail("start_row", b.StartRow)
		}
		if models.Unify(col.Kind, f.Kind) != f.Kind {
			return nil, errors.Newf(errors.ErrorTypeSchemaMismatch,
				"column %q of kind %s does not fit schema kind %s", col.Name, col.Kind, f.Kind).
				WithDetail("start_row", b.StartRow)
		}
		out.Columns[i] = models.Column{Name: f.Name, Kind: f.Kind, Values: convertValues(col.Values, col.Kind, f.Kind)}
	}
	return out, nil
}

func convertValues(values []models.Value, from, to models.Kind) []models.Value {
	if from == to || from == models.KindNull {
		return values
	}
	out := make([]models.Value, len(values))
	for i, v := range values {
		out[i] = v.Convert(to)
	}
	return out
}

// Assemble concatenates batches into one table. Column i of the result is
// column i of every batch, in batch order, converted to the column's unified
// kind. It fails with schema_mismatch when two batches disagree on column
// count or names.
func Assemble(batches []*models.ColumnarBatch) (*models.Table, error) {
	if len(batches) == 0 {
		return nil, errors.New(errors.ErrorTypeEmptySource, "no batches to assemble")
	}

	var sb SchemaBuilder
	rows := 0
	for _, b := range batches {
		if err := sb.Observe(b); err != nil {
			return nil, err
		}
		rows += b.NumRows
	}
	schema := sb.Schema()

	table := &models.Table{Columns: make([]models.Column, len(schema)), NumRows: rows}
	for i, f := range schema {
		values := make([]models.Value, 0, rows)
		for _, b := range batches {
			col := &b.Columns[i]
			if col.Kind == f.Kind || col.Kind == models.KindNull {
				values = append(values, col.Values...)
				continue
			}
			for _, v := range col.Values {
				values = append(values, v.Convert(f.Kind))
			}
		}
		table.Columns[i] = models.Column{Name: f.Name, Kind: f.Kind, Values: values}
	}
	return table, nil
}
