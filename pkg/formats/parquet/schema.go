package parquet

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/xlsx2parquet/pkg/errors"
	"github.com/ajitpratap0/xlsx2parquet/pkg/models"
)

// ArrowSchema converts a table schema to its Arrow form. Every field is
// nullable; an all-null column becomes the Arrow null type.
func ArrowSchema(schema models.Schema) *arrow.Schema {
	fields := make([]arrow.Field, len(schema))
	for i, f := range schema {
		fields[i] = arrow.Field{Name: f.Name, Type: arrowType(f.Kind), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(k models.Kind) arrow.DataType {
	switch k {
	case models.KindBool:
		return arrow.FixedWidthTypes.Boolean
	case models.KindInt:
		return arrow.PrimitiveTypes.Int64
	case models.KindFloat:
		return arrow.PrimitiveTypes.Float64
	case models.KindDate:
		return arrow.FixedWidthTypes.Date32
	case models.KindTimestamp:
		// sub-microsecond digits are truncated on write
		return arrow.FixedWidthTypes.Timestamp_us
	case models.KindString:
		return arrow.BinaryTypes.String
	default:
		return arrow.Null
	}
}

func kindOf(dt arrow.DataType) (models.Kind, bool) {
	switch dt.ID() {
	case arrow.NULL:
		return models.KindNull, true
	case arrow.BOOL:
		return models.KindBool, true
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32:
		return models.KindInt, true
	case arrow.FLOAT32, arrow.FLOAT64:
		return models.KindFloat, true
	case arrow.DATE32, arrow.DATE64:
		return models.KindDate, true
	case arrow.TIMESTAMP:
		return models.KindTimestamp, true
	case arrow.STRING, arrow.LARGE_STRING:
		return models.KindString, true
	default:
		return models.KindNull, false
	}
}

// fromArrowSchema converts an Arrow schema back to a table schema
func fromArrowSchema(sc *arrow.Schema) (models.Schema, error) {
	names := make([]string, sc.NumFields())
	kinds := make([]models.Kind, sc.NumFields())
	for i, f := range sc.Fields() {
		k, ok := kindOf(f.Type)
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeValidation, "column %q has unsupported type %s", f.Name, f.Type).
				WithDetail("column", f.Name)
		}
		names[i] = f.Name
		kinds[i] = k
	}
	return models.NewSchema(names, kinds), nil
}

// buildRecord copies a columnar batch into an Arrow record. Values are
// converted to the schema's kind; the caller releases the record.
func buildRecord(mem memory.Allocator, sc *arrow.Schema, schema models.Schema, b *models.ColumnarBatch) arrow.Record {
	rb := array.NewRecordBuilder(mem, sc)
	defer rb.Release()
	rb.Reserve(b.NumRows)

	for i, f := range schema {
		fb := rb.Field(i)
		for _, v := range b.Columns[i].Values {
			appendValue(fb, v, f.Kind)
		}
	}
	return rb.NewRecord()
}

func appendValue(fb array.Builder, v models.Value, kind models.Kind) {
	if v.IsNull() {
		fb.AppendNull()
		return
	}
	v = v.Convert(kind)

	switch b := fb.(type) {
	case *array.BooleanBuilder:
		b.Append(v.AsBool())
	case *array.Int64Builder:
		b.Append(v.AsInt())
	case *array.Float64Builder:
		b.Append(v.AsFloat())
	case *array.Date32Builder:
		b.Append(arrow.Date32FromTime(v.AsTime()))
	case *array.TimestampBuilder:
		b.Append(arrow.Timestamp(v.AsTime().UnixMicro()))
	case *array.StringBuilder:
		b.Append(v.Text())
	default:
		b.AppendNull()
	}
}

// appendColumn decodes rows of an Arrow array into values
func appendColumn(dst []models.Value, arr arrow.Array) ([]models.Value, error) {
	n := arr.Len()
	if arr.DataType().ID() == arrow.NULL {
		for i := 0; i < n; i++ {
			dst = append(dst, models.Null())
		}
		return dst, nil
	}
	for i := 0; i < n; i++ {
		if arr.IsNull(i) {
			dst = append(dst, models.Null())
			continue
		}
		switch c := arr.(type) {
		case *array.Boolean:
			dst = append(dst, models.Bool(c.Value(i)))
		case *array.Int8:
			dst = append(dst, models.Int(int64(c.Value(i))))
		case *array.Int16:
			dst = append(dst, models.Int(int64(c.Value(i))))
		case *array.Int32:
			dst = append(dst, models.Int(int64(c.Value(i))))
		case *array.Int64:
			dst = append(dst, models.Int(c.Value(i)))
		case *array.Uint8:
			dst = append(dst, models.Int(int64(c.Value(i))))
		case *array.Uint16:
			dst = append(dst, models.Int(int64(c.Value(i))))
		case *array.Uint32:
			dst = append(dst, models.Int(int64(c.Value(i))))
		case *array.Float32:
			dst = append(dst, models.Float(float64(c.Value(i))))
		case *array.Float64:
			dst = append(dst, models.Float(c.Value(i)))
		case *array.Date32:
			dst = append(dst, models.Date(c.Value(i).ToTime(), ""))
		case *array.Date64:
			dst = append(dst, models.Date(c.Value(i).ToTime(), ""))
		case *array.Timestamp:
			unit := c.DataType().(*arrow.TimestampType).Unit
			dst = append(dst, models.Timestamp(c.Value(i).ToTime(unit), ""))
		case *array.String:
			dst = append(dst, models.String(c.Value(i)))
		case *array.LargeString:
			dst = append(dst, models.String(c.Value(i)))
		default:
			return nil, errors.Newf(errors.ErrorTypeValidation, "unsupported array type %s", arr.DataType())
		}
	}
	return dst, nil
}
