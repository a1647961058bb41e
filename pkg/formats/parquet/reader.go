package parquet

import (
	"context"
	"os"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/xlsx2parquet/pkg/errors"
	"github.com/ajitpratap0/xlsx2parquet/pkg/models"
)

// ReadTable reads a Parquet file into a table. Dates and timestamps come back
// without their source text.
func ReadTable(ctx context.Context, path string) (*models.Table, error) {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSourceUnreadable, "failed to open Parquet file").
			WithDetail("path", path)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSourceUnreadable, "failed to create Arrow reader").
			WithDetail("path", path)
	}

	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSourceUnreadable, "failed to read table").
			WithDetail("path", path)
	}
	defer tbl.Release()

	schema, err := fromArrowSchema(tbl.Schema())
	if err != nil {
		return nil, err
	}

	rows := int(tbl.NumRows())
	out := &models.Table{Columns: make([]models.Column, len(schema)), NumRows: rows}
	for i, f := range schema {
		out.Columns[i] = models.Column{Name: f.Name, Kind: f.Kind, Values: make([]models.Value, 0, rows)}
	}

	tr := array.NewTableReader(tbl, 0)
	defer tr.Release()
	for tr.Next() {
		rec := tr.Record()
		for i := range out.Columns {
			values, err := appendColumn(out.Columns[i].Values, rec.Column(i))
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeSourceUnreadable, "failed to decode column").
					WithDetail("column", out.Columns[i].Name)
			}
			out.Columns[i].Values = values
		}
	}
	if err := tr.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSourceUnreadable, "failed to read records").
			WithDetail("path", path)
	}
	return out, nil
}

// Info summarizes a Parquet file from its footer
type Info struct {
	Path      string        `json:"path"`
	Bytes     int64         `json:"bytes"`
	Rows      int64         `json:"rows"`
	RowGroups []int64       `json:"row_groups"`
	Codec     string        `json:"codec"`
	Schema    models.Schema `json:"schema"`
}

// Inspect reads the footer of a Parquet file without decoding any data
func Inspect(path string) (*Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSourceUnreadable, "failed to stat Parquet file").
			WithDetail("path", path)
	}

	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSourceUnreadable, "failed to open Parquet file").
			WithDetail("path", path)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSourceUnreadable, "failed to create Arrow reader").
			WithDetail("path", path)
	}
	sc, err := fr.Schema()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSourceUnreadable, "failed to read schema").
			WithDetail("path", path)
	}
	schema, err := fromArrowSchema(sc)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Path:   path,
		Bytes:  st.Size(),
		Rows:   rdr.NumRows(),
		Schema: schema,
	}

	md := rdr.MetaData()
	for i := 0; i < rdr.NumRowGroups(); i++ {
		rg := md.RowGroup(i)
		info.RowGroups = append(info.RowGroups, rg.NumRows())
		if info.Codec == "" && rg.NumColumns() > 0 {
			cc, err := rg.ColumnChunk(0)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeSourceUnreadable, "failed to read column chunk metadata").
					WithDetail("path", path)
			}
			info.Codec = CodecName(cc.Compression())
		}
	}
	return info, nil
}
