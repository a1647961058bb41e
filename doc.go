// Package xlsx2parquet converts the first sheet of an Excel workbook into a
// single Parquet file while holding only a bounded number of rows in
// row-oriented form at any time.
//
// # Architecture
//
// Data flows strictly forward through four stages, driven by
// internal/pipeline.Converter:
//
//  1. Reader (pkg/source/xlsx): streams data rows from the first sheet in
//     batches of at most batch_size rows. Cells are decoded into typed
//     values; short rows are padded with nulls.
//
//  2. Accumulator (pkg/columnar): transposes each row batch into one column
//     per header cell and releases the row storage back to its pool before
//     the next batch is read.
//
//  3. Assembler (pkg/columnar): concatenates the columnar batches in read
//     order, unifying each column's kind (int and float become float, date
//     and timestamp become timestamp, anything else mixed becomes string).
//
//  4. Writer (pkg/formats/parquet): writes the table through Apache Arrow to
//     a temporary file, syncs it and renames it into place.
//
// The stream strategy replaces steps 3 and 4 with a schema scan pass and a
// writer that appends every columnar batch as it arrives, bounding total
// memory by the batch size.
//
// # Quick Start
//
//	xlsx2parquet convert sales.xlsx                      # writes sales.parquet
//	xlsx2parquet convert sales.xlsx -o out.parquet --compression zstd
//	xlsx2parquet convert big.xlsx --strategy stream --batch-size 5000 --pipelined
//	xlsx2parquet inspect out.parquet
//
// From Go:
//
//	cfg := config.NewDefaultConfig()
//	conv := pipeline.NewConverter(cfg.Conversion, pipeline.WithLogger(logger.Get()))
//	report, err := conv.Run(ctx, "sales.xlsx", "sales.parquet")
//
// # Key Packages
//
//	pkg/source/xlsx      - Workbook reader with cell type inference
//	pkg/columnar         - Accumulator, schema builder and assembler
//	pkg/formats/parquet  - Atomic Parquet writer, reader and inspector
//	pkg/models           - Values, batches, columns and tables
//	pkg/pool             - Typed object pools for row storage
//	pkg/config           - YAML, environment and flag configuration
//	pkg/errors           - Typed errors shared by every stage
//	pkg/logger           - Structured logging
//	pkg/metrics          - Prometheus metrics for a run
//	pkg/observability    - OpenTelemetry spans per stage
//	pkg/performance      - Resource sampling and pprof profiles
//
// # Configuration
//
// Settings come from defaults, an optional YAML file (--config) with
// ${VAR_NAME} substitution, XLSX2PARQUET_* environment variables and
// command-line flags, in increasing order of precedence.
package xlsx2parquet
