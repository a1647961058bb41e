// Package columnar turns streamed row batches into columns and joins the
// columns into one table.
//
// # Overview
//
// The package holds the two middle stages of a conversion:
//
//   - Accumulator: transposes each RowBatch into a ColumnarBatch, releases
//     the row storage before returning, and reports progress.
//   - Assemble: concatenates the accumulated batches in arrival order into a
//     models.Table whose columns carry one unified Kind each.
//
// # Kinds
//
// A column's Kind is the Unify of every non-null cell in it. Batches are
// columnarized independently, so the same column may come out of two
// batches with different kinds (int in one, float in the next). SchemaBuilder
// folds those per-batch kinds into the table schema and Conform rewrites a
// batch's values to it.
//
// # Usage Example
//
//	acc := columnar.NewAccumulator(reader.Header(), reader.TotalRows(),
//		columnar.WithProgress(func(done, total int64) {
//			log.Printf("%d/%d", done, total)
//		}))
//
//	for {
//		batch, err := reader.NextBatch(ctx, 25000)
//		if err == io.EOF {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		if err := acc.Add(batch); err != nil {
//			return err
//		}
//	}
//
//	table, err := columnar.Assemble(acc.Batches())
//
// For the streaming write path, WithSink hands every columnar batch to a
// callback instead of retaining it, so the accumulator holds nothing between
// batches.
package columnar
