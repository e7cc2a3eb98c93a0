package postgres

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/schema-intel/pkg/datasource"
)

// StreamTable reads the full table in batches of batchSize, invoking fn
// once per batch. A single query is used; batching only governs how many
// rows are buffered before fn is called, matching the "load once if small,
// else stream and concatenate" requirement without a second code path.
func (a *Adapter) StreamTable(ctx context.Context, table datasource.TableRef, batchSize int, fn func(datasource.RowBatch) error) error {
	if batchSize <= 0 {
		batchSize = 50000
	}

	query := fmt.Sprintf(`SELECT * FROM %s`, qualifiedTableName(table))
	rows, err := a.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("stream table %s: %w", table.Name, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = string(f.Name)
	}

	batch := datasource.RowBatch{Columns: columns, Rows: make([][]any, 0, batchSize)}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return fmt.Errorf("read row from %s: %w", table.Name, err)
		}
		batch.Rows = append(batch.Rows, vals)
		if len(batch.Rows) >= batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch.Rows = make([][]any, 0, batchSize)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate table %s: %w", table.Name, err)
	}
	if len(batch.Rows) > 0 {
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}
