package mssql

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/schema-intel/pkg/datasource"
)

// StreamTable reads the full table in batches of batchSize, invoking fn
// once per batch. Mirrors the postgres adapter's single-query-then-chunk
// approach so both drivers expose identical streaming semantics to C2.
func (a *Adapter) StreamTable(ctx context.Context, table datasource.TableRef, batchSize int, fn func(datasource.RowBatch) error) error {
	if batchSize <= 0 {
		batchSize = 50000
	}

	query := fmt.Sprintf(`SELECT * FROM %s`, qualifiedTableName(table))
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("stream table %s: %w", table.Name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("read columns for %s: %w", table.Name, err)
	}

	batch := datasource.RowBatch{Columns: columns, Rows: make([][]any, 0, batchSize)}
	for rows.Next() {
		dest := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("read row from %s: %w", table.Name, err)
		}
		batch.Rows = append(batch.Rows, dest)
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
