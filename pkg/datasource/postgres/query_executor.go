package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/schema-intel/pkg/model"
)

// Execute runs sql on a read-only transaction and returns a dataframe with
// preserved column order. Callers are responsible for safety validation
// (see pkg/engine/sqlguard) before reaching this method.
func (a *Adapter) Execute(ctx context.Context, sql string) (*model.Dataframe, error) {
	tx, err := a.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = string(f.Name)
	}

	df := &model.Dataframe{Columns: columns, Rows: make([]map[string]any, 0)}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read result row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, c := range columns {
			row[c] = vals[i]
		}
		df.Rows = append(df.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return df, nil
}
