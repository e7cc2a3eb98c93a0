package mssql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ekaya-inc/schema-intel/pkg/model"
)

// Execute runs sql on a read-only transaction and returns a dataframe with
// preserved column order. Callers are responsible for safety validation
// before reaching this method.
func (a *Adapter) Execute(ctx context.Context, query string) (*model.Dataframe, error) {
	tx, err := a.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	df := &model.Dataframe{Columns: columns, Rows: make([]map[string]any, 0)}
	for rows.Next() {
		dest := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("read result row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, c := range columns {
			row[c] = dest[i]
		}
		df.Rows = append(df.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return df, nil
}
