package mssql

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/schema-intel/pkg/datasource"
)

func (a *Adapter) DiscoverTables(ctx context.Context) ([]datasource.TableRef, error) {
	const query = `
		SELECT TABLE_SCHEMA, TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []datasource.TableRef
	for rows.Next() {
		var t datasource.TableRef
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (a *Adapter) DiscoverColumns(ctx context.Context, table datasource.TableRef) ([]datasource.ColumnInfo, error) {
	const query = `
		SELECT
			c.COLUMN_NAME,
			c.DATA_TYPE,
			CASE WHEN c.IS_NULLABLE = 'YES' THEN 1 ELSE 0 END,
			CASE WHEN pk.COLUMN_NAME IS NOT NULL THEN 1 ELSE 0 END,
			CASE WHEN uq.COLUMN_NAME IS NOT NULL THEN 1 ELSE 0 END,
			c.ORDINAL_POSITION,
			c.COLUMN_DEFAULT
		FROM INFORMATION_SCHEMA.COLUMNS c
		LEFT JOIN (
			SELECT ku.TABLE_SCHEMA, ku.TABLE_NAME, ku.COLUMN_NAME
			FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE ku
				ON tc.CONSTRAINT_NAME = ku.CONSTRAINT_NAME AND tc.TABLE_SCHEMA = ku.TABLE_SCHEMA
			WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
		) pk ON pk.TABLE_SCHEMA = c.TABLE_SCHEMA AND pk.TABLE_NAME = c.TABLE_NAME AND pk.COLUMN_NAME = c.COLUMN_NAME
		LEFT JOIN (
			SELECT ku.TABLE_SCHEMA, ku.TABLE_NAME, ku.COLUMN_NAME
			FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE ku
				ON tc.CONSTRAINT_NAME = ku.CONSTRAINT_NAME AND tc.TABLE_SCHEMA = ku.TABLE_SCHEMA
			WHERE tc.CONSTRAINT_TYPE = 'UNIQUE'
		) uq ON uq.TABLE_SCHEMA = c.TABLE_SCHEMA AND uq.TABLE_NAME = c.TABLE_NAME AND uq.COLUMN_NAME = c.COLUMN_NAME
		WHERE c.TABLE_SCHEMA = @p1 AND c.TABLE_NAME = @p2
		ORDER BY c.ORDINAL_POSITION
	`
	rows, err := a.db.QueryContext(ctx, query, table.Schema, table.Name)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var cols []datasource.ColumnInfo
	for rows.Next() {
		var c datasource.ColumnInfo
		var isNullable, isPK, isUnique int
		if err := rows.Scan(&c.Name, &c.DataType, &isNullable, &isPK, &isUnique, &c.OrdinalPosition, &c.Default); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c.IsNullable, c.IsPrimaryKey, c.IsUnique = isNullable == 1, isPK == 1, isUnique == 1
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (a *Adapter) DiscoverIndexes(ctx context.Context, table datasource.TableRef) ([]datasource.IndexInfo, error) {
	const query = `
		SELECT i.name, c.name, i.is_unique
		FROM sys.indexes i
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		JOIN sys.objects o ON o.object_id = i.object_id
		JOIN sys.schemas s ON s.schema_id = o.schema_id
		WHERE s.name = @p1 AND o.name = @p2 AND i.name IS NOT NULL
		ORDER BY i.name, ic.key_ordinal
	`
	rows, err := a.db.QueryContext(ctx, query, table.Schema, table.Name)
	if err != nil {
		return nil, fmt.Errorf("query indexes: %w", err)
	}
	defer rows.Close()

	byName := make(map[string]*datasource.IndexInfo)
	var order []string
	for rows.Next() {
		var name, col string
		var unique bool
		if err := rows.Scan(&name, &col, &unique); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		idx, ok := byName[name]
		if !ok {
			idx = &datasource.IndexInfo{Name: name, Unique: unique}
			byName[name] = idx
			order = append(order, name)
		}
		idx.Columns = append(idx.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	idxs := make([]datasource.IndexInfo, 0, len(order))
	for _, name := range order {
		idxs = append(idxs, *byName[name])
	}
	return idxs, nil
}

func (a *Adapter) DiscoverForeignKeys(ctx context.Context, table datasource.TableRef) ([]datasource.ForeignKeyInfo, error) {
	const query = `
		SELECT
			fk.name,
			pc.name AS source_column,
			rt.name AS target_table,
			rc.name AS target_column
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
		JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
		JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
		JOIN sys.objects po ON po.object_id = fk.parent_object_id
		JOIN sys.objects rt ON rt.object_id = fk.referenced_object_id
		JOIN sys.schemas s ON s.schema_id = po.schema_id
		WHERE s.name = @p1 AND po.name = @p2
		ORDER BY fk.name, fkc.constraint_column_id
	`
	rows, err := a.db.QueryContext(ctx, query, table.Schema, table.Name)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	byName := make(map[string]*datasource.ForeignKeyInfo)
	var order []string
	for rows.Next() {
		var name, sourceCol, targetTable, targetCol string
		if err := rows.Scan(&name, &sourceCol, &targetTable, &targetCol); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		fk, ok := byName[name]
		if !ok {
			fk = &datasource.ForeignKeyInfo{ConstraintName: name, TargetTable: targetTable}
			byName[name] = fk
			order = append(order, name)
		}
		fk.SourceColumns = append(fk.SourceColumns, sourceCol)
		fk.TargetColumns = append(fk.TargetColumns, targetCol)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	fks := make([]datasource.ForeignKeyInfo, 0, len(order))
	for _, name := range order {
		fks = append(fks, *byName[name])
	}
	return fks, nil
}

func (a *Adapter) RowCount(ctx context.Context, table datasource.TableRef) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, qualifiedTableName(table))
	var count int64
	if err := a.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return count, nil
}
