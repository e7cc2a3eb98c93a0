package postgres

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/schema-intel/pkg/datasource"
)

// DiscoverTables returns all base tables in the target schema, excluding
// system schemas.
func (a *Adapter) DiscoverTables(ctx context.Context) ([]datasource.TableRef, error) {
	const query = `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema = $1
		ORDER BY table_name
	`
	rows, err := a.pool.Query(ctx, query, a.schema)
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

// DiscoverColumns returns columns for one table, in declaration order.
// Uses pg_index (not information_schema.key_column_usage) for primary-key
// and unique detection so PKs created as unique indexes are still found.
func (a *Adapter) DiscoverColumns(ctx context.Context, table datasource.TableRef) ([]datasource.ColumnInfo, error) {
	const query = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' as is_nullable,
			COALESCE(pk.is_pk, false) as is_primary_key,
			COALESCE(uq.is_unique, false) as is_unique,
			c.ordinal_position,
			c.column_default,
			COALESCE(pgd.description, '') as comment
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT a.attname as column_name, true as is_pk
			FROM pg_index ix
			JOIN pg_class t ON t.oid = ix.indrelid
			JOIN pg_namespace n ON n.oid = t.relnamespace
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
			WHERE ix.indisprimary = true AND n.nspname = $1 AND t.relname = $2
		) pk ON c.column_name = pk.column_name
		LEFT JOIN (
			SELECT a.attname as column_name, true as is_unique
			FROM pg_index ix
			JOIN pg_class t ON t.oid = ix.indrelid
			JOIN pg_namespace n ON n.oid = t.relnamespace
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
			WHERE ix.indisunique = true AND ix.indisprimary = false
			  AND n.nspname = $1 AND t.relname = $2
		) uq ON c.column_name = uq.column_name
		LEFT JOIN pg_class pc ON pc.relname = c.table_name
		LEFT JOIN pg_namespace pn ON pn.oid = pc.relnamespace AND pn.nspname = c.table_schema
		LEFT JOIN pg_description pgd ON pgd.objoid = pc.oid AND pgd.objsubid = c.ordinal_position
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`
	rows, err := a.pool.Query(ctx, query, table.Schema, table.Name)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var cols []datasource.ColumnInfo
	for rows.Next() {
		var c datasource.ColumnInfo
		if err := rows.Scan(&c.Name, &c.DataType, &c.IsNullable, &c.IsPrimaryKey, &c.IsUnique,
			&c.OrdinalPosition, &c.Default, &c.Comment); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// DiscoverIndexes returns secondary indexes (including the primary key and
// unique indexes, which the relationship detector and fingerprinter don't
// need disambiguated from DiscoverColumns' own PK/unique flags).
func (a *Adapter) DiscoverIndexes(ctx context.Context, table datasource.TableRef) ([]datasource.IndexInfo, error) {
	const query = `
		SELECT i.relname, array_agg(a.attname ORDER BY array_position(ix.indkey, a.attnum)), ix.indisunique
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE n.nspname = $1 AND t.relname = $2
		GROUP BY i.relname, ix.indisunique
		ORDER BY i.relname
	`
	rows, err := a.pool.Query(ctx, query, table.Schema, table.Name)
	if err != nil {
		return nil, fmt.Errorf("query indexes: %w", err)
	}
	defer rows.Close()

	var idxs []datasource.IndexInfo
	for rows.Next() {
		var idx datasource.IndexInfo
		if err := rows.Scan(&idx.Name, &idx.Columns, &idx.Unique); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		idxs = append(idxs, idx)
	}
	return idxs, rows.Err()
}

// DiscoverForeignKeys returns the foreign-key constraints declared on table.
func (a *Adapter) DiscoverForeignKeys(ctx context.Context, table datasource.TableRef) ([]datasource.ForeignKeyInfo, error) {
	const query = `
		SELECT
			tc.constraint_name,
			kcu.column_name,
			ccu.table_name as target_table,
			ccu.column_name as target_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY tc.constraint_name, kcu.ordinal_position
	`
	rows, err := a.pool.Query(ctx, query, table.Schema, table.Name)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	byConstraint := make(map[string]*datasource.ForeignKeyInfo)
	var order []string
	for rows.Next() {
		var constraintName, sourceCol, targetTable, targetCol string
		if err := rows.Scan(&constraintName, &sourceCol, &targetTable, &targetCol); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		fk, ok := byConstraint[constraintName]
		if !ok {
			fk = &datasource.ForeignKeyInfo{ConstraintName: constraintName, TargetTable: targetTable}
			byConstraint[constraintName] = fk
			order = append(order, constraintName)
		}
		fk.SourceColumns = append(fk.SourceColumns, sourceCol)
		fk.TargetColumns = append(fk.TargetColumns, targetCol)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fks := make([]datasource.ForeignKeyInfo, 0, len(order))
	for _, name := range order {
		fks = append(fks, *byConstraint[name])
	}
	return fks, nil
}

// RowCount returns the exact row count for table. Callers treat a failed
// count as 0 with a recorded warning rather than aborting the table.
func (a *Adapter) RowCount(ctx context.Context, table datasource.TableRef) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, qualifiedTableName(table))
	var count int64
	if err := a.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return count, nil
}
