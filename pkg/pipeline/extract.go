package pipeline

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/schema-intel/pkg/datasource"
	"github.com/ekaya-inc/schema-intel/pkg/model"
)

// Extract runs the metadata reader (C1): for every base table in the
// target schema, read its primary key, unique constraints, indexes,
// columns (in declaration order), foreign keys, and exact row count.
func Extract(ctx context.Context, discoverer datasource.SchemaDiscoverer, generatedAt time.Time, logger *zap.Logger) (model.RawSchema, error) {
	tables, err := discoverer.DiscoverTables(ctx)
	if err != nil {
		return model.RawSchema{}, err
	}

	schema := model.RawSchema{
		GeneratedAt: generatedAt.UTC().Format(time.RFC3339),
		Tables:      make(map[string]model.Table, len(tables)),
	}

	for _, ref := range tables {
		table, err := extractTable(ctx, discoverer, ref, logger)
		if err != nil {
			return model.RawSchema{}, err
		}
		schema.Tables[ref.Name] = table
	}
	return schema, nil
}

func extractTable(ctx context.Context, discoverer datasource.SchemaDiscoverer, ref datasource.TableRef, logger *zap.Logger) (model.Table, error) {
	columns, err := discoverer.DiscoverColumns(ctx, ref)
	if err != nil {
		return model.Table{}, err
	}
	indexes, err := discoverer.DiscoverIndexes(ctx, ref)
	if err != nil {
		return model.Table{}, err
	}
	foreignKeys, err := discoverer.DiscoverForeignKeys(ctx, ref)
	if err != nil {
		return model.Table{}, err
	}

	table := model.Table{
		PrimaryKey: primaryKeyOf(columns),
		Columns:    convertColumns(columns),
		Indexes:    convertIndexes(indexes),
	}
	table.UniqueConstraints = uniqueConstraintsOf(table.PrimaryKey, indexes)
	table.ExplicitForeignKeys = convertForeignKeys(foreignKeys, table.UniqueConstraints)

	rowCount, err := discoverer.RowCount(ctx, ref)
	if err != nil {
		logger.Warn("row count query failed, treating as 0", zap.String("table", ref.Name), zap.Error(err))
		table.RowCount = 0
		table.RowCountWarning = err.Error()
	} else {
		table.RowCount = rowCount
	}

	return table, nil
}

func primaryKeyOf(columns []datasource.ColumnInfo) []string {
	ordered := append([]datasource.ColumnInfo{}, columns...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].OrdinalPosition < ordered[j].OrdinalPosition })

	var pk []string
	for _, c := range ordered {
		if c.IsPrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

func convertColumns(columns []datasource.ColumnInfo) []model.Column {
	ordered := append([]datasource.ColumnInfo{}, columns...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].OrdinalPosition < ordered[j].OrdinalPosition })

	out := make([]model.Column, len(ordered))
	for i, c := range ordered {
		out[i] = model.Column{
			Name:     c.Name,
			SQLType:  c.DataType,
			Nullable: c.IsNullable,
			Default:  c.Default,
			Comment:  c.Comment,
		}
	}
	return out
}

func convertIndexes(indexes []datasource.IndexInfo) []model.Index {
	out := make([]model.Index, len(indexes))
	for i, idx := range indexes {
		out[i] = model.Index{Name: idx.Name, Columns: idx.Columns, Unique: idx.Unique}
	}
	return out
}

// uniqueConstraintsOf collects every column set that uniquely identifies a
// row: the primary key plus every unique index.
func uniqueConstraintsOf(primaryKey []string, indexes []datasource.IndexInfo) [][]string {
	var sets [][]string
	if len(primaryKey) > 0 {
		sets = append(sets, primaryKey)
	}
	for _, idx := range indexes {
		if idx.Unique {
			sets = append(sets, idx.Columns)
		}
	}
	return sets
}

func convertForeignKeys(fks []datasource.ForeignKeyInfo, uniqueConstraints [][]string) []model.ForeignKey {
	out := make([]model.ForeignKey, len(fks))
	for i, fk := range fks {
		out[i] = model.ForeignKey{
			Columns:         fk.SourceColumns,
			ReferredTable:   fk.TargetTable,
			ReferredColumns: fk.TargetColumns,
			Cardinality:     fkCardinality(fk.SourceColumns, uniqueConstraints),
		}
	}
	return out
}

// fkCardinality is 1:1 when the FK's column set exactly matches one of the
// referrer's unique constraints (including its primary key), else 1:n.
func fkCardinality(fkColumns []string, uniqueConstraints [][]string) model.Cardinality {
	for _, set := range uniqueConstraints {
		if sameColumnSet(fkColumns, set) {
			return model.CardinalityOneToOne
		}
	}
	return model.CardinalityOneToMany
}

func sameColumnSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sortedA := append([]string{}, a...)
	sortedB := append([]string{}, b...)
	sort.Strings(sortedA)
	sort.Strings(sortedB)
	for i := range sortedA {
		if sortedA[i] != sortedB[i] {
			return false
		}
	}
	return true
}
