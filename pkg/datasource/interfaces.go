// Package datasource declares the relational-database capability (§6) that
// the metadata reader, data profiler, and SQL executor are built on, plus a
// build-tag-gated adapter registry so concrete drivers (postgres, mssql)
// register themselves via blank import, exactly as the ingestion engine
// they were adapted from does it.
package datasource

import (
	"context"

	"github.com/ekaya-inc/schema-intel/pkg/model"
)

// TableRef names one base table.
type TableRef struct {
	Schema string
	Name   string
}

// ColumnInfo is a raw catalog column, as read by SchemaDiscoverer.
type ColumnInfo struct {
	Name            string
	DataType        string
	IsNullable      bool
	IsPrimaryKey    bool
	IsUnique        bool
	OrdinalPosition int
	Default         *string
	Comment         string
}

// ForeignKeyInfo is a raw catalog foreign key, as read by SchemaDiscoverer.
type ForeignKeyInfo struct {
	ConstraintName string
	SourceColumns  []string
	TargetTable    string
	TargetColumns  []string
}

// IndexInfo is a raw catalog index.
type IndexInfo struct {
	Name    string
	Columns []string
	Unique  bool
}

// ConnectionTester verifies connectivity and owns a pooled connection.
type ConnectionTester interface {
	TestConnection(ctx context.Context) error
	Close() error
}

// SchemaDiscoverer implements the metadata-reader (C1) abstract operations:
// list base tables, introspect columns/PK/unique/indexes/FKs, scalar count.
type SchemaDiscoverer interface {
	ConnectionTester
	DiscoverTables(ctx context.Context) ([]TableRef, error)
	DiscoverColumns(ctx context.Context, table TableRef) ([]ColumnInfo, error)
	DiscoverIndexes(ctx context.Context, table TableRef) ([]IndexInfo, error)
	DiscoverForeignKeys(ctx context.Context, table TableRef) ([]ForeignKeyInfo, error)
	RowCount(ctx context.Context, table TableRef) (int64, error)
}

// RowBatch is one chunk of streamed rows: ordered column names plus raw
// typed cell values per row, in column order.
type RowBatch struct {
	Columns []string
	Rows    [][]any
}

// TableReader streams a full table into rows with typed cell values, for
// the data profiler (C2). No per-column SQL: a batch contains every column.
type TableReader interface {
	ConnectionTester
	StreamTable(ctx context.Context, table TableRef, batchSize int, fn func(RowBatch) error) error
}

// QueryExecutor executes a parameterless read-only SQL statement yielding
// rows and column names, for the SQL validator/executor (C10).
type QueryExecutor interface {
	ConnectionTester
	Execute(ctx context.Context, sql string) (*model.Dataframe, error)
}

// Adapter bundles all three capabilities a concrete driver must provide.
type Adapter interface {
	SchemaDiscoverer
	TableReader
	QueryExecutor
}

// AdapterInfo describes a registered driver.
type AdapterInfo struct {
	Driver      string
	DisplayName string
}

// AdapterFactory constructs an Adapter for one client database config.
type AdapterFactory func(ctx context.Context, cfg ConnParams) (Adapter, error)

// ConnParams is the resolved (env-substituted) connection configuration for
// one client database.
type ConnParams struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}
