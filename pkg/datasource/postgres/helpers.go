package postgres

import (
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/schema-intel/pkg/datasource"
)

// qualifiedTableName renders a sanitized, schema-qualified identifier safe
// to interpolate into a dynamic query. table.Schema/Name always come from
// the catalog, never from user input, but Sanitize() is cheap and removes
// any doubt.
func qualifiedTableName(table datasource.TableRef) string {
	return pgx.Identifier{table.Schema, table.Name}.Sanitize()
}

func sanitizedColumn(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
