package mssql

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/schema-intel/pkg/datasource"
)

func qualifiedTableName(table datasource.TableRef) string {
	return fmt.Sprintf("[%s].[%s]", sanitizeIdent(table.Schema), sanitizeIdent(table.Name))
}

func sanitizedColumn(name string) string {
	return fmt.Sprintf("[%s]", sanitizeIdent(name))
}

// sanitizeIdent escapes the closing bracket SQL Server uses to quote
// identifiers by doubling it ("]" becomes "]]"), since identifiers here come
// from catalog views rather than user input but are still interpolated into
// query text.
func sanitizeIdent(ident string) string {
	return strings.ReplaceAll(ident, "]", "]]")
}
