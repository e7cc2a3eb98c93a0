package mssql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/schema-intel/pkg/datasource"
)

func TestQualifiedTableName_BracketsSchemaAndTable(t *testing.T) {
	got := qualifiedTableName(datasource.TableRef{Schema: "dbo", Name: "orders"})

	assert.Equal(t, "[dbo].[orders]", got)
}

func TestQualifiedTableName_EscapesEmbeddedBracket(t *testing.T) {
	got := qualifiedTableName(datasource.TableRef{Schema: "dbo", Name: "weird]name"})

	assert.Equal(t, "[dbo].[weird]]name]", got)
}

func TestSanitizedColumn_BracketsColumnName(t *testing.T) {
	assert.Equal(t, "[customer_id]", sanitizedColumn("customer_id"))
}

func TestSanitizeIdent_DoublesClosingBracket(t *testing.T) {
	assert.Equal(t, "a]]b]]c", sanitizeIdent("a]b]c"))
}
