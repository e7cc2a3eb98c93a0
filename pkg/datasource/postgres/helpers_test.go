package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/schema-intel/pkg/datasource"
)

func TestQualifiedTableName_QuotesSchemaAndTable(t *testing.T) {
	got := qualifiedTableName(datasource.TableRef{Schema: "public", Name: "orders"})

	assert.Equal(t, `"public"."orders"`, got)
}

func TestQualifiedTableName_EscapesEmbeddedQuote(t *testing.T) {
	got := qualifiedTableName(datasource.TableRef{Schema: "public", Name: `orders"; drop table users;--`})

	assert.Equal(t, `"public"."orders""; drop table users;--"`, got)
}

func TestSanitizedColumn_QuotesColumnName(t *testing.T) {
	assert.Equal(t, `"customer_id"`, sanitizedColumn("customer_id"))
}
