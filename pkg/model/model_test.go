package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKey_LowercasesAndTrimsQuestion(t *testing.T) {
	got := CacheKey("acme", "  What Were Last Week's Sales?  ")

	assert.Equal(t, "nl2sql:acme:what were last week's sales?", got)
}

func TestCacheKey_DistinctClientsProduceDistinctKeys(t *testing.T) {
	a := CacheKey("acme", "top customers")
	b := CacheKey("globex", "top customers")

	assert.NotEqual(t, a, b)
}

func TestRelationshipKey_IgnoresTypeAndConfidence(t *testing.T) {
	a := Relationship{SourceTable: "orders", SourceColumn: "customer_id", TargetTable: "customers", TargetColumn: "id", Type: RelationshipExplicit, Confidence: 1.0}
	b := Relationship{SourceTable: "orders", SourceColumn: "customer_id", TargetTable: "customers", TargetColumn: "id", Type: RelationshipNaming, Confidence: 0.85}

	assert.Equal(t, a.Key(), b.Key())
}

func TestRelationshipKey_DiffersOnAnyColumn(t *testing.T) {
	a := Relationship{SourceTable: "orders", SourceColumn: "customer_id", TargetTable: "customers", TargetColumn: "id"}
	b := Relationship{SourceTable: "orders", SourceColumn: "shipper_id", TargetTable: "customers", TargetColumn: "id"}

	assert.NotEqual(t, a.Key(), b.Key())
}

func TestTable_ColumnNamesPreservesDeclarationOrder(t *testing.T) {
	tbl := Table{Columns: []Column{{Name: "id"}, {Name: "email"}, {Name: "created_at"}}}

	assert.Equal(t, []string{"id", "email", "created_at"}, tbl.ColumnNames())
}

func TestTable_HasColumnFindsExactName(t *testing.T) {
	tbl := Table{Columns: []Column{{Name: "id"}, {Name: "email"}}}

	assert.True(t, tbl.HasColumn("email"))
	assert.False(t, tbl.HasColumn("phone"))
}

func TestTableEntry_DistinctPctComputesRoundedPercentage(t *testing.T) {
	entry := TableEntry{
		RowCount:       200,
		ColumnProfiles: map[string]ColumnProfile{"status": {DistinctCount: 3}},
	}

	got := entry.DistinctPct("status")
	if assert.NotNil(t, got) {
		assert.Equal(t, 1.5, *got)
	}
}

func TestTableEntry_DistinctPctNilWhenRowCountZero(t *testing.T) {
	entry := TableEntry{RowCount: 0, ColumnProfiles: map[string]ColumnProfile{"status": {DistinctCount: 3}}}

	assert.Nil(t, entry.DistinctPct("status"))
}

func TestTableEntry_DistinctPctNilWhenColumnUnprofiled(t *testing.T) {
	entry := TableEntry{RowCount: 100, ColumnProfiles: map[string]ColumnProfile{}}

	assert.Nil(t, entry.DistinctPct("missing"))
}
