package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/schema-intel/pkg/model"
)

func TestAssemble_CarriesOverRawSchemaFields(t *testing.T) {
	schema := model.RawSchema{Tables: map[string]model.Table{
		"orders": {RowCount: 42, PrimaryKey: []string{"id"}, Columns: []model.Column{{Name: "id"}}},
	}}

	layer := Assemble("acme", schema, nil, nil, model.RelationshipSet{}, time.Unix(0, 0))
	require.Contains(t, layer.Tables, "orders")
	assert.Equal(t, int64(42), layer.Tables["orders"].RowCount)
	assert.Equal(t, []string{"id"}, layer.Tables["orders"].PrimaryKey)
}

func TestAssemble_UnfingerprintedTableDefaultsToUnknownOrphan(t *testing.T) {
	schema := model.RawSchema{Tables: map[string]model.Table{"orders": {}}}

	layer := Assemble("acme", schema, nil, nil, model.RelationshipSet{}, time.Unix(0, 0))
	entry := layer.Tables["orders"]
	assert.Equal(t, model.RoleUnknown, entry.Role)
	assert.Equal(t, model.RiskLow, entry.RiskProfile)
	assert.Equal(t, "orphan", entry.ClusterID)
}

func TestAssemble_AppliesFingerprintWhenPresent(t *testing.T) {
	schema := model.RawSchema{Tables: map[string]model.Table{"orders": {}}}
	fingerprints := model.FingerprintSet{
		"orders": {Role: model.RoleHub, RiskProfile: model.RiskHigh, ClusterID: "cluster-1", HasTemporal: true},
	}

	layer := Assemble("acme", schema, nil, fingerprints, model.RelationshipSet{}, time.Unix(0, 0))
	entry := layer.Tables["orders"]
	assert.Equal(t, model.RoleHub, entry.Role)
	assert.Equal(t, model.RiskHigh, entry.RiskProfile)
	assert.Equal(t, "cluster-1", entry.ClusterID)
	assert.True(t, entry.HasTemporal)
}

func TestAssemble_DistributesRelationshipsToSourceAndTarget(t *testing.T) {
	schema := model.RawSchema{Tables: map[string]model.Table{
		"orders":    {},
		"customers": {},
	}}
	rels := model.RelationshipSet{Relationships: []model.Relationship{
		{SourceTable: "orders", TargetTable: "customers", SourceColumn: "customer_id", TargetColumn: "id"},
	}}

	layer := Assemble("acme", schema, nil, nil, rels, time.Unix(0, 0))
	assert.Len(t, layer.Tables["orders"].OutgoingRelationships, 1)
	assert.Len(t, layer.Tables["customers"].IncomingRelationships, 1)
}

func TestAssemble_SummaryCountsMatchTableRoles(t *testing.T) {
	schema := model.RawSchema{Tables: map[string]model.Table{
		"hub":   {},
		"dim":   {},
		"other": {},
	}}
	fingerprints := model.FingerprintSet{
		"hub": {Role: model.RoleHub},
		"dim": {Role: model.RoleDimension, RiskProfile: model.RiskHigh},
	}

	layer := Assemble("acme", schema, nil, fingerprints, model.RelationshipSet{}, time.Unix(0, 0))
	assert.Equal(t, 1, layer.Summary.HubCount)
	assert.Equal(t, 1, layer.Summary.DimensionCount)
	assert.Equal(t, 1, layer.Summary.UnknownCount)
	assert.Equal(t, 1, layer.Summary.HighRiskCount)
	assert.Equal(t, 3, layer.Summary.TableCount)
}

func TestReassembleSummary_RecomputesCountsWithoutMutatingTables(t *testing.T) {
	layer := model.SemanticLayer{
		Tables: map[string]model.TableEntry{
			"orders": {Role: model.RoleHub, Description: "an order"},
		},
		Summary: model.SemanticSummary{RelationshipCount: 5},
	}

	got := ReassembleSummary(layer)
	assert.Equal(t, 1, got.Summary.HubCount)
	assert.Equal(t, 5, got.Summary.RelationshipCount)
	assert.Equal(t, "an order", got.Tables["orders"].Description)
}
