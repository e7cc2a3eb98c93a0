package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/schema-intel/pkg/model"
)

func schemaWithTables(names ...string) model.RawSchema {
	tables := make(map[string]model.Table, len(names))
	for _, n := range names {
		tables[n] = model.Table{}
	}
	return model.RawSchema{Tables: tables}
}

func TestFingerprint_RoleUnknownWhenNoEdges(t *testing.T) {
	schema := schemaWithTables("standalone")
	fps := Fingerprint(schema, model.RelationshipSet{})
	assert.Equal(t, model.RoleUnknown, fps["standalone"].Role)
	assert.Equal(t, "orphan", fps["standalone"].ClusterID)
}

func TestFingerprint_RoleDimensionWhenOnlyOutgoing(t *testing.T) {
	schema := schemaWithTables("customers", "orders")
	rels := model.RelationshipSet{Relationships: []model.Relationship{
		{SourceTable: "orders", SourceColumn: "customer_id", TargetTable: "customers", TargetColumn: "id"},
	}}
	fps := Fingerprint(schema, rels)
	assert.Equal(t, model.RoleDimension, fps["orders"].Role)
	assert.Equal(t, model.RoleDetail, fps["customers"].Role)
}

func TestFingerprint_RoleHubWhenOutgoingOnlyAndNameContainsIncident(t *testing.T) {
	schema := schemaWithTables("incident_reports", "locations")
	rels := model.RelationshipSet{Relationships: []model.Relationship{
		{SourceTable: "incident_reports", SourceColumn: "location_id", TargetTable: "locations", TargetColumn: "id"},
	}}
	fps := Fingerprint(schema, rels)
	assert.Equal(t, model.RoleHub, fps["incident_reports"].Role)
}

func TestFingerprint_RoleDetailWhenNameSuffixedDetails(t *testing.T) {
	schema := schemaWithTables("orders", "order_details", "products", "shipments")
	rels := model.RelationshipSet{Relationships: []model.Relationship{
		{SourceTable: "shipments", SourceColumn: "order_detail_id", TargetTable: "order_details", TargetColumn: "id"},
		{SourceTable: "order_details", SourceColumn: "order_id", TargetTable: "orders", TargetColumn: "id"},
		{SourceTable: "order_details", SourceColumn: "product_id", TargetTable: "products", TargetColumn: "id"},
	}}
	fps := Fingerprint(schema, rels)
	assert.Equal(t, model.RoleDetail, fps["order_details"].Role)
}

func TestFingerprint_RiskProfileHighWhenCommentMatchesKeyword(t *testing.T) {
	schema := model.RawSchema{Tables: map[string]model.Table{
		"incidents": {Columns: []model.Column{{Name: "note", Comment: "OSHA recordable incident"}}},
	}}
	fps := Fingerprint(schema, model.RelationshipSet{})
	assert.Equal(t, model.RiskHigh, fps["incidents"].RiskProfile)
	assert.Equal(t, []string{"OSHA recordable incident"}, fps["incidents"].RedlineComments)
}

func TestFingerprint_RiskProfileLowByDefault(t *testing.T) {
	schema := schemaWithTables("widgets")
	fps := Fingerprint(schema, model.RelationshipSet{})
	assert.Equal(t, model.RiskLow, fps["widgets"].RiskProfile)
	assert.Nil(t, fps["widgets"].RedlineComments)
}

func TestFingerprint_TemporalAndGeospatialFlags(t *testing.T) {
	schema := model.RawSchema{Tables: map[string]model.Table{
		"events": {Columns: []model.Column{
			{Name: "created_at"},
			{Name: "latitude"},
		}},
	}}
	fps := Fingerprint(schema, model.RelationshipSet{})
	assert.True(t, fps["events"].HasTemporal)
	assert.True(t, fps["events"].HasGeospatial)
}

func TestFingerprint_ClustersConnectedTablesTogether(t *testing.T) {
	schema := schemaWithTables("a", "b", "c", "isolated")
	rels := model.RelationshipSet{Relationships: []model.Relationship{
		{SourceTable: "a", SourceColumn: "b_id", TargetTable: "b", TargetColumn: "id"},
		{SourceTable: "b", SourceColumn: "c_id", TargetTable: "c", TargetColumn: "id"},
	}}
	fps := Fingerprint(schema, rels)
	assert.Equal(t, fps["a"].ClusterID, fps["b"].ClusterID)
	assert.Equal(t, fps["b"].ClusterID, fps["c"].ClusterID)
	assert.Equal(t, "orphan", fps["isolated"].ClusterID)
	assert.NotEqual(t, "orphan", fps["a"].ClusterID)
}
