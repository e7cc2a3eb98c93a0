package neo4jstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/schema-intel/pkg/config"
	"github.com/ekaya-inc/schema-intel/pkg/graph"
	"github.com/ekaya-inc/schema-intel/pkg/model"
	"github.com/ekaya-inc/schema-intel/pkg/testhelpers"
)

// Upsert/Columns/Tables/OutgoingEdges drive the concrete neo4j driver
// directly, with no interface seam to fake against, so these run as
// integration tests against a real container (skipped under `-short`).

func testStore(t *testing.T) *Store {
	t.Helper()
	neo := testhelpers.GetTestNeo4jDB(t)

	store, err := NewStore(config.Neo4jConfig{URI: neo.URI}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Ping(context.Background()))
	t.Cleanup(func() { store.Close(context.Background()) })
	return store
}

func sampleKnowledgeGraph(clientID string) model.KnowledgeGraph {
	layer := model.SemanticLayer{
		ClientID: clientID,
		Tables: map[string]model.TableEntry{
			"incidents": {
				RowCount:   10,
				PrimaryKey: []string{"id"},
				Columns: []model.Column{
					{Name: "id", SQLType: "integer"},
					{Name: "facility_id", SQLType: "integer"},
				},
				ColumnProfiles: map[string]model.ColumnProfile{
					"id":          {DistinctCount: 10},
					"facility_id": {DistinctCount: 2},
				},
				Role: model.RoleHub,
				OutgoingRelationships: []model.Relationship{
					{SourceTable: "incidents", SourceColumn: "facility_id", TargetTable: "facilities", TargetColumn: "id", Type: model.RelationshipExplicit, Confidence: 1.0, Evidence: "fk"},
				},
			},
			"facilities": {
				RowCount:   2,
				PrimaryKey: []string{"id"},
				Columns:    []model.Column{{Name: "id", SQLType: "integer"}},
				ColumnProfiles: map[string]model.ColumnProfile{
					"id": {DistinctCount: 2},
				},
				Role: model.RoleDimension,
			},
		},
	}
	return graph.Build(layer, time.Unix(0, 0))
}

func TestStore_UpsertThenTablesReturnsLoadedTables(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	clientID := "acme-store-tables"
	t.Cleanup(func() { _ = store.PurgeClient(ctx, clientID) })

	require.NoError(t, store.Upsert(ctx, sampleKnowledgeGraph(clientID)))

	tables, err := store.Tables(ctx, clientID)
	require.NoError(t, err)
	names := make([]string, len(tables))
	for i, tbl := range tables {
		names[i] = tbl.Name
	}
	assert.ElementsMatch(t, []string{"incidents", "facilities"}, names)
}

func TestStore_UpsertIsIdempotent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	clientID := "acme-store-idempotent"
	t.Cleanup(func() { _ = store.PurgeClient(ctx, clientID) })

	kg := sampleKnowledgeGraph(clientID)
	require.NoError(t, store.Upsert(ctx, kg))
	require.NoError(t, store.Upsert(ctx, kg))

	tables, err := store.Tables(ctx, clientID)
	require.NoError(t, err)
	assert.Len(t, tables, 2, "re-running Upsert must not duplicate table nodes")
}

func TestStore_ColumnsReturnsEveryColumnForTable(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	clientID := "acme-store-columns"
	t.Cleanup(func() { _ = store.PurgeClient(ctx, clientID) })

	require.NoError(t, store.Upsert(ctx, sampleKnowledgeGraph(clientID)))

	cols, err := store.Columns(ctx, clientID, "incidents")
	require.NoError(t, err)
	assert.Len(t, cols, 2)
}

func TestStore_OutgoingEdgesReturnsForeignKeyTarget(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	clientID := "acme-store-edges"
	t.Cleanup(func() { _ = store.PurgeClient(ctx, clientID) })

	require.NoError(t, store.Upsert(ctx, sampleKnowledgeGraph(clientID)))

	edges, err := store.OutgoingEdges(ctx, clientID, "incidents")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "facilities", edges[0].TargetTable)
}

func TestStore_PurgeClientRemovesAllNodes(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	clientID := "acme-store-purge"

	require.NoError(t, store.Upsert(ctx, sampleKnowledgeGraph(clientID)))
	require.NoError(t, store.PurgeClient(ctx, clientID))

	tables, err := store.Tables(ctx, clientID)
	require.NoError(t, err)
	assert.Empty(t, tables)
}
