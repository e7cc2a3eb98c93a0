package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/schema-intel/pkg/config"
	"github.com/ekaya-inc/schema-intel/pkg/datasource"
	"github.com/ekaya-inc/schema-intel/pkg/model"
)

// fakeAdapter composes a fakeDiscoverer and fakeTableReader into a full
// datasource.Adapter for exercising Run end to end without a real database.
type fakeAdapter struct {
	*fakeDiscoverer
	*fakeTableReader
}

func (f *fakeAdapter) TestConnection(ctx context.Context) error { return nil }
func (f *fakeAdapter) Close() error                             { return nil }
func (f *fakeAdapter) Execute(ctx context.Context, sql string) (*model.Dataframe, error) {
	return &model.Dataframe{}, nil
}

var _ datasource.Adapter = (*fakeAdapter)(nil)

type fakeGraphStore struct {
	upserted *model.KnowledgeGraph
}

func (f *fakeGraphStore) Upsert(ctx context.Context, kg model.KnowledgeGraph) error {
	f.upserted = &kg
	return nil
}

func testAdapter() *fakeAdapter {
	return &fakeAdapter{
		fakeDiscoverer: &fakeDiscoverer{
			tables: []datasource.TableRef{{Name: "customers"}, {Name: "orders"}},
			columns: map[string][]datasource.ColumnInfo{
				"customers": {{Name: "id", DataType: "integer", OrdinalPosition: 0, IsPrimaryKey: true}},
				"orders": {
					{Name: "id", DataType: "integer", OrdinalPosition: 0, IsPrimaryKey: true},
					{Name: "customer_id", DataType: "integer", OrdinalPosition: 1},
				},
			},
			foreignKeys: map[string][]datasource.ForeignKeyInfo{
				"orders": {{SourceColumns: []string{"customer_id"}, TargetTable: "customers", TargetColumns: []string{"id"}}},
			},
			rowCounts: map[string]int64{"customers": 5, "orders": 20},
		},
		fakeTableReader: &fakeTableReader{
			batches: map[string][]datasource.RowBatch{
				"customers": {{Columns: []string{"id"}, Rows: [][]any{{1}, {2}}}},
				"orders":    {{Columns: []string{"id", "customer_id"}, Rows: [][]any{{1, 1}, {2, 2}}}},
			},
		},
	}
}

func TestRun_ProducesAllArtifactFiles(t *testing.T) {
	dir := t.TempDir()
	adapter := testAdapter()
	cfg := config.PipelineConfig{BatchSize: 1000, WorkerPoolSize: 2}

	result, err := Run(context.Background(), "acme", adapter, "public", nil, nil, nil, dir, cfg, zap.NewNop())
	require.NoError(t, err)

	clientDir := filepath.Join(dir, "acme")
	for _, name := range []string{
		"01_schema_graph.json",
		"02_data_profile.json",
		"03_relationships_complete.json",
		"04_fingerprints.json",
		"semantic_layer_complete.json",
		"knowledge_graph_enhanced.json",
		"knowledge_graph_summary.json",
	} {
		_, statErr := os.Stat(filepath.Join(clientDir, name))
		assert.NoErrorf(t, statErr, "expected artifact %s to exist", name)
	}

	assert.Contains(t, result.Schema.Tables, "orders")
	assert.Equal(t, "acme", result.Layer.ClientID)
}

func TestRun_UpsertsIntoGraphStoreWhenProvided(t *testing.T) {
	dir := t.TempDir()
	adapter := testAdapter()
	store := &fakeGraphStore{}
	cfg := config.PipelineConfig{BatchSize: 1000, WorkerPoolSize: 2}

	_, err := Run(context.Background(), "acme", adapter, "public", nil, nil, store, dir, cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, store.upserted)
	assert.Equal(t, "acme", store.upserted.ClientID)
}

func TestRun_SkipsEnrichmentWhenLLMClientNil(t *testing.T) {
	dir := t.TempDir()
	adapter := testAdapter()
	cfg := config.PipelineConfig{BatchSize: 1000, WorkerPoolSize: 2}

	result, err := Run(context.Background(), "acme", adapter, "public", nil, nil, nil, dir, cfg, zap.NewNop())
	require.NoError(t, err)
	for _, entry := range result.Layer.Tables {
		assert.Empty(t, entry.Description)
	}
}

func TestRun_PropagatesExtractErrorsWithoutWritingArtifacts(t *testing.T) {
	dir := t.TempDir()
	adapter := &fakeAdapter{
		fakeDiscoverer:  &fakeDiscoverer{tables: []datasource.TableRef{{Name: "broken"}}},
		fakeTableReader: &fakeTableReader{},
	}
	brokenAdapter := &brokenDiscoveryAdapter{fakeAdapter: adapter}
	cfg := config.PipelineConfig{BatchSize: 1000, WorkerPoolSize: 2}

	_, err := Run(context.Background(), "acme", brokenAdapter, "public", nil, nil, nil, dir, cfg, zap.NewNop())
	assert.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "acme", "01_schema_graph.json"))
	assert.Error(t, statErr)
}

type brokenDiscoveryAdapter struct {
	*fakeAdapter
}

func (b *brokenDiscoveryAdapter) DiscoverColumns(ctx context.Context, table datasource.TableRef) ([]datasource.ColumnInfo, error) {
	return nil, errors.New("catalog unreachable")
}
