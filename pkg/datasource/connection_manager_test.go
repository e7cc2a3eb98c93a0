package datasource

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/schema-intel/pkg/model"
)

type fakeManagedAdapter struct {
	closed int32
}

func (a *fakeManagedAdapter) TestConnection(ctx context.Context) error { return nil }
func (a *fakeManagedAdapter) Close() error {
	atomic.AddInt32(&a.closed, 1)
	return nil
}
func (a *fakeManagedAdapter) DiscoverTables(ctx context.Context) ([]TableRef, error) { return nil, nil }
func (a *fakeManagedAdapter) DiscoverColumns(ctx context.Context, table TableRef) ([]ColumnInfo, error) {
	return nil, nil
}
func (a *fakeManagedAdapter) DiscoverIndexes(ctx context.Context, table TableRef) ([]IndexInfo, error) {
	return nil, nil
}
func (a *fakeManagedAdapter) DiscoverForeignKeys(ctx context.Context, table TableRef) ([]ForeignKeyInfo, error) {
	return nil, nil
}
func (a *fakeManagedAdapter) RowCount(ctx context.Context, table TableRef) (int64, error) {
	return 0, nil
}
func (a *fakeManagedAdapter) StreamTable(ctx context.Context, table TableRef, batchSize int, fn func(RowBatch) error) error {
	return nil
}
func (a *fakeManagedAdapter) Execute(ctx context.Context, sql string) (*model.Dataframe, error) {
	return nil, nil
}

var _ Adapter = (*fakeManagedAdapter)(nil)

func TestConnectionManager_GetOrCreateBuildsOnlyOnceForRepeatedCalls(t *testing.T) {
	var builds int32
	Register(AdapterInfo{Driver: "conn-mgr-test", DisplayName: "Conn Mgr Test"}, func(ctx context.Context, cfg ConnParams) (Adapter, error) {
		atomic.AddInt32(&builds, 1)
		return &fakeManagedAdapter{}, nil
	})

	mgr := NewConnectionManager(DefaultConnectionTTL, zap.NewNop())
	defer mgr.Close()

	first, err := mgr.GetOrCreate(context.Background(), "acme", "conn-mgr-test", ConnParams{})
	require.NoError(t, err)
	second, err := mgr.GetOrCreate(context.Background(), "acme", "conn-mgr-test", ConnParams{})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&builds))
}

func TestConnectionManager_GetOrCreateKeysByClientAndDriver(t *testing.T) {
	Register(AdapterInfo{Driver: "conn-mgr-test-2", DisplayName: "Conn Mgr Test 2"}, func(ctx context.Context, cfg ConnParams) (Adapter, error) {
		return &fakeManagedAdapter{}, nil
	})

	mgr := NewConnectionManager(DefaultConnectionTTL, zap.NewNop())
	defer mgr.Close()

	forAcme, err := mgr.GetOrCreate(context.Background(), "acme", "conn-mgr-test-2", ConnParams{})
	require.NoError(t, err)
	forGlobex, err := mgr.GetOrCreate(context.Background(), "globex", "conn-mgr-test-2", ConnParams{})
	require.NoError(t, err)

	assert.NotSame(t, forAcme, forGlobex)
}

func TestConnectionManager_GetOrCreateErrorsForUncompiledDriver(t *testing.T) {
	mgr := NewConnectionManager(DefaultConnectionTTL, zap.NewNop())
	defer mgr.Close()

	_, err := mgr.GetOrCreate(context.Background(), "acme", "no-such-driver-xyz", ConnParams{})
	assert.Error(t, err)
}

func TestConnectionManager_ClosePropagatesToEveryPooledAdapter(t *testing.T) {
	adapter := &fakeManagedAdapter{}
	Register(AdapterInfo{Driver: "conn-mgr-test-3", DisplayName: "Conn Mgr Test 3"}, func(ctx context.Context, cfg ConnParams) (Adapter, error) {
		return adapter, nil
	})

	mgr := NewConnectionManager(DefaultConnectionTTL, zap.NewNop())
	_, err := mgr.GetOrCreate(context.Background(), "acme", "conn-mgr-test-3", ConnParams{})
	require.NoError(t, err)

	mgr.Close()

	assert.EqualValues(t, 1, atomic.LoadInt32(&adapter.closed))
}
