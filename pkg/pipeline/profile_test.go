package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/schema-intel/pkg/datasource"
	"github.com/ekaya-inc/schema-intel/pkg/model"
)

type fakeTableReader struct {
	batches map[string][]datasource.RowBatch
	errs    map[string]error
}

func (f *fakeTableReader) TestConnection(ctx context.Context) error { return nil }
func (f *fakeTableReader) Close() error                             { return nil }

func (f *fakeTableReader) StreamTable(ctx context.Context, table datasource.TableRef, batchSize int, fn func(datasource.RowBatch) error) error {
	if err, ok := f.errs[table.Name]; ok {
		return err
	}
	for _, b := range f.batches[table.Name] {
		if err := fn(b); err != nil {
			return err
		}
	}
	return nil
}

func TestProfileTables_SkipsTablesWithZeroRowCount(t *testing.T) {
	reader := &fakeTableReader{batches: map[string][]datasource.RowBatch{}}
	schema := model.RawSchema{Tables: map[string]model.Table{
		"empty": {RowCount: 0, Columns: []model.Column{{Name: "id", SQLType: "integer"}}},
	}}

	profile := ProfileTables(context.Background(), reader, "public", schema, 0, 0, zap.NewNop())
	assert.Empty(t, profile)
}

func TestProfileTables_SwallowsPerTableErrorsAndContinues(t *testing.T) {
	reader := &fakeTableReader{
		batches: map[string][]datasource.RowBatch{
			"good": {{Columns: []string{"id"}, Rows: [][]any{{1}, {2}}}},
		},
		errs: map[string]error{"bad": errors.New("connection reset")},
	}
	schema := model.RawSchema{Tables: map[string]model.Table{
		"good": {RowCount: 2, Columns: []model.Column{{Name: "id", SQLType: "integer"}}},
		"bad":  {RowCount: 5, Columns: []model.Column{{Name: "id", SQLType: "integer"}}},
	}}

	profile := ProfileTables(context.Background(), reader, "public", schema, 0, 0, zap.NewNop())
	require.Contains(t, profile, "good")
	assert.NotContains(t, profile, "bad")
}

func TestProfileColumn_NullPctComputedOverTotalRows(t *testing.T) {
	cp := profileColumn([]any{"a", nil, "b", nil}, "varchar")
	assert.Equal(t, int64(4), cp.TotalRows)
	assert.Equal(t, int64(2), cp.NullCount)
	assert.Equal(t, 50.0, cp.NullPct)
}

func TestProfileColumn_DetectsUUIDPattern(t *testing.T) {
	cp := profileColumn([]any{
		"550e8400-e29b-41d4-a716-446655440000",
		"6ba7b810-9dad-11d1-80b4-00c04fd430c8",
	}, "uuid")
	assert.Equal(t, model.IDPatternUUID, cp.Patterns.IDPattern)
}

func TestProfileColumn_DetectsEmailPattern(t *testing.T) {
	cp := profileColumn([]any{"a@example.com", "b@example.com"}, "varchar")
	assert.True(t, cp.Patterns.Email)
}

func TestProfileColumn_ComputesNumericStatsWhenDeclaredNumeric(t *testing.T) {
	cp := profileColumn([]any{"1", "2", "3", "4", "5"}, "integer")
	require.NotNil(t, cp.Numeric)
	assert.Equal(t, 1.0, cp.Numeric.Min)
	assert.Equal(t, 5.0, cp.Numeric.Max)
	assert.Equal(t, 3.0, cp.Numeric.Mean)
}

func TestProfileColumn_NoNumericStatsForNonNumericType(t *testing.T) {
	cp := profileColumn([]any{"1", "2", "3"}, "varchar")
	assert.Nil(t, cp.Numeric)
}

func TestProfileColumn_FlagsOutliersViaIQR(t *testing.T) {
	values := []any{"1", "2", "3", "4", "5", "6", "7", "100"}
	cp := profileColumn(values, "integer")
	assert.True(t, cp.Anomalies.HasOutliers)
	assert.GreaterOrEqual(t, cp.Anomalies.OutlierCount, 1)
}

func TestProfileColumn_TypeMismatchWhenMostlyNonNumeric(t *testing.T) {
	cp := profileColumn([]any{"abc", "def", "1"}, "integer")
	assert.True(t, cp.Anomalies.TypeMismatch)
}

func TestProfileColumn_EnumLikeWhenLowDistinctCount(t *testing.T) {
	cp := profileColumn([]any{"open", "closed", "open", "closed", "open"}, "varchar")
	assert.True(t, cp.Patterns.EnumLike)
}

func TestProfileColumn_IsBinaryWhenExactlyTwoDistinctValues(t *testing.T) {
	cp := profileColumn([]any{"yes", "no", "yes", "no"}, "varchar")
	assert.True(t, cp.Patterns.IsBinary)
}

func TestPercentile_SingleValueReturnsItself(t *testing.T) {
	assert.Equal(t, 42.0, percentile([]float64{42}, 50))
}

func TestPercentile_InterpolatesBetweenRanks(t *testing.T) {
	got := percentile([]float64{1, 2, 3, 4}, 50)
	assert.InDelta(t, 2.5, got, 0.0001)
}
