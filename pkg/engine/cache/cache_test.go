package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/schema-intel/pkg/config"
	"github.com/ekaya-inc/schema-intel/pkg/model"
)

func newFallbackOnlyCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(config.RedisConfig{TTLSecs: 60}, zap.NewNop())
	require.NoError(t, err)
	require.Nil(t, c.redis)
	return c
}

func TestCache_MissWhenEmpty(t *testing.T) {
	c := newFallbackOnlyCache(t)
	_, ok := c.Get(context.Background(), "missing")
	assert.False(t, ok)
}

func TestCache_SetThenGetRoundTrips(t *testing.T) {
	c := newFallbackOnlyCache(t)
	resp := model.ChatResponse{
		Mode:      model.ModeSQLAndSummary,
		Summary:   "3 orders today",
		Dataframe: &model.Dataframe{Columns: []string{"n"}, Rows: []map[string]any{{"n": 3}}},
	}
	c.Set(context.Background(), "key1", resp)

	got, ok := c.Get(context.Background(), "key1")
	require.True(t, ok)
	assert.Equal(t, resp.Summary, got.Summary)
}

func TestCache_DoesNotCacheErrorResponses(t *testing.T) {
	c := newFallbackOnlyCache(t)
	resp := model.ChatResponse{Mode: model.ModeSummaryOnly, Error: "sql_unsafe"}
	c.Set(context.Background(), "key-err", resp)

	_, ok := c.Get(context.Background(), "key-err")
	assert.False(t, ok)
}

func TestCache_DoesNotCacheResponsesWithoutDataframe(t *testing.T) {
	c := newFallbackOnlyCache(t)
	resp := model.ChatResponse{Mode: model.ModeSummaryOnly, Summary: "no data to show"}
	c.Set(context.Background(), "key-nodf", resp)

	_, ok := c.Get(context.Background(), "key-nodf")
	assert.False(t, ok)
}

func TestLRU_EvictsOldestOnOverflow(t *testing.T) {
	l := newLRU(2)
	l.set("a", model.ChatResponse{Summary: "a"}, time.Minute)
	l.set("b", model.ChatResponse{Summary: "b"}, time.Minute)
	l.set("c", model.ChatResponse{Summary: "c"}, time.Minute)

	_, ok := l.get("a")
	assert.False(t, ok, "oldest entry should have been evicted")

	_, ok = l.get("c")
	assert.True(t, ok)
}

func TestLRU_ExpiresEntriesAfterTTL(t *testing.T) {
	l := newLRU(10)
	l.set("a", model.ChatResponse{Summary: "a"}, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := l.get("a")
	assert.False(t, ok)
}
