package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/schema-intel/pkg/apperrors"
	"github.com/ekaya-inc/schema-intel/pkg/config"
	"github.com/ekaya-inc/schema-intel/pkg/model"
)

type fakeGraphReader struct{}

func (fakeGraphReader) Tables(ctx context.Context, clientID string) ([]model.TableNode, error) {
	return nil, nil
}
func (fakeGraphReader) Columns(ctx context.Context, clientID, table string) ([]model.ColumnNode, error) {
	return nil, nil
}
func (fakeGraphReader) OutgoingEdges(ctx context.Context, clientID, table string) ([]model.RelationshipEdge, error) {
	return nil, nil
}

type fakeResultCache struct {
	stored map[string]model.ChatResponse
}

func newFakeResultCache() *fakeResultCache {
	return &fakeResultCache{stored: make(map[string]model.ChatResponse)}
}
func (c *fakeResultCache) Get(ctx context.Context, key string) (model.ChatResponse, bool) {
	resp, ok := c.stored[key]
	return resp, ok
}
func (c *fakeResultCache) Set(ctx context.Context, key string, resp model.ChatResponse) {
	c.stored[key] = resp
}

func noLLMConfig() *config.LLMConfig {
	// Empty endpoint/model forces llm.NewClientFor to fail at construction,
	// so these tests exercise the error-mode-normalization paths without
	// ever reaching the network.
	return &config.LLMConfig{Backend: "openai"}
}

func newTestEngine(cache ResultCache) *Engine {
	return New(noLLMConfig(), fakeGraphReader{}, cache, nil, nil, nil, 0, zap.NewNop())
}

func TestChat_ConversationalAgent_ReturnsCachedResponseVerbatim(t *testing.T) {
	cache := newFakeResultCache()
	req := model.ChatRequest{ClientID: "acme", UserMessage: "how many orders today?", AgentName: model.AgentConversational}
	cached := model.ChatResponse{
		Mode:      model.ModeSQLAndSummary,
		Summary:   "12 orders today",
		Dataframe: &model.Dataframe{Columns: []string{"n"}, Rows: []map[string]any{{"n": 12}}},
	}
	cache.Set(context.Background(), model.CacheKey(req.ClientID, req.UserMessage), cached)

	eng := newTestEngine(cache)
	resp := eng.Chat(context.Background(), req)

	assert.Equal(t, cached.Summary, resp.Summary)
	assert.Equal(t, cached.Mode, resp.Mode)
	require.NotNil(t, resp.Dataframe)
}

func TestChat_ConversationalAgent_LLMUnavailableReturnsSummaryOnlyMode(t *testing.T) {
	eng := newTestEngine(newFakeResultCache())
	req := model.ChatRequest{ClientID: "acme", UserMessage: "how many orders today?", AgentName: model.AgentConversational}

	resp := eng.Chat(context.Background(), req)

	assert.Equal(t, model.ModeSummaryOnly, resp.Mode)
	assert.Equal(t, string(apperrors.KindLLMUnavailable), resp.Error)
	assert.Nil(t, resp.Dataframe)
}

func TestChat_EngineAgent_LLMUnavailableReturnsSummaryOnlyMode(t *testing.T) {
	eng := newTestEngine(newFakeResultCache())
	req := model.ChatRequest{ClientID: "acme", UserMessage: "how many orders today?", AgentName: model.AgentNeo4jEngine}

	resp := eng.Chat(context.Background(), req)

	assert.Equal(t, model.ModeSummaryOnly, resp.Mode)
	assert.Equal(t, string(apperrors.KindLLMUnavailable), resp.Error)
}

func TestChat_FullHistoryAppendsCurrentUserMessage(t *testing.T) {
	eng := newTestEngine(newFakeResultCache())
	req := model.ChatRequest{
		ClientID:    "acme",
		UserMessage: "and yesterday?",
		AgentName:   model.AgentConversational,
		History:     []model.Message{{Role: model.MessageUser, Content: "how many orders today?"}},
	}

	resp := eng.Chat(context.Background(), req)

	require.Len(t, resp.FullHistory, 2)
	assert.Equal(t, "and yesterday?", resp.FullHistory[1].Content)
}
