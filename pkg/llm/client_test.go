package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	c, err := NewClient(&Config{Endpoint: serverURL, Model: "gpt-4o-mini", APIKey: "test-key"}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresEndpointAndModel(t *testing.T) {
	_, err := NewClient(&Config{Model: "gpt-4o-mini"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewClient(&Config{Endpoint: "http://example.com"}, zap.NewNop())
	assert.Error(t, err)
}

func TestClient_GenerateResponse_SetsJSONResponseFormat(t *testing.T) {
	var captured openai.ChatCompletionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: `{"mode":"summary_only"}`}}},
			Usage:   openai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	result, err := c.GenerateResponse(context.Background(), "question", "system", 0, 500, true)
	require.NoError(t, err)
	assert.Equal(t, `{"mode":"summary_only"}`, result.Content)
	assert.Equal(t, 15, result.TotalTokens)
	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, captured.ResponseFormat.Type)
	assert.Equal(t, 500, captured.MaxTokens)
}

func TestClient_GenerateResponse_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.GenerateResponse(context.Background(), "question", "system", 0, 500, false)
	assert.Error(t, err)
}

func TestClient_GetModelAndEndpoint(t *testing.T) {
	c := newTestClient(t, "http://example.com")
	assert.Equal(t, "gpt-4o-mini", c.GetModel())
	assert.Equal(t, "http://example.com", c.GetEndpoint())
}
