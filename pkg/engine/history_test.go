package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/schema-intel/pkg/model"
)

func TestTrimHistory_KeepsEverythingUnderBudget(t *testing.T) {
	history := []model.Message{
		{Role: model.MessageUser, Content: "hi"},
		{Role: model.MessageAssistant, Content: "hello"},
	}
	trimmed := trimHistory(history, 100)
	assert.Equal(t, history, trimmed)
}

func TestTrimHistory_NeverDropsSystemMessage(t *testing.T) {
	system := model.Message{Role: model.MessageSystem, Content: strings.Repeat("s", 50)}
	history := []model.Message{system}
	for i := 0; i < 20; i++ {
		history = append(history, model.Message{Role: model.MessageUser, Content: strings.Repeat("x", 50)})
	}

	trimmed := trimHistory(history, 10) // 10 tokens * 4 chars = 40 char budget, far under total

	require.NotEmpty(t, trimmed)
	assert.Equal(t, system, trimmed[0])
}

func TestTrimHistory_DropsOldestNonSystemFirst(t *testing.T) {
	history := []model.Message{
		{Role: model.MessageUser, Content: strings.Repeat("a", 20)},
		{Role: model.MessageAssistant, Content: strings.Repeat("b", 20)},
		{Role: model.MessageUser, Content: strings.Repeat("c", 20)},
	}
	// budget of 10 tokens = 40 chars; total is 60, so the oldest message
	// ("a"s) must be dropped first.
	trimmed := trimHistory(history, 10)

	for _, m := range trimmed {
		assert.NotEqual(t, strings.Repeat("a", 20), m.Content)
	}
	assert.Equal(t, strings.Repeat("c", 20), trimmed[len(trimmed)-1].Content)
}

func TestRenderTranscript_OmitsSystemMessages(t *testing.T) {
	history := []model.Message{
		{Role: model.MessageSystem, Content: "you are a helpful agent"},
		{Role: model.MessageUser, Content: "how many orders today?"},
		{Role: model.MessageAssistant, Content: "42 orders"},
	}
	out := renderTranscript(history)
	assert.NotContains(t, out, "you are a helpful agent")
	assert.Contains(t, out, "user: how many orders today?")
	assert.Contains(t, out, "assistant: 42 orders")
}
