package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(llmtypes.Config{Model: "claude-3-5-haiku"})
	require.Error(t, err)
}

func TestDecide(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-20241022",
			"content": [{"type": "text", "text": "TOOL: multiply\n{\"a\": 5, \"b\": 3}"}],
			"stop_reason": "end_turn",
			"stop_sequence": null,
			"usage": {"input_tokens": 120, "output_tokens": 14}
		}`))
	}))
	defer ts.Close()

	c, err := New(llmtypes.Config{
		Model:          "claude-3-5-haiku",
		APIKey:         "sk-ant-test",
		BaseURL:        ts.URL,
		UseTemperature: true,
		Temperature:    0.1,
		Retry:          llmtypes.RetryConfig{Attempts: 1},
	})
	require.NoError(t, err)

	resp, err := c.Decide(context.Background(), llmtypes.Request{System: "pick a tool", User: "5 times 3"})
	require.NoError(t, err)
	assert.Equal(t, "TOOL: multiply\n{\"a\": 5, \"b\": 3}", resp.Text)
	assert.Equal(t, "claude-3-5-haiku-20241022", resp.Usage.Model)
	assert.Equal(t, 120, resp.Usage.PromptTokens)
	assert.Equal(t, 14, resp.Usage.CompletionTokens)
	assert.Equal(t, 134, resp.Usage.TotalTokens)

	assert.Equal(t, "claude-3-5-haiku", body["model"])
	assert.EqualValues(t, DefaultMaxTokens, body["max_tokens"])
	assert.InDelta(t, 0.1, body["temperature"], 1e-9)
	system, ok := body["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 1)
	assert.Equal(t, "pick a tool", system[0].(map[string]any)["text"])
}
