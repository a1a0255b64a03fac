package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(llmtypes.Config{Model: "gemini-2.5-flash"})
	require.Error(t, err)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(context.Canceled))
	assert.True(t, isRetryableError(errors.New("Error 429: Too Many Requests")))
	assert.True(t, isRetryableError(errors.New("dial tcp: connection refused")))
	assert.False(t, isRetryableError(errors.New("invalid argument")))
}

func TestResponseTextAndUsage(t *testing.T) {
	response := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "DIRECT: "},
				{Text: "晴れです"},
			}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     30,
			CandidatesTokenCount: 8,
		},
	}

	assert.Equal(t, "DIRECT: 晴れです", responseText(response))
	usage := usageOf("gemini-2.5-flash", response)
	assert.Equal(t, 30, usage.PromptTokens)
	assert.Equal(t, 8, usage.CompletionTokens)
	assert.Equal(t, 38, usage.TotalTokens)

	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))
	assert.Zero(t, usageOf("gemini-2.5-flash", nil).TotalTokens)
}

func TestDecide(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "gemini-2.5-flash:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "DIRECT: こんにちは"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 4, "totalTokenCount": 16}
		}`))
	}))
	defer ts.Close()

	c, err := New(llmtypes.Config{Model: "gemini-2.5-flash", APIKey: "g-test", BaseURL: ts.URL})
	require.NoError(t, err)

	resp, err := c.Decide(context.Background(), llmtypes.Request{System: "sys", User: "こんにちは"})
	require.NoError(t, err)
	assert.Equal(t, "DIRECT: こんにちは", resp.Text)
	assert.Equal(t, "gemini-2.5-flash", resp.Usage.Model)
	assert.Equal(t, 16, resp.Usage.TotalTokens)
}
