package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
)

func TestRuleDecider(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"5と3を掛けて", "TOOL: multiply\n{\"a\": 5, \"b\": 3}"},
		{"12 × 4 は？", "TOOL: multiply\n{\"a\": 12, \"b\": 4}"},
		{"What is 7 times 6?", "TOOL: multiply\n{\"a\": 7, \"b\": 6}"},
		{"Multiply -2 and 9", "TOOL: multiply\n{\"a\": -2, \"b\": 9}"},
		{"計算して", "DIRECT: Multiplication needs two numbers."},
		{"東京の天気は？", "TOOL: get_weather\n{\"city\": \"東京\"}"},
		{"札幌の気温を教えて", "TOOL: get_weather\n{\"city\": \"札幌\"}"},
		{"What's the weather in Osaka?", "TOOL: get_weather\n{\"city\": \"Osaka\"}"},
		{"weather please", "DIRECT: Which city would you like the weather for?"},
		{"Result: multiply(a=5, b=3) = 15", "DIRECT: multiply(a=5, b=3) = 15"},
		{"Error: boom", "DIRECT: Error: boom"},
		{"こんにちは", "DIRECT: こんにちは"},
	}

	d := NewRuleDecider()
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			resp, err := d.Decide(context.Background(), llmtypes.Request{User: tt.input})
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Text)
			assert.Equal(t, RuleModel, resp.Model)
			assert.False(t, resp.Usage.HasAccounting())
		})
	}
}

func TestRuleDeciderFallbackRequest(t *testing.T) {
	resp, err := NewRuleDecider().Decide(context.Background(), llmtypes.Request{System: DirectAnswerPrompt, User: "5と3を掛けて"})
	require.NoError(t, err)
	assert.Equal(t, "DIRECT: 5と3を掛けて", resp.Text)
}

func TestRuleDeciderOutputParses(t *testing.T) {
	resp, err := NewRuleDecider().Decide(context.Background(), llmtypes.Request{User: "東京の天気は？"})
	require.NoError(t, err)

	d := ParseDecision(resp.Text, learningServer().tools)
	require.Equal(t, DecisionTool, d.Kind)
	assert.Equal(t, "get_weather(city=東京)", FormatCall(d.Tool, d.Params))
}
