package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tooltypes "github.com/jingkaihe/mcplab/pkg/types/tools"
)

func TestBuildDecisionPrompt(t *testing.T) {
	tools := []tooltypes.ToolDescriptor{
		{
			Name:        "multiply",
			Description: "Multiply two integers",
			Parameters: []tooltypes.ParameterSpec{
				{Name: "a", Type: "integer", Required: true},
				{Name: "b", Type: "integer", Required: false},
			},
		},
		{Name: "get_japan_pm", Description: "Current prime minister"},
	}

	prompt, err := BuildDecisionPrompt(tools, map[string]string{"get_japan_pm": "Who leads Japan"})
	require.NoError(t, err)

	assert.Contains(t, prompt, "- multiply: Multiply two integers [parameters: a (integer, required), b (integer, optional)]")
	assert.Contains(t, prompt, "- get_japan_pm: Who leads Japan\n")
	assert.Contains(t, prompt, `"TOOL: <tool name>"`)
	assert.Contains(t, prompt, `"DIRECT: <your answer>"`)
	assert.Equal(t, "Current prime minister", tools[1].Description)
}

func TestBuildDecisionPromptLowercasedOverride(t *testing.T) {
	tools := []tooltypes.ToolDescriptor{{Name: "getWeather", Description: "Weather lookup"}}

	prompt, err := BuildDecisionPrompt(tools, map[string]string{"getweather": "天気を調べる"})
	require.NoError(t, err)
	assert.Contains(t, prompt, "- getWeather: 天気を調べる\n")
}

func TestBuildDecisionPromptEmptyCatalog(t *testing.T) {
	prompt, err := BuildDecisionPrompt(nil, nil)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Available tools:\n(none)")
}
