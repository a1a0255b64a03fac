package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/mcplab/pkg/agent"
	"github.com/jingkaihe/mcplab/pkg/cost"
	"github.com/jingkaihe/mcplab/pkg/mcp/client"
	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
	tooltypes "github.com/jingkaihe/mcplab/pkg/types/tools"
)

const sampleConfig = `{
  "mcpServers": {
    "learning-server": {"host": "0.0.0.0", "port": 9001, "path": "/mcp"},
    "remote": {"url": "https://tools.example.com/mcp", "headers": {"Authorization": "Bearer x"}},
    "plain": {"transport": "http", "port": 8000, "path": "/"},
    "local": {"command": "mcplab", "args": ["serve", "--protocol", "stdio"], "env": {"OPENAI_API_KEY": "k"}},
    "bare": {}
  },
  "llm": {
    "model": "gpt-4.1",
    "apiKey": "ENV:MCPLAB_TEST_KEY",
    "temperature": 0.3,
    "maxTokens": 800,
    "modelSettings": {
      "gpt-4.1": {"maxTokens": 1200},
      "gpt-5-mini": {"useMaxCompletionTokens": true, "maxCompletionTokens": 2000, "useTemperature": false},
      "o3-mini": {"useMaxCompletionTokens": true}
    }
  },
  "agent": {"maxIterations": 3, "debugMode": false, "fallbackToDirect": false, "stopAfterTool": true, "timeout": 10},
  "tools": {"get_weather": {"description": "天気を調べる"}},
  "pricing": {"missingPolicy": "error", "models": {"my-model": {"input": 0.001, "output": 0.002}}}
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcp.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func load(t *testing.T, content string) *Config {
	t.Helper()
	c, err := Load(writeConfig(t, content))
	require.NoError(t, err)
	return c
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")

	_, err = Load(writeConfig(t, `{"mcpServers": {`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config file")
}

func TestServerURL(t *testing.T) {
	c := load(t, sampleConfig)

	tests := []struct {
		server   string
		expected string
	}{
		{"learning-server", "http://localhost:9001/mcp"},
		{"remote", "https://tools.example.com/mcp"},
		{"plain", "http://localhost:8000/"},
		{"bare", "http://localhost:8001/mcp"},
	}
	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			url, err := c.ServerURL(tt.server)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, url)
		})
	}

	_, err := c.ServerURL("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrServerNotFound))
}

func TestClientConfig(t *testing.T) {
	c := load(t, sampleConfig)

	remote, err := c.ClientConfig("remote")
	require.NoError(t, err)
	assert.Equal(t, "https://tools.example.com/mcp", remote.URL)
	assert.Equal(t, "Bearer x", remote.Headers["authorization"])

	plain, err := c.ClientConfig("plain")
	require.NoError(t, err)
	assert.Equal(t, client.TransportHTTP, plain.Transport)
	assert.Equal(t, "http://localhost:8000/", plain.URL)

	local, err := c.ClientConfig("local")
	require.NoError(t, err)
	assert.Equal(t, "mcplab", local.Command)
	assert.Equal(t, []string{"serve", "--protocol", "stdio"}, local.Args)
	assert.Equal(t, map[string]string{"OPENAI_API_KEY": "k"}, local.Env)
	assert.Empty(t, local.URL)
}

func TestClientConfigs(t *testing.T) {
	c := load(t, sampleConfig)

	configs, err := c.ClientConfigs()
	require.NoError(t, err)
	assert.Len(t, configs, 5)
	assert.Equal(t, "http://localhost:9001/mcp", configs["learning-server"].URL)
	assert.Equal(t, "http://localhost:8001/mcp", configs["bare"].URL)
	assert.Equal(t, "mcplab", configs["local"].Command)
}

func TestLLMConfig(t *testing.T) {
	t.Setenv("MCPLAB_TEST_KEY", "sk-from-env")
	c := load(t, sampleConfig)

	config, err := c.LLMConfig()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", config.Model)
	assert.Equal(t, llmtypes.ProviderOpenAI, config.Provider)
	assert.Equal(t, "sk-from-env", config.APIKey)
	assert.Equal(t, 1200, config.MaxTokens)
	assert.False(t, config.UseMaxCompletionTokens)
	assert.True(t, config.UseTemperature)
	assert.InDelta(t, 0.3, config.Temperature, 1e-9)
}

func TestLLMConfigModelSettings(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-default")

	tests := []struct {
		model          string
		maxTokens      int
		completion     bool
		useTemperature bool
	}{
		{model: "gpt-5-mini", maxTokens: 2000, completion: true, useTemperature: false},
		{model: "o3-mini", maxTokens: DefaultMaxTokens, completion: true, useTemperature: true},
		{model: "gpt-4o-mini", maxTokens: 800, completion: false, useTemperature: true},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			content := `{"llm": {"model": "` + tt.model + `", "maxTokens": 800, "modelSettings": {
				"gpt-5-mini": {"useMaxCompletionTokens": true, "maxCompletionTokens": 2000, "useTemperature": false},
				"o3-mini": {"useMaxCompletionTokens": true}}}}`
			config, err := load(t, content).LLMConfig()
			require.NoError(t, err)
			assert.Equal(t, "sk-default", config.APIKey)
			assert.Equal(t, tt.maxTokens, config.MaxTokens)
			assert.Equal(t, tt.completion, config.UseMaxCompletionTokens)
			assert.Equal(t, tt.useTemperature, config.UseTemperature)
			if tt.useTemperature {
				assert.InDelta(t, DefaultTemperature, config.Temperature, 1e-9)
			} else {
				assert.Zero(t, config.Temperature)
			}
		})
	}
}

func TestLLMConfigMissingKey(t *testing.T) {
	t.Setenv("MCPLAB_TEST_KEY", "")
	_, err := load(t, sampleConfig).LLMConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MCPLAB_TEST_KEY")
}

func TestAgentConfig(t *testing.T) {
	c := load(t, sampleConfig)

	config := c.AgentConfig()
	assert.Equal(t, 3, config.MaxIterations)
	assert.False(t, config.FallbackToDirect)
	assert.True(t, config.StopAfterTool)
	assert.False(t, config.Debug)
	assert.Equal(t, map[string]string{"get_weather": "天気を調べる"}, config.DescriptionOverrides)
	assert.Equal(t, 10*time.Second, c.Timeout())

	desc, ok := c.ToolDescription("get_weather")
	assert.True(t, ok)
	assert.Equal(t, "天気を調べる", desc)
	_, ok = c.ToolDescription("multiply")
	assert.False(t, ok)
}

func TestMixedCaseToolOverride(t *testing.T) {
	c := load(t, `{"mcpServers": {}, "tools": {"getWeather": {"description": "天気を調べる"}}}`)

	tools := []tooltypes.ToolDescriptor{{Name: "getWeather", Description: "Weather lookup"}}
	prompt, err := agent.BuildDecisionPrompt(tools, c.DescriptionOverrides())
	require.NoError(t, err)
	assert.Contains(t, prompt, "- getWeather: 天気を調べる")
}

func TestEmptyServerEntries(t *testing.T) {
	c := load(t, `{"mcpServers": {"Bare": {}, "other": {"port": 9000}}}`)

	url, err := c.ServerURL("bare")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8001/mcp", url)

	url, err = c.ServerURL("other")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/mcp", url)

	_, err = c.ServerURL("missing")
	assert.ErrorIs(t, err, ErrServerNotFound)
}

func TestAgentConfigDefaults(t *testing.T) {
	c := load(t, `{"mcpServers": {}}`)

	config := c.AgentConfig()
	assert.Equal(t, agent.DefaultMaxIterations, config.MaxIterations)
	assert.True(t, config.FallbackToDirect)
	assert.False(t, config.StopAfterTool)
	assert.True(t, config.Debug)
	assert.Equal(t, time.Duration(DefaultTimeout)*time.Second, c.Timeout())

	policy, err := c.MissingPricePolicy()
	require.NoError(t, err)
	assert.Equal(t, cost.PolicyDefault, policy)
}

func TestPricing(t *testing.T) {
	c := load(t, sampleConfig)

	policy, err := c.MissingPricePolicy()
	require.NoError(t, err)
	assert.Equal(t, cost.PolicyError, policy)

	table := c.PriceTable()
	entry, ok := table.Lookup("my-model")
	require.True(t, ok)
	assert.InDelta(t, 0.001, entry.InputPer1K, 1e-12)
	require.NotNil(t, entry.OutputPer1K)
	assert.InDelta(t, 0.002, *entry.OutputPer1K, 1e-12)

	_, ok = table.Lookup("gpt-4o-mini-2024-07-18")
	assert.True(t, ok)

	calc, err := c.Calculator()
	require.NoError(t, err)
	assert.Equal(t, cost.PolicyError, calc.Policy())
}
