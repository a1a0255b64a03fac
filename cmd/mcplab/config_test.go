package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/mcplab/pkg/config"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "ENV:OPENAI_API_KEY", maskSecret("ENV:OPENAI_API_KEY"))
	assert.Equal(t, "********", maskSecret("short"))
	assert.Equal(t, "sk-a****wxyz", maskSecret("sk-abcdefghijklmnopqrstuvwxyz"))
}

func TestRenderConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "mcpServers": {
    "remote": {"url": "https://tools.example.com/mcp", "headers": {"Authorization": "Bearer 0123456789abcdef"}}
  },
  "llm": {"model": "gpt-4o-mini", "apiKey": "sk-abcdefghijklmnopqrstuvwxyz"},
  "pricing": {"models": {"my-model": {"input": 0.001, "output": 0.002}}}
}`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	out, err := renderConfig(cfg.File())
	require.NoError(t, err)

	assert.Contains(t, out, "apiKey: sk-a****wxyz")
	assert.Contains(t, out, "Bear****cdef")
	assert.NotContains(t, out, "0123456789abcdef")
	assert.Contains(t, out, "url: https://tools.example.com/mcp")
	assert.Contains(t, out, "maxIterations: 5")
	assert.Contains(t, out, "input: 0.001")

	// the loaded configuration is not modified
	assert.Equal(t, "sk-abcdefghijklmnopqrstuvwxyz", cfg.File().LLM.APIKey)
}
