package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/mcplab/pkg/agent"
)

func TestValidateLoopConfig(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*LoopConfig)
		expectedError string
	}{
		{name: "defaults", mutate: func(*LoopConfig) {}},
		{name: "llm decider", mutate: func(c *LoopConfig) { c.Decider = DeciderLLM }},
		{name: "unknown decider", mutate: func(c *LoopConfig) { c.Decider = "oracle" }, expectedError: `unknown decider "oracle"`},
		{name: "zero iterations", mutate: func(c *LoopConfig) { c.Agent.MaxIterations = 0 }, expectedError: "--max-iterations"},
		{name: "unknown protocol", mutate: func(c *LoopConfig) { c.Protocol = "ws" }, expectedError: `unknown protocol "ws"`},
		{name: "bad header", mutate: func(c *LoopConfig) { c.Headers = []string{"token"} }, expectedError: "invalid header"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewLoopConfig()
			tt.mutate(config)
			err := validateLoopConfig(config)
			if tt.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}
}

func TestRulesLoopInProcess(t *testing.T) {
	ctx := t.Context()
	session, err := openToolSession(ctx, "", "mcp", nil)
	require.NoError(t, err)
	defer session.Close()

	decider, err := newDecider(DeciderRules)
	require.NoError(t, err)

	a := agent.New(agent.DefaultConfig(), decider, session, session)
	require.NoError(t, a.Initialize(ctx))

	assert.Contains(t, a.Run(ctx, "5と3を掛けて"), "= 15")
	assert.Contains(t, a.Run(ctx, "東京の天気は？"), "晴れ")
	assert.Equal(t, "こんにちは", a.Run(ctx, "こんにちは"))
}
