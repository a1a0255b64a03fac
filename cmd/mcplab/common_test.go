package main

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/mcplab/pkg/cost"
	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
)

func setViper(t *testing.T, key string, value any) {
	t.Helper()
	previous := viper.Get(key)
	viper.Set(key, value)
	t.Cleanup(func() { viper.Set(key, previous) })
}

func TestApplyModelOverride(t *testing.T) {
	base := llmtypes.Config{Provider: "openai", Model: "gpt-4o-mini", APIKey: "sk-configured"}

	t.Run("no override", func(t *testing.T) {
		cfg, err := applyModelOverride(base)
		require.NoError(t, err)
		assert.Equal(t, base, cfg)
	})

	t.Run("same provider keeps the key", func(t *testing.T) {
		setViper(t, "model", "gpt-4o")
		cfg, err := applyModelOverride(base)
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o", cfg.Model)
		assert.Equal(t, "openai", cfg.Provider)
		assert.Equal(t, "sk-configured", cfg.APIKey)
	})

	t.Run("new provider resolves its key", func(t *testing.T) {
		setViper(t, "model", "claude-3-5-haiku-latest")
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
		cfg, err := applyModelOverride(base)
		require.NoError(t, err)
		assert.Equal(t, "anthropic", cfg.Provider)
		assert.Equal(t, "sk-ant", cfg.APIKey)
	})

	t.Run("new provider without a key", func(t *testing.T) {
		setViper(t, "model", "gemini-2.0-flash")
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("GOOGLE_API_KEY", "")
		_, err := applyModelOverride(base)
		assert.Error(t, err)
	})
}

func TestDefaultCalculator(t *testing.T) {
	calc, err := defaultCalculator()
	require.NoError(t, err)
	assert.Equal(t, cost.PolicyDefault, calc.Policy())

	setViper(t, "pricing.missing_policy", "error")
	calc, err = defaultCalculator()
	require.NoError(t, err)
	assert.Equal(t, cost.PolicyError, calc.Policy())

	setViper(t, "pricing.missing_policy", "guess")
	_, err = defaultCalculator()
	assert.Error(t, err)
}

func TestNewTrackerWithLedger(t *testing.T) {
	setViper(t, "usage.path", t.TempDir()+"/storage.db")

	tracker, closeLedger := newTracker(t.Context(), cost.NewCalculator(cost.DefaultPriceTable(), cost.PolicyError), "s-1", false)
	defer closeLedger()

	track(t.Context(), tracker, llmtypes.NewUsageRecord("gpt-4o", 1000, 1000, 0))
	track(t.Context(), tracker, llmtypes.UsageRecord{})

	sum := tracker.Summary()
	assert.Equal(t, 1, sum.Requests)
	assert.InDelta(t, 0.0125, sum.TotalCost, 1e-9)
}
