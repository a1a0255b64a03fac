package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tooltypes "github.com/jingkaihe/mcplab/pkg/types/tools"
)

func TestDefaultRegistryDescriptors(t *testing.T) {
	r := DefaultRegistry()

	descriptors, err := r.Descriptors()
	require.NoError(t, err)
	require.Len(t, descriptors, 5)

	names := make([]string, len(descriptors))
	for i, d := range descriptors {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"multiply", "divide", "get_weather", "get_japan_pm", "calculator"}, names)

	assert.Equal(t, []tooltypes.ParameterSpec{
		{Name: "a", Type: "integer", Description: "First integer", Required: true},
		{Name: "b", Type: "integer", Description: "Second integer", Required: true},
	}, descriptors[0].Parameters)
	assert.Equal(t, "number", descriptors[1].Parameters[0].Type)
	assert.Empty(t, descriptors[3].Parameters)
}

func TestRegistryCallTool(t *testing.T) {
	r := DefaultRegistry()
	ctx := context.Background()

	got, err := r.CallTool(ctx, "multiply", map[string]any{"a": float64(5), "b": float64(3)})
	require.NoError(t, err)
	assert.Equal(t, 15, got)

	got, err = r.CallTool(ctx, "get_japan_pm", nil)
	require.NoError(t, err)
	assert.Equal(t, JapanPM, got)

	_, err = r.CallTool(ctx, "translate", nil)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(&MultiplyTool{}, &MultiplyTool{})
	assert.Error(t, err)
}

func TestRegistrySubset(t *testing.T) {
	r := DefaultRegistry()

	sub, err := r.Subset([]string{"get_weather", "multiply"})
	require.NoError(t, err)
	require.Len(t, sub.List(), 2)
	assert.Equal(t, "get_weather", sub.List()[0].Name())

	all, err := r.Subset(nil)
	require.NoError(t, err)
	assert.Len(t, all.List(), 5)

	_, err = r.Subset([]string{"nope"})
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestToOpenAITools(t *testing.T) {
	defs, err := ToOpenAITools(DefaultRegistry().List())
	require.NoError(t, err)
	require.Len(t, defs, 5)

	fn := defs[0].Function
	assert.Equal(t, "multiply", fn.Name)
	params, ok := fn.Parameters.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", params["type"])
	assert.NotContains(t, params, "$schema")
	assert.ElementsMatch(t, []any{"a", "b"}, params["required"])
}
