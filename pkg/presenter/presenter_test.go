package presenter

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jingkaihe/mcplab/pkg/cost"
	"github.com/jingkaihe/mcplab/pkg/usage"
)

func newTest(input string) (*TerminalPresenter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewWithOptions(&out, &errOut, strings.NewReader(input), ColorNever), &out, &errOut
}

func TestDetectColorMode(t *testing.T) {
	tests := []struct {
		name     string
		noColor  string
		mcplab   string
		expected ColorMode
	}{
		{"NO_COLOR wins", "1", "always", ColorNever},
		{"always", "", "always", ColorAlways},
		{"force", "", "force", ColorAlways},
		{"never", "", "never", ColorNever},
		{"off", "", "OFF", ColorNever},
		{"unset", "", "", ColorAuto},
		{"garbage", "", "purple", ColorAuto},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColor)
			t.Setenv("MCPLAB_COLOR", tt.mcplab)
			assert.Equal(t, tt.expected, detectColorMode())
		})
	}
}

func TestMessages(t *testing.T) {
	p, out, errOut := newTest("")

	p.Success("connected")
	p.Warning("no key")
	p.Info("plain")
	p.Section("Tools")
	p.Error(errors.New("boom"), "serve")
	p.Error(nil, "ignored")

	assert.Equal(t, "✓ connected\n⚠ no key\nplain\n\nTools\n=====\n", out.String())
	assert.Equal(t, "[ERROR] serve: boom\n", errOut.String())
}

func TestQuiet(t *testing.T) {
	p, out, errOut := newTest("")
	p.SetQuiet(true)

	p.Success("x")
	p.Info("x")
	p.Cost(cost.Result{Model: "gpt-4o"})
	p.Error(errors.New("still shown"), "")

	assert.Empty(t, out.String())
	assert.Equal(t, "[ERROR] still shown\n", errOut.String())
}

func TestPrompt(t *testing.T) {
	p, out, _ := newTest("  こんにちは \nquit\n")

	line, ok := p.Prompt("> ")
	assert.True(t, ok)
	assert.Equal(t, "こんにちは", line)

	line, ok = p.Prompt("> ")
	assert.True(t, ok)
	assert.Equal(t, "quit", line)

	_, ok = p.Prompt("> ")
	assert.False(t, ok)
	assert.Equal(t, "> > > ", out.String())
}

func TestCost(t *testing.T) {
	p, out, _ := newTest("")
	p.Cost(cost.Result{
		Model:            "gpt-4o-mini-2024-07-18",
		PricedAs:         "gpt-4o-mini",
		PromptTokens:     1000,
		CompletionTokens: 500,
		TotalTokens:      1500,
		InputCost:        0.00015,
		OutputCost:       0.0003,
		TotalCost:        0.00045,
	})
	assert.Contains(t, out.String(), "gpt-4o-mini-2024-07-18 (priced as gpt-4o-mini)")
	assert.Contains(t, out.String(), "Total tokens:          1500")
}

func TestRenderSummary(t *testing.T) {
	box := RenderSummary("Session summary", []Field{{"Config", "mcp.json"}, {"Server", "http://localhost:8001/mcp"}}, cost.Summary{
		Model:                 "gpt-4o-mini",
		Requests:              2,
		PromptTokens:          1200,
		CompletionTokens:      300,
		TotalTokens:           1500,
		TotalCost:             0.0004,
		AverageCostPerRequest: 0.0002,
	})

	assert.Contains(t, box, "Session summary")
	assert.Contains(t, box, "mcp.json")
	assert.Contains(t, box, "http://localhost:8001/mcp")
	assert.Contains(t, box, "1,200")
	assert.Contains(t, box, "gpt-4o-mini")
	assert.Contains(t, box, cost.FormatCost(0.0002))

	empty := RenderSummary("Session summary", nil, cost.Summary{})
	assert.Contains(t, empty, "Model used")
	assert.Contains(t, empty, "-")
}

func TestUsageStats(t *testing.T) {
	p, out, _ := newTest("")
	p.UsageStats(usage.Stats{})
	assert.Contains(t, out.String(), "No usage recorded")

	out.Reset()
	day := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	p.UsageStats(usage.Stats{
		Daily:  []usage.DailyUsage{{Date: day, Totals: usage.Totals{Requests: 3, PromptTokens: 1500, TotalCost: 0.01}}},
		Models: []usage.ModelUsage{{Model: "gpt-4o", Totals: usage.Totals{Requests: 3, TotalTokens: 2000, TotalCost: 0.01}}},
		Total:  usage.Totals{Requests: 3, TotalTokens: 2000, TotalCost: 0.01},
	})
	assert.Contains(t, out.String(), "2026-10-14")
	assert.Contains(t, out.String(), "1,500")
	assert.Contains(t, out.String(), "gpt-4o")
	assert.Contains(t, out.String(), "Total: 3 requests, 2,000 tokens")
}
