// Package cost turns token usage into USD cost and aggregates it per session.
package cost

import (
	"regexp"
)

// PriceEntry holds per-1,000-token USD rates for one model. A nil OutputPer1K
// means the model bills no output tokens.
type PriceEntry struct {
	InputPer1K  float64  `mapstructure:"input" json:"input" yaml:"input"`
	OutputPer1K *float64 `mapstructure:"output" json:"output,omitempty" yaml:"output,omitempty"`
}

// PriceTable maps a normalized model name to its rates.
type PriceTable map[string]PriceEntry

// DefaultModel is the model whose rates stand in for unknown models under PolicyDefault.
const DefaultModel = "gpt-4o-mini"

var dateSuffix = regexp.MustCompile(`-\d{4}-\d{2}-\d{2}$`)

// NormalizeModel strips a trailing -YYYY-MM-DD snapshot date so dated model
// names share pricing with their base model.
func NormalizeModel(name string) string {
	return dateSuffix.ReplaceAllString(name, "")
}

// perMillion converts the published per-1M-token prices into a PriceEntry.
func perMillion(input, output float64) PriceEntry {
	out := output / 1000
	return PriceEntry{InputPer1K: input / 1000, OutputPer1K: &out}
}

func inputOnlyPerMillion(input float64) PriceEntry {
	return PriceEntry{InputPer1K: input / 1000}
}

// DefaultPriceTable returns a fresh copy of the built-in rates.
func DefaultPriceTable() PriceTable {
	return PriceTable{
		// OpenAI
		"gpt-5":                        perMillion(1.25, 10.00),
		"gpt-5-mini":                   perMillion(0.25, 2.00),
		"gpt-5-nano":                   perMillion(0.05, 0.40),
		"gpt-5-chat-latest":            perMillion(1.25, 10.00),
		"gpt-4.1":                      perMillion(2.00, 8.00),
		"gpt-4.1-mini":                 perMillion(0.40, 1.60),
		"gpt-4.1-nano":                 perMillion(0.10, 0.40),
		"gpt-4o":                       perMillion(2.50, 10.00),
		"gpt-4o-mini":                  perMillion(0.15, 0.60),
		"gpt-realtime":                 perMillion(4.00, 16.00),
		"gpt-4o-realtime-preview":      perMillion(5.00, 20.00),
		"gpt-4o-mini-realtime-preview": perMillion(0.60, 2.40),
		"gpt-audio":                    perMillion(2.50, 10.00),
		"gpt-4o-audio-preview":         perMillion(2.50, 10.00),
		"gpt-4o-mini-audio-preview":    perMillion(0.15, 0.60),
		"gpt-4o-search-preview":        perMillion(2.50, 10.00),
		"gpt-4o-mini-search-preview":   perMillion(0.15, 0.60),
		"o1":                           perMillion(15.00, 60.00),
		"o1-pro":                       perMillion(150.00, 600.00),
		"o1-mini":                      perMillion(1.10, 4.40),
		"o3":                           perMillion(2.00, 8.00),
		"o3-pro":                       perMillion(20.00, 80.00),
		"o3-mini":                      perMillion(1.10, 4.40),
		"o3-deep-research":             perMillion(10.00, 40.00),
		"o4-mini":                      perMillion(1.10, 4.40),
		"o4-mini-deep-research":        perMillion(2.00, 8.00),
		"codex-mini-latest":            perMillion(1.50, 6.00),
		"computer-use-preview":         perMillion(3.00, 12.00),
		"gpt-image-1":                  inputOnlyPerMillion(5.00),

		// Anthropic
		"claude-opus-4-1":   perMillion(15.00, 75.00),
		"claude-opus-4":     perMillion(15.00, 75.00),
		"claude-sonnet-4-5": perMillion(3.00, 15.00),
		"claude-sonnet-4":   perMillion(3.00, 15.00),
		"claude-3-7-sonnet": perMillion(3.00, 15.00),
		"claude-haiku-4-5":  perMillion(1.00, 5.00),
		"claude-3-5-haiku":  perMillion(0.80, 4.00),

		// Google
		"gemini-2.5-pro":        perMillion(1.25, 10.00),
		"gemini-2.5-flash":      perMillion(0.30, 2.50),
		"gemini-2.5-flash-lite": perMillion(0.10, 0.40),
		"gemini-2.0-flash":      perMillion(0.10, 0.40),
	}
}

// Merge returns a copy of t with overrides applied on top.
func (t PriceTable) Merge(overrides PriceTable) PriceTable {
	merged := make(PriceTable, len(t)+len(overrides))
	for name, entry := range t {
		merged[name] = entry
	}
	for name, entry := range overrides {
		merged[NormalizeModel(name)] = entry
	}
	return merged
}

// Lookup finds the rates for a model after normalization.
func (t PriceTable) Lookup(model string) (PriceEntry, bool) {
	entry, ok := t[NormalizeModel(model)]
	return entry, ok
}
