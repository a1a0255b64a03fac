package cost

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/mcplab/pkg/logger"
	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
)

// ErrPricingNotFound is returned under PolicyError when a model has no price entry.
var ErrPricingNotFound = errors.New("pricing not found")

// MissingPricePolicy decides what Compute does for a model absent from the table.
type MissingPricePolicy string

const (
	// PolicyError fails with ErrPricingNotFound.
	PolicyError MissingPricePolicy = "error"
	// PolicyDefault prices the request at DefaultModel rates and logs a warning.
	PolicyDefault MissingPricePolicy = "default"
)

// ParsePolicy maps a configuration value onto a policy. Empty means PolicyDefault.
func ParsePolicy(s string) (MissingPricePolicy, error) {
	switch MissingPricePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyDefault:
		return PolicyDefault, nil
	case PolicyError:
		return PolicyError, nil
	default:
		return "", errors.Errorf("unknown missing price policy %q (want %q or %q)", s, PolicyError, PolicyDefault)
	}
}

// Result is the cost of one request. TotalCost is always InputCost + OutputCost.
type Result struct {
	Model            string  `json:"model"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	InputRate        float64 `json:"input_rate"`  // USD per prompt token
	OutputRate       float64 `json:"output_rate"` // USD per completion token
	InputCost        float64 `json:"input_cost"`
	OutputCost       float64 `json:"output_cost"`
	TotalCost        float64 `json:"total_cost"`
	// PricedAs is the table entry that was applied. It differs from the
	// normalized Model only when the default rate stood in.
	PricedAs string `json:"priced_as"`
}

// Calculator computes request costs against a fixed price table.
type Calculator struct {
	table  PriceTable
	policy MissingPricePolicy
}

// NewCalculator returns a calculator over table. A nil table means DefaultPriceTable.
func NewCalculator(table PriceTable, policy MissingPricePolicy) *Calculator {
	if table == nil {
		table = DefaultPriceTable()
	}
	if policy == "" {
		policy = PolicyDefault
	}
	return &Calculator{table: table, policy: policy}
}

// Policy returns the missing price policy in effect.
func (c *Calculator) Policy() MissingPricePolicy {
	return c.policy
}

// Compute prices one usage record. It never prints; see Report.
func (c *Calculator) Compute(ctx context.Context, usage llmtypes.UsageRecord) (Result, error) {
	model := NormalizeModel(usage.Model)
	pricedAs := model

	entry, ok := c.table[model]
	if !ok {
		if c.policy == PolicyError {
			return Result{}, errors.Wrapf(ErrPricingNotFound, "model %q", usage.Model)
		}
		entry, ok = c.table[DefaultModel]
		if !ok {
			return Result{}, errors.Wrapf(ErrPricingNotFound, "model %q and default model %q", usage.Model, DefaultModel)
		}
		pricedAs = DefaultModel
		logger.G(ctx).WithField("model", usage.Model).WithField("priced_as", DefaultModel).
			Warn("no pricing for model, using default rate")
	}

	inputRate := entry.InputPer1K / 1000
	var outputRate float64
	if entry.OutputPer1K != nil {
		outputRate = *entry.OutputPer1K / 1000
	}

	prompt := max(usage.PromptTokens, 0)
	completion := max(usage.CompletionTokens, 0)
	total := usage.TotalTokens
	if total <= 0 {
		total = prompt + completion
	}

	inputCost := float64(prompt) * inputRate
	outputCost := float64(completion) * outputRate

	return Result{
		Model:            model,
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      total,
		InputRate:        inputRate,
		OutputRate:       outputRate,
		InputCost:        inputCost,
		OutputCost:       outputCost,
		TotalCost:        inputCost + outputCost,
		PricedAs:         pricedAs,
	}, nil
}

// FormatCost renders a USD amount with enough precision for sub-cent requests.
func FormatCost(cost float64) string {
	return fmt.Sprintf("$%.6f", cost)
}
