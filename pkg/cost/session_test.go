package cost

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
)

func TestSessionSummarizeEmpty(t *testing.T) {
	var s Session
	sum := s.Summarize()

	assert.Zero(t, sum.Requests)
	assert.Zero(t, sum.AverageCostPerRequest)
	assert.Zero(t, sum.TotalCost)
}

func TestSessionAdd(t *testing.T) {
	var s Session
	s.Add(Result{Model: "gpt-4.1-mini", PromptTokens: 100, CompletionTokens: 20, TotalCost: 0.3})
	s.Add(Result{Model: "gpt-4o", PromptTokens: 50, CompletionTokens: 10, TotalCost: 0.1})

	sum := s.Summarize()
	assert.Equal(t, "gpt-4.1-mini", sum.Model)
	assert.Equal(t, 2, sum.Requests)
	assert.Equal(t, 150, sum.PromptTokens)
	assert.Equal(t, 30, sum.CompletionTokens)
	assert.Equal(t, 180, sum.TotalTokens)
	assert.InDelta(t, 0.4, sum.TotalCost, 1e-12)
	assert.InDelta(t, 0.2, sum.AverageCostPerRequest, 1e-12)
}

func TestReport(t *testing.T) {
	result, err := NewCalculator(nil, PolicyDefault).Compute(context.Background(), llmtypes.NewUsageRecord("unknown-model", 10, 20, 0))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Report(&buf, result))

	out := buf.String()
	assert.Contains(t, out, "Model: unknown-model (priced as gpt-4o-mini)")
	assert.Contains(t, out, "Total tokens:            30")
	assert.Contains(t, out, "Total cost:        "+FormatCost(result.TotalCost))
}

func TestSessionReport(t *testing.T) {
	var s Session
	var buf bytes.Buffer
	require.NoError(t, s.Report(&buf))
	assert.Contains(t, buf.String(), "Model:             -")
	assert.Contains(t, buf.String(), "Average / request: $0.000000")
}

type fakeLedger struct {
	appended []Result
	err      error
}

func (f *fakeLedger) Append(_ context.Context, _ llmtypes.UsageRecord, r Result) error {
	f.appended = append(f.appended, r)
	return f.err
}

func TestTracker(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("disk full")}
	tracker := NewTracker(NewCalculator(nil, PolicyError), WithLedger(ledger))
	ctx := context.Background()

	require.NoError(t, tracker.Record(ctx, llmtypes.NewUsageRecord("gpt-4o-mini", 100, 50, 0)))
	_, err := tracker.Track(ctx, llmtypes.NewUsageRecord("gpt-4o-mini-2024-07-18", 100, 50, 0))
	require.NoError(t, err)

	err = tracker.Record(ctx, llmtypes.NewUsageRecord("not-priced", 1, 1, 0))
	assert.ErrorIs(t, err, ErrPricingNotFound)

	sum := tracker.Summary()
	assert.Equal(t, 2, sum.Requests)
	assert.Equal(t, 300, sum.TotalTokens)
	assert.Len(t, ledger.appended, 2)
	assert.Equal(t, "gpt-4o-mini", tracker.Session().Model)
}

func TestTrackerCostHook(t *testing.T) {
	var seen []Result
	tracker := NewTracker(NewCalculator(nil, PolicyDefault), WithCostHook(func(r Result) {
		seen = append(seen, r)
	}))

	_, err := tracker.Track(context.Background(), llmtypes.NewUsageRecord("gpt-4o", 1000, 1000, 0))
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, "gpt-4o", seen[0].Model)
	assert.InDelta(t, 0.0125, seen[0].TotalCost, 1e-12)
}
