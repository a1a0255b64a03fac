package cost

import (
	"context"
	"sync"

	"github.com/jingkaihe/mcplab/pkg/logger"
	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
)

// Ledger persists priced requests beyond the lifetime of a session.
type Ledger interface {
	Append(ctx context.Context, usage llmtypes.UsageRecord, result Result) error
}

// Tracker prices each recorded usage, folds it into a Session and appends it
// to an optional Ledger.
type Tracker struct {
	calc   *Calculator
	ledger Ledger
	onCost func(Result)

	mu      sync.Mutex
	session Session
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithLedger appends every priced request to l. Ledger failures are logged only.
func WithLedger(l Ledger) TrackerOption {
	return func(t *Tracker) {
		t.ledger = l
	}
}

// WithCostHook calls f with every priced request, e.g. to print a report.
func WithCostHook(f func(Result)) TrackerOption {
	return func(t *Tracker) {
		t.onCost = f
	}
}

// NewTracker returns a tracker with an empty session.
func NewTracker(calc *Calculator, opts ...TrackerOption) *Tracker {
	t := &Tracker{calc: calc}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track prices usage and adds it to the session.
func (t *Tracker) Track(ctx context.Context, usage llmtypes.UsageRecord) (Result, error) {
	result, err := t.calc.Compute(ctx, usage)
	if err != nil {
		return Result{}, err
	}

	t.mu.Lock()
	t.session.Add(result)
	t.mu.Unlock()

	logger.G(ctx).WithField("model", result.Model).
		WithField("prompt_tokens", result.PromptTokens).
		WithField("completion_tokens", result.CompletionTokens).
		WithField("cost", FormatCost(result.TotalCost)).
		Debug("request priced")

	if t.onCost != nil {
		t.onCost(result)
	}
	if t.ledger != nil {
		if err := t.ledger.Append(ctx, usage, result); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to append usage to ledger")
		}
	}
	return result, nil
}

// Record implements the usage recorder used by the agent loop.
func (t *Tracker) Record(ctx context.Context, usage llmtypes.UsageRecord) error {
	_, err := t.Track(ctx, usage)
	return err
}

// Summary returns a snapshot of the session so far.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.Summarize()
}

// Session returns a copy of the accumulated session.
func (t *Tracker) Session() Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}
