// Package agent implements the tool-calling loop: a decider picks a tool or
// answers directly, tools run through an executor, and each tool result is fed
// back as the next observation until a direct answer or the iteration cap.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/mcplab/pkg/logger"
	"github.com/jingkaihe/mcplab/pkg/telemetry"
	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
	tooltypes "github.com/jingkaihe/mcplab/pkg/types/tools"
)

// IncompleteMessage is returned when the loop hits its iteration cap.
const IncompleteMessage = "Sorry, the request could not be completed within the allowed number of steps."

// ApologyMessage is returned when the fallback direct request fails too.
const ApologyMessage = "Sorry, I could not answer that: %v"

// DefaultMaxIterations bounds a run when the configuration leaves it unset.
const DefaultMaxIterations = 5

// Config controls a loop.
type Config struct {
	MaxIterations int `mapstructure:"max_iterations" json:"max_iterations" yaml:"max_iterations"`
	// FallbackToDirect asks the decider once more, without tools, when a
	// decision cannot be acted on.
	FallbackToDirect bool `mapstructure:"fallback_to_direct" json:"fallback_to_direct" yaml:"fallback_to_direct"`
	// StopAfterTool returns the first successful tool observation instead of
	// feeding it back to the decider.
	StopAfterTool bool `mapstructure:"stop_after_tool" json:"stop_after_tool" yaml:"stop_after_tool"`
	// Debug logs every observation and decision at info level.
	Debug bool `mapstructure:"debug" json:"debug" yaml:"debug"`
	// DescriptionOverrides replaces catalog descriptions in the decision prompt.
	DescriptionOverrides map[string]string `mapstructure:"-" json:"description_overrides,omitempty" yaml:"description_overrides,omitempty"`
}

// DefaultConfig returns the loop defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations:    DefaultMaxIterations,
		FallbackToDirect: true,
	}
}

// LoopState belongs to a single Run.
type LoopState struct {
	Observation   string
	Iteration     int
	MaxIterations int
}

// Agent runs the tool-calling loop against its collaborators. Run may be
// called concurrently; each call owns its LoopState.
type Agent struct {
	config    Config
	decider   Decider
	catalog   Catalog
	executor  Executor
	recorder  UsageRecorder
	sessionID string

	tools []tooltypes.ToolDescriptor
}

// Option configures an Agent.
type Option func(*Agent)

// WithRecorder sends decision usage to r.
func WithRecorder(r UsageRecorder) Option {
	return func(a *Agent) {
		a.recorder = r
	}
}

// WithSessionID sets the id attached to logs and spans.
func WithSessionID(id string) Option {
	return func(a *Agent) {
		a.sessionID = id
	}
}

// New builds an agent. Call Initialize before Run to fetch the catalog.
func New(cfg Config, decider Decider, catalog Catalog, executor Executor, opts ...Option) *Agent {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	a := &Agent{
		config:    cfg,
		decider:   decider,
		catalog:   catalog,
		executor:  executor,
		sessionID: uuid.New().String(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Initialize fetches the tool catalog once.
func (a *Agent) Initialize(ctx context.Context) error {
	return telemetry.WithSpan(ctx, "agent.initialize", func(ctx context.Context) error {
		tools, err := a.catalog.ListTools(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to list tools")
		}
		a.tools = tools
		telemetry.SetAttributes(ctx, attribute.Int("agent.tools", len(tools)))
		a.log(ctx).WithField("tools", len(tools)).Debug("tool catalog loaded")
		return nil
	}, attribute.String("agent.session_id", a.sessionID))
}

// Tools returns the catalog fetched by Initialize.
func (a *Agent) Tools() []tooltypes.ToolDescriptor {
	return a.tools
}

// SessionID identifies this agent in logs and spans.
func (a *Agent) SessionID() string {
	return a.sessionID
}

// Config returns the effective configuration.
func (a *Agent) Config() Config {
	return a.config
}

// Run processes one user input and always returns a human-readable answer.
func (a *Agent) Run(ctx context.Context, input string) string {
	ctx, span := telemetry.StartSpan(ctx, "agent.run",
		attribute.String("agent.session_id", a.sessionID),
		attribute.Int("agent.max_iterations", a.config.MaxIterations),
	)
	defer span.End()

	state := &LoopState{Observation: input, MaxIterations: a.config.MaxIterations}

	for state.Iteration < state.MaxIterations {
		state.Iteration++
		answer, done := a.iterate(ctx, input, state)
		if done {
			telemetry.SetAttributes(ctx, attribute.Int("agent.iterations", state.Iteration))
			return answer
		}
	}

	telemetry.SetAttributes(ctx, attribute.Int("agent.iterations", state.Iteration))
	a.log(ctx).WithError(ErrIterationLimit).WithField("iterations", state.Iteration).Warn("loop did not produce an answer")
	return IncompleteMessage
}

// iterate runs one decide/act step. It reports whether the loop is finished.
func (a *Agent) iterate(ctx context.Context, input string, state *LoopState) (string, bool) {
	ctx, span := telemetry.StartSpan(ctx, "agent.iteration", attribute.Int("agent.iteration", state.Iteration))
	defer span.End()

	a.trace(a.log(ctx).WithField("iteration", state.Iteration).WithField("observation", state.Observation), "deciding")

	decision := a.decide(ctx, state.Observation)
	span.SetAttributes(attribute.String("agent.decision", decision.Kind.String()))

	switch decision.Kind {
	case DecisionDirect:
		return decision.Answer, true

	case DecisionTool:
		desc, _ := tooltypes.Lookup(a.tools, decision.Tool)
		if missing := missingParameters(desc, decision.Params); len(missing) > 0 {
			err := errors.Wrapf(ErrMissingParameter, "tool %q needs %s", decision.Tool, strings.Join(missing, ", "))
			return a.handleError(ctx, input, err), true
		}

		observation, err := a.callTool(ctx, decision)
		if err != nil {
			state.Observation = FormatErrorObservation(err)
			return "", false
		}
		if a.config.StopAfterTool {
			return observation, true
		}
		state.Observation = observation
		return "", false

	default:
		return a.handleError(ctx, input, decision.Err), true
	}
}

func (a *Agent) decide(ctx context.Context, observation string) Decision {
	ctx, span := telemetry.StartSpan(ctx, "agent.decide")

	system, err := BuildDecisionPrompt(a.tools, a.config.DescriptionOverrides)
	if err != nil {
		telemetry.EndSpan(span, err)
		return errorDecision(errors.Wrap(ErrDecisionParse, err.Error()))
	}

	resp, err := a.decider.Decide(ctx, llmtypes.Request{System: system, User: observation})
	if err != nil {
		err = errors.Wrapf(ErrTransport, "decision request: %v", err)
		telemetry.EndSpan(span, err)
		return errorDecision(err)
	}
	a.record(ctx, resp.Usage)

	decision := ParseDecision(resp.Text, a.tools)
	a.trace(a.log(ctx).WithField("response", resp.Text).WithField("decision", decision.Kind.String()), "decision received")
	telemetry.EndSpan(span, decision.Err)
	return decision
}

func (a *Agent) callTool(ctx context.Context, decision Decision) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "agent.tool_call", attribute.String("tool.name", decision.Tool))

	result, err := a.executor.CallTool(ctx, decision.Tool, decision.ParamsMap())
	if err != nil {
		err = errors.Wrapf(ErrToolExecution, "%s: %v", FormatCall(decision.Tool, decision.Params), err)
		a.log(ctx).WithError(err).Warn("tool call failed")
		telemetry.EndSpan(span, err)
		return "", err
	}

	observation := FormatObservation(decision.Tool, decision.Params, result)
	a.trace(a.log(ctx).WithField("observation", observation), "tool call succeeded")
	telemetry.EndSpan(span, nil)
	return observation, nil
}

// handleError turns an unusable decision into the final answer.
func (a *Agent) handleError(ctx context.Context, input string, cause error) string {
	a.log(ctx).WithError(cause).Warn("decision could not be acted on")
	if !a.config.FallbackToDirect {
		return FormatErrorObservation(cause)
	}

	ctx, span := telemetry.StartSpan(ctx, "agent.fallback")
	resp, err := a.decider.Decide(ctx, llmtypes.Request{System: DirectAnswerPrompt, User: input})
	if err != nil {
		err = errors.Wrapf(ErrTransport, "fallback request: %v", err)
		telemetry.EndSpan(span, err)
		a.log(ctx).WithError(err).Error("fallback request failed")
		return fmt.Sprintf(ApologyMessage, err)
	}
	telemetry.EndSpan(span, nil)
	a.record(ctx, resp.Usage)

	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(resp.Text), DirectPrefix))
}

func (a *Agent) record(ctx context.Context, usage llmtypes.UsageRecord) {
	if a.recorder == nil || !usage.HasAccounting() {
		return
	}
	if err := a.recorder.Record(ctx, usage); err != nil {
		a.log(ctx).WithError(err).WithField("model", usage.Model).Warn("failed to record usage")
	}
}

func (a *Agent) log(ctx context.Context) *logrus.Entry {
	return logger.G(ctx).WithField("session_id", a.sessionID)
}

// trace logs at info level in debug mode and at debug level otherwise.
func (a *Agent) trace(entry *logrus.Entry, msg string) {
	if a.config.Debug {
		entry.Info(msg)
		return
	}
	entry.Debug(msg)
}
