// Package react runs ReAct style prompts: the model reasons in a
// Thought / Action / Observation / Answer format, either in one shot or one
// stage per request with a local observer supplying the observation.
package react

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/pkg/errors"

	"github.com/jingkaihe/mcplab/pkg/agent"
	"github.com/jingkaihe/mcplab/pkg/logger"
	"github.com/jingkaihe/mcplab/pkg/tools"
	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
)

// Stage names a ReAct step.
type Stage string

const (
	StageThought     Stage = "Thought"
	StageAction      Stage = "Action"
	StageObservation Stage = "Observation"
	StageAnswer      Stage = "Answer"
)

// Step is the reasoning so far. Empty fields are left out of the prompt.
type Step struct {
	Question    string
	Thought     string
	Action      string
	Observation string
	// Next, when set, asks the model to output only that stage.
	Next Stage
}

var promptTemplate = template.Must(template.New("react").Parse(`You are a ReAct agent.
Reason using this format:

Thought: your reasoning
Action: the action to take, or an expression to evaluate
Observation: the result of the action
Answer: the final answer
{{if .Thought}}
Thought: {{.Thought}}{{end}}{{if .Action}}
Action: {{.Action}}{{end}}{{if .Observation}}
Observation: {{.Observation}}{{end}}

Question: {{.Question}}
{{- if .Next}}

Output only the {{.Next}} next.{{end}}
`))

// BuildPrompt renders the ReAct prompt for step.
func BuildPrompt(step Step) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, step); err != nil {
		return "", errors.Wrap(err, "failed to render ReAct prompt")
	}
	return buf.String(), nil
}

// Observer produces the observation for an action.
type Observer func(ctx context.Context, action string) (string, error)

// Trace is the outcome of StepByStep.
type Trace struct {
	Thought     string
	Action      string
	Observation string
	Answer      string
}

// Runner sends ReAct prompts to a decider and records the usage of every request.
type Runner struct {
	decider  agent.Decider
	recorder agent.UsageRecorder
	onStage  func(Stage, string)
}

// Option configures a Runner.
type Option func(*Runner)

// WithRecorder records the usage of each request.
func WithRecorder(r agent.UsageRecorder) Option {
	return func(runner *Runner) {
		runner.recorder = r
	}
}

// WithStageHook is called with each stage as soon as it is known.
func WithStageHook(f func(Stage, string)) Option {
	return func(runner *Runner) {
		runner.onStage = f
	}
}

// NewRunner returns a runner over decider.
func NewRunner(decider agent.Decider, opts ...Option) *Runner {
	r := &Runner{decider: decider}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) ask(ctx context.Context, step Step) (string, error) {
	prompt, err := BuildPrompt(step)
	if err != nil {
		return "", err
	}
	resp, err := r.decider.Decide(ctx, llmtypes.Request{User: prompt})
	if err != nil {
		return "", errors.Wrapf(err, "%s request failed", stageName(step.Next))
	}
	if r.recorder != nil && resp.Usage.HasAccounting() {
		if err := r.recorder.Record(ctx, resp.Usage); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to record usage")
		}
	}
	return strings.TrimSpace(resp.Text), nil
}

func stageName(s Stage) string {
	if s == "" {
		return "ReAct"
	}
	return string(s)
}

func (r *Runner) emit(stage Stage, text string) {
	if r.onStage != nil {
		r.onStage(stage, text)
	}
}

// OneShot asks the model to reason through the whole format in one request.
func (r *Runner) OneShot(ctx context.Context, question string) (string, error) {
	return r.ask(ctx, Step{Question: question})
}

// StepByStep asks for the thought, then the action, runs observe on the
// action, and finally asks for the answer. A nil observe records "no observation".
func (r *Runner) StepByStep(ctx context.Context, question string, observe Observer) (Trace, error) {
	var trace Trace
	var err error

	if trace.Thought, err = r.ask(ctx, Step{Question: question, Next: StageThought}); err != nil {
		return trace, err
	}
	r.emit(StageThought, trace.Thought)

	if trace.Action, err = r.ask(ctx, Step{Question: question, Thought: trace.Thought, Next: StageAction}); err != nil {
		return trace, err
	}
	r.emit(StageAction, trace.Action)

	trace.Observation = NoObservation
	if observe != nil {
		observation, err := observe(ctx, trace.Action)
		if err != nil {
			observation = "Error: " + err.Error()
		}
		trace.Observation = observation
	}
	r.emit(StageObservation, trace.Observation)

	if trace.Answer, err = r.ask(ctx, Step{
		Question:    question,
		Thought:     trace.Thought,
		Action:      trace.Action,
		Observation: trace.Observation,
		Next:        StageAnswer,
	}); err != nil {
		return trace, err
	}
	r.emit(StageAnswer, trace.Answer)
	return trace, nil
}

// NoObservation is used when an action yields nothing to observe.
const NoObservation = "nothing to observe"

var expression = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*([+\-*/×÷])\s*(-?\d+(?:\.\d+)?)`)

// CalculatorObserver evaluates the first "a op b" expression in an action with
// the calculator tool.
func CalculatorObserver(ctx context.Context, action string) (string, error) {
	m := expression.FindStringSubmatch(action)
	if m == nil {
		return NoObservation, nil
	}
	a, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return "", errors.Wrapf(err, "invalid operand %q", m[1])
	}
	b, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return "", errors.Wrapf(err, "invalid operand %q", m[3])
	}

	result, err := tools.Calculate(a, b, m[2])
	if err != nil {
		return "", err
	}
	logger.G(ctx).WithField("expression", m[0]).WithField("result", result).Debug("calculator observation")
	return fmt.Sprintf("%s %s %s = %s", m[1], m[2], m[3], strconv.FormatFloat(result, 'f', -1, 64)), nil
}

// StaticObserver always observes text.
func StaticObserver(text string) Observer {
	return func(context.Context, string) (string, error) {
		return text, nil
	}
}
