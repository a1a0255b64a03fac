package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/mcplab/pkg/llm"
	llmopenai "github.com/jingkaihe/mcplab/pkg/llm/openai"
	"github.com/jingkaihe/mcplab/pkg/presenter"
	"github.com/jingkaihe/mcplab/pkg/react"
	"github.com/jingkaihe/mcplab/pkg/tools"
	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
)

// ReAct modes.
const (
	ReactModeOneShot  = "oneshot"
	ReactModeSteps    = "steps"
	ReactModeFunction = "function"
)

// ReactConfig holds the flags of the react command.
type ReactConfig struct {
	Mode string
}

// NewReactConfig returns the react defaults.
func NewReactConfig() *ReactConfig {
	return &ReactConfig{Mode: ReactModeSteps}
}

var reactCmd = &cobra.Command{
	Use:   "react [question]",
	Short: "Answer a question with a ReAct style prompt",
	Long: `Answer a question by reasoning in the Thought / Action / Observation / Answer
format.

  oneshot   the model writes the whole trace in one request
  steps     every stage is its own request and arithmetic actions are
            observed with the calculator tool
  function  the calculator is offered as a native function instead`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := getReactConfigFromFlags(cmd)
		if err := validateReactConfig(config); err != nil {
			return err
		}
		return runReact(cmd.Context(), config, strings.Join(args, " "))
	},
}

func init() {
	defaults := NewReactConfig()
	reactCmd.Flags().String("mode", defaults.Mode, "ReAct mode (oneshot, steps or function)")
}

func getReactConfigFromFlags(cmd *cobra.Command) *ReactConfig {
	config := NewReactConfig()
	if mode, err := cmd.Flags().GetString("mode"); err == nil {
		config.Mode = strings.ToLower(mode)
	}
	return config
}

func validateReactConfig(config *ReactConfig) error {
	switch config.Mode {
	case ReactModeOneShot, ReactModeSteps, ReactModeFunction:
		return nil
	default:
		return errors.Errorf("unknown mode %q (want %s, %s or %s)", config.Mode, ReactModeOneShot, ReactModeSteps, ReactModeFunction)
	}
}

func runReact(ctx context.Context, config *ReactConfig, question string) error {
	client, err := llm.New(llmConfigFromViper())
	if err != nil {
		return errors.Wrap(err, "failed to create LLM client")
	}
	calc, err := defaultCalculator()
	if err != nil {
		return err
	}
	tracker, closeLedger := newTracker(ctx, calc, "", true)
	defer closeLedger()

	if config.Mode == ReactModeFunction {
		return runReactFunction(ctx, client, tracker.Record, question)
	}

	runner := react.NewRunner(client,
		react.WithRecorder(tracker),
		react.WithStageHook(func(stage react.Stage, text string) {
			presenter.Section(string(stage))
			fmt.Println(text)
		}),
	)

	if config.Mode == ReactModeOneShot {
		answer, err := runner.OneShot(ctx, question)
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	}

	_, err = runner.StepByStep(ctx, question, react.CalculatorObserver)
	return err
}

type recordFunc func(context.Context, llmtypes.UsageRecord) error

func runReactFunction(ctx context.Context, client llm.Client, record recordFunc, question string) error {
	fc, ok := client.(*llmopenai.Client)
	if !ok {
		return errors.Errorf("function mode needs an OpenAI model, not %s", client.Model())
	}
	registry, err := tools.DefaultRegistry().Subset([]string{"calculator"})
	if err != nil {
		return err
	}
	defs, err := tools.ToOpenAITools(registry.List())
	if err != nil {
		return err
	}

	run, err := fc.RunFunctions(ctx, llmtypes.Request{
		System: "Use the calculator for any arithmetic, then answer briefly.",
		User:   question,
	}, defs, registry, llmopenai.DefaultFunctionRounds)
	for _, u := range run.Usage {
		if u.HasAccounting() {
			if err := record(ctx, u); err != nil {
				presenter.Warning(fmt.Sprintf("could not price request: %v", err))
			}
		}
	}
	if err != nil {
		return err
	}
	printFunctionCalls(run.Calls)
	presenter.Section("Answer")
	fmt.Println(run.Answer)
	return nil
}

func printFunctionCalls(calls []llmopenai.FunctionCall) {
	for _, call := range calls {
		presenter.Section("Function call: " + call.Name)
		fmt.Printf("arguments: %v\n", call.Arguments)
		if call.Err != nil {
			presenter.Warning(call.Err.Error())
			continue
		}
		fmt.Printf("result: %s\n", call.Result)
	}
}
