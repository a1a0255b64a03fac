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
	"github.com/jingkaihe/mcplab/pkg/tools"
	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
)

// FuncallConfig holds the flags of the funcall command.
type FuncallConfig struct {
	System string
	Tools  []string
	Rounds int
}

// NewFuncallConfig returns the funcall defaults.
func NewFuncallConfig() *FuncallConfig {
	return &FuncallConfig{
		System: "You are a helpful assistant. Use the available functions when they help answer the question.",
		Rounds: llmopenai.DefaultFunctionRounds,
	}
}

var funcallCmd = &cobra.Command{
	Use:   "funcall [question]",
	Short: "Answer a question with native function calling over the learning tools",
	Long: `Offer the learning tools to an OpenAI model as native functions. Every
function the model calls runs locally and its result is sent back until the
model answers.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := getFuncallConfigFromFlags(cmd)
		if err := validateFuncallConfig(config); err != nil {
			return err
		}
		return runFuncall(cmd.Context(), config, strings.Join(args, " "))
	},
}

func init() {
	defaults := NewFuncallConfig()
	funcallCmd.Flags().String("system", defaults.System, "System instruction")
	funcallCmd.Flags().StringSlice("tools", nil, "Tools to offer (default all learning tools)")
	funcallCmd.Flags().Int("rounds", defaults.Rounds, "Maximum number of model requests")
}

func getFuncallConfigFromFlags(cmd *cobra.Command) *FuncallConfig {
	config := NewFuncallConfig()
	if system, err := cmd.Flags().GetString("system"); err == nil {
		config.System = system
	}
	if names, err := cmd.Flags().GetStringSlice("tools"); err == nil {
		config.Tools = names
	}
	if rounds, err := cmd.Flags().GetInt("rounds"); err == nil {
		config.Rounds = rounds
	}
	return config
}

func validateFuncallConfig(config *FuncallConfig) error {
	if config.Rounds < 1 {
		return errors.New("--rounds must be at least 1")
	}
	_, err := tools.DefaultRegistry().Subset(config.Tools)
	return err
}

func runFuncall(ctx context.Context, config *FuncallConfig, question string) error {
	client, err := llm.New(llmConfigFromViper())
	if err != nil {
		return errors.Wrap(err, "failed to create LLM client")
	}
	fc, ok := client.(*llmopenai.Client)
	if !ok {
		return errors.Errorf("function calling needs an OpenAI model, not %s", client.Model())
	}

	registry, err := tools.DefaultRegistry().Subset(config.Tools)
	if err != nil {
		return err
	}
	defs, err := tools.ToOpenAITools(registry.List())
	if err != nil {
		return err
	}

	calc, err := defaultCalculator()
	if err != nil {
		return err
	}
	tracker, closeLedger := newTracker(ctx, calc, "", true)
	defer closeLedger()

	run, err := fc.RunFunctions(ctx, llmtypes.Request{System: config.System, User: question}, defs, registry, config.Rounds)
	for _, u := range run.Usage {
		track(ctx, tracker, u)
	}
	if err != nil {
		return err
	}

	printFunctionCalls(run.Calls)
	presenter.Section("Answer")
	fmt.Println(run.Answer)
	return nil
}
