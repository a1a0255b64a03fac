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
	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
)

// ChatConfig holds the flags of the chat command.
type ChatConfig struct {
	System string
	N      int
	Cost   bool
}

// NewChatConfig returns the chat defaults.
func NewChatConfig() *ChatConfig {
	return &ChatConfig{
		System: "You are a helpful assistant.",
		N:      1,
		Cost:   true,
	}
}

var chatCmd = &cobra.Command{
	Use:   "chat [prompt]",
	Short: "Call the model directly and print the answer with its cost",
	Long: `Send one prompt to the configured model, print the answer and the cost of
the request. With --n greater than one the model returns several choices
(OpenAI models only).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := getChatConfigFromFlags(cmd)
		if err := validateChatConfig(config); err != nil {
			return err
		}
		return runChat(cmd.Context(), config, strings.Join(args, " "))
	},
}

func init() {
	defaults := NewChatConfig()
	chatCmd.Flags().String("system", defaults.System, "System instruction")
	chatCmd.Flags().Int("n", defaults.N, "Number of choices to generate")
	chatCmd.Flags().Bool("cost", defaults.Cost, "Print the cost of each request")
}

func getChatConfigFromFlags(cmd *cobra.Command) *ChatConfig {
	config := NewChatConfig()
	if system, err := cmd.Flags().GetString("system"); err == nil {
		config.System = system
	}
	if n, err := cmd.Flags().GetInt("n"); err == nil {
		config.N = n
	}
	if showCost, err := cmd.Flags().GetBool("cost"); err == nil {
		config.Cost = showCost
	}
	return config
}

func validateChatConfig(config *ChatConfig) error {
	if config.N < 1 {
		return errors.New("--n must be at least 1")
	}
	return nil
}

func runChat(ctx context.Context, config *ChatConfig, prompt string) error {
	client, err := llm.New(llmConfigFromViper())
	if err != nil {
		return errors.Wrap(err, "failed to create LLM client")
	}
	calc, err := defaultCalculator()
	if err != nil {
		return err
	}
	tracker, closeLedger := newTracker(ctx, calc, "", config.Cost)
	defer closeLedger()

	req := llmtypes.Request{System: config.System, User: prompt}

	if config.N == 1 {
		resp, err := client.Decide(ctx, req)
		if err != nil {
			return errors.Wrap(err, "chat request failed")
		}
		fmt.Println(resp.Text)
		track(ctx, tracker, resp.Usage)
		return nil
	}

	multi, ok := client.(*llmopenai.Client)
	if !ok {
		return errors.Errorf("--n is only supported by OpenAI models, not %s", client.Model())
	}
	choices, record, err := multi.Choices(ctx, req, config.N)
	if err != nil {
		return errors.Wrap(err, "chat request failed")
	}
	for i, choice := range choices {
		presenter.Section(fmt.Sprintf("Choice %d", i+1))
		fmt.Println(choice)
	}
	track(ctx, tracker, record)
	return nil
}
