package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/mcplab/pkg/agent"
	"github.com/jingkaihe/mcplab/pkg/llm"
	"github.com/jingkaihe/mcplab/pkg/logger"
	"github.com/jingkaihe/mcplab/pkg/presenter"
)

// Decider names accepted by --decider.
const (
	DeciderRules = "rules"
	DeciderLLM   = "llm"
)

// LoopConfig holds the flags of the loop command.
type LoopConfig struct {
	Decider   string
	ServerURL string
	Protocol  string
	Headers   []string
	Agent     agent.Config
}

// NewLoopConfig returns the loop defaults.
func NewLoopConfig() *LoopConfig {
	return &LoopConfig{
		Decider:  DeciderRules,
		Protocol: "mcp",
		Agent:    agent.DefaultConfig(),
	}
}

var loopCmd = &cobra.Command{
	Use:   "loop [question]",
	Short: "Run the tool-calling loop once",
	Long: `Run the TOOL:/DIRECT: tool-calling loop for one question.

The keyword based rules decider needs no model and no API key. With
--decider llm the configured model decides. Tools come from --server-url
(an MCP endpoint, or the plain /tools + /call protocol with --protocol http),
or from the learning tools served in process when no URL is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := getLoopConfigFromFlags(cmd)
		if err := validateLoopConfig(config); err != nil {
			return err
		}
		return runLoop(cmd.Context(), config, strings.Join(args, " "))
	},
}

func init() {
	defaults := NewLoopConfig()
	loopCmd.Flags().String("decider", defaults.Decider, "Who decides the next step (rules or llm)")
	loopCmd.Flags().String("server-url", "", "Tool server endpoint (default: learning tools in process)")
	loopCmd.Flags().String("protocol", defaults.Protocol, "Tool server protocol (mcp, sse or http)")
	loopCmd.Flags().StringArray("header", nil, "Extra request header for the tool server, as \"Key: value\"")
	loopCmd.Flags().Int("max-iterations", defaults.Agent.MaxIterations, "Maximum number of decisions")
	loopCmd.Flags().Bool("stop-after-tool", defaults.Agent.StopAfterTool, "Return the first tool result instead of asking again")
	loopCmd.Flags().Bool("no-fallback", !defaults.Agent.FallbackToDirect, "Do not retry unusable decisions as a direct question")
	loopCmd.Flags().Bool("debug", defaults.Agent.Debug, "Log every observation and decision")
}

func getLoopConfigFromFlags(cmd *cobra.Command) *LoopConfig {
	config := NewLoopConfig()
	if decider, err := cmd.Flags().GetString("decider"); err == nil {
		config.Decider = strings.ToLower(decider)
	}
	if url, err := cmd.Flags().GetString("server-url"); err == nil {
		config.ServerURL = url
	}
	if protocol, err := cmd.Flags().GetString("protocol"); err == nil {
		config.Protocol = protocol
	}
	if headers, err := cmd.Flags().GetStringArray("header"); err == nil {
		config.Headers = headers
	}
	if n, err := cmd.Flags().GetInt("max-iterations"); err == nil {
		config.Agent.MaxIterations = n
	}
	if stop, err := cmd.Flags().GetBool("stop-after-tool"); err == nil {
		config.Agent.StopAfterTool = stop
	}
	if noFallback, err := cmd.Flags().GetBool("no-fallback"); err == nil {
		config.Agent.FallbackToDirect = !noFallback
	}
	if debug, err := cmd.Flags().GetBool("debug"); err == nil {
		config.Agent.Debug = debug
	}
	return config
}

func validateLoopConfig(config *LoopConfig) error {
	if config.Decider != DeciderRules && config.Decider != DeciderLLM {
		return errors.Errorf("unknown decider %q (want %s or %s)", config.Decider, DeciderRules, DeciderLLM)
	}
	if config.Agent.MaxIterations < 1 {
		return errors.New("--max-iterations must be at least 1")
	}
	if _, err := transportFor(config.Protocol); err != nil {
		return err
	}
	_, err := parseHeaders(config.Headers)
	return err
}

func newDecider(name string) (agent.Decider, error) {
	if name == DeciderRules {
		return agent.NewRuleDecider(), nil
	}
	client, err := llm.New(llmConfigFromViper())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create LLM client")
	}
	return client, nil
}

func runLoop(ctx context.Context, config *LoopConfig, question string) error {
	decider, err := newDecider(config.Decider)
	if err != nil {
		return err
	}
	headers, err := parseHeaders(config.Headers)
	if err != nil {
		return err
	}
	session, err := openToolSession(ctx, config.ServerURL, config.Protocol, headers)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to close tool session")
		}
	}()

	calc, err := defaultCalculator()
	if err != nil {
		return err
	}
	tracker, closeLedger := newTracker(ctx, calc, "", false)
	defer closeLedger()

	a := agent.New(config.Agent, decider, session, session, agent.WithRecorder(tracker))
	if err := a.Initialize(ctx); err != nil {
		return err
	}

	presenter.Info(fmt.Sprintf("Tool server: %s (%d tools)", displayURL(config.ServerURL), len(a.Tools())))
	answer := a.Run(ctx, question)
	presenter.Section("Answer")
	fmt.Println(answer)

	if sum := tracker.Summary(); sum.Requests > 0 {
		presenter.Default().Summary("Loop summary", nil, sum)
	}
	return nil
}
