package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/mcplab/pkg/agent"
	"github.com/jingkaihe/mcplab/pkg/config"
	"github.com/jingkaihe/mcplab/pkg/llm"
	"github.com/jingkaihe/mcplab/pkg/logger"
	"github.com/jingkaihe/mcplab/pkg/mcp/client"
	"github.com/jingkaihe/mcplab/pkg/presenter"
	tooltypes "github.com/jingkaihe/mcplab/pkg/types/tools"
)

// AgentConfig holds the flags of the agent command.
type AgentConfig struct {
	ConfigPath string
	Server     string
	SessionID  string
}

// NewAgentConfig returns the agent defaults.
func NewAgentConfig() *AgentConfig {
	return &AgentConfig{
		ConfigPath: config.DefaultPath,
		Server:     "learning-server",
	}
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Start an interactive agent session against a configured tool server",
	Long: `Start an interactive session. The model, the loop settings and the tool
server come from mcp.json. Type quit, exit or 終了 to end the session and
print its summary.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runAgent(cmd.Context(), getAgentConfigFromFlags(cmd))
	},
}

func init() {
	defaults := NewAgentConfig()
	agentCmd.Flags().String("config", defaults.ConfigPath, "Path to the mcp.json configuration")
	agentCmd.Flags().String("server", defaults.Server, "Name of the entry in mcpServers to connect to")
	agentCmd.Flags().String("session-id", "", "Session id recorded in the usage ledger (default: random)")
}

func getAgentConfigFromFlags(cmd *cobra.Command) *AgentConfig {
	config := NewAgentConfig()
	if path, err := cmd.Flags().GetString("config"); err == nil {
		config.ConfigPath = path
	}
	if name, err := cmd.Flags().GetString("server"); err == nil {
		config.Server = name
	}
	if id, err := cmd.Flags().GetString("session-id"); err == nil {
		config.SessionID = id
	}
	if config.SessionID == "" {
		config.SessionID = uuid.NewString()
	}
	return config
}

// isQuitCommand reports whether line ends the session.
func isQuitCommand(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "quit", "exit", "終了":
		return true
	}
	return false
}

func toolNames(descriptors []tooltypes.ToolDescriptor) string {
	names := make([]string, len(descriptors))
	for i, d := range descriptors {
		names[i] = d.Name
	}
	return strings.Join(names, ", ")
}

func sessionFields(configPath, serverURL string, descriptors []tooltypes.ToolDescriptor) []presenter.Field {
	tools := toolNames(descriptors)
	if tools == "" {
		tools = "-"
	}
	return []presenter.Field{
		{Label: "Config", Value: configPath},
		{Label: "Server", Value: serverURL},
		{Label: "Tools", Value: tools},
	}
}

func runAgent(ctx context.Context, flags *AgentConfig) error {
	ctx = logger.WithFields(ctx, logrus.Fields{"session_id": flags.SessionID})

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return err
	}
	llmConfig, err := cfg.LLMConfig()
	if err != nil {
		return err
	}
	if llmConfig, err = applyModelOverride(llmConfig); err != nil {
		return err
	}
	decider, err := llm.New(llmConfig)
	if err != nil {
		return errors.Wrap(err, "failed to create LLM client")
	}

	serverConfig, err := cfg.ClientConfig(flags.Server)
	if err != nil {
		return err
	}
	serverURL := serverConfig.URL
	if serverURL == "" {
		serverURL = serverConfig.Command
	}

	session, err := client.New(flags.Server, serverConfig)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to close tool session")
		}
	}()

	calc, err := cfg.Calculator()
	if err != nil {
		return err
	}
	tracker, closeLedger := newTracker(ctx, calc, flags.SessionID, false)
	defer closeLedger()

	agentConfig := cfg.AgentConfig()
	if agentConfig.Debug {
		_ = logger.SetLogLevel("debug")
	}

	presenter.Info(fmt.Sprintf("Connecting to %s at %s", flags.Server, serverURL))
	if err := session.Initialize(ctx); err != nil {
		return errors.Wrapf(err, "failed to initialize %s", flags.Server)
	}
	a := agent.New(agentConfig, decider, session, session,
		agent.WithRecorder(tracker),
		agent.WithSessionID(flags.SessionID),
	)
	if err := a.Initialize(ctx); err != nil {
		return errors.Wrap(err, "failed to fetch the tool catalog")
	}

	presenter.Success(fmt.Sprintf("Model %s with tools: %s", decider.Model(), toolNames(a.Tools())))
	presenter.Info("Type quit, exit or 終了 to end the session")

	p := presenter.Default()
	for {
		line, ok := p.Prompt("\nYou: ")
		if !ok || isQuitCommand(line) {
			break
		}
		if line == "" {
			continue
		}

		runCtx, cancel := context.WithTimeout(ctx, cfg.Timeout())
		answer := a.Run(runCtx, line)
		cancel()
		fmt.Printf("Agent: %s\n", answer)
	}

	fields := append(sessionFields(cfg.Path(), serverURL, a.Tools()),
		presenter.Field{Label: "Session", Value: flags.SessionID})
	p.Summary("Session summary", fields, tracker.Summary())
	return nil
}
