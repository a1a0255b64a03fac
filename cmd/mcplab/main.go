package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/mcplab/pkg/logger"
	"github.com/jingkaihe/mcplab/pkg/presenter"
)

func init() {
	// .env files carry API keys for local runs; a missing file is fine.
	_ = godotenv.Load()

	viper.SetEnvPrefix("MCPLAB")
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.mcplab")
	viper.AddConfigPath(".")

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "fmt")
	viper.SetDefault("pricing.missing_policy", "default")

	// Load config file if it exists
	_ = viper.ReadInConfig()
}

var rootCmd = &cobra.Command{
	Use:   "mcplab",
	Short: "A workbench for LLM tool calling and the Model Context Protocol",
	Long: `mcplab walks from calling a language model directly up to a model driven
tool-calling loop that talks to a tool server over MCP or plain HTTP.
Every request is priced and the usage is kept in a local ledger.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		if err := logger.SetLogLevel(viper.GetString("log_level")); err != nil {
			return err
		}
		logger.SetLogFormat(viper.GetString("log_format"))
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func main() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (panic, fatal, error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().String("log-format", "fmt", "Log format (fmt or json)")
	rootCmd.PersistentFlags().String("provider", "", "LLM provider (openai, anthropic or google); inferred from the model when empty")
	rootCmd.PersistentFlags().String("model", "", "LLM model to use (overrides config)")
	rootCmd.PersistentFlags().Int("max-tokens", 0, "Maximum tokens for a response (overrides config)")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))
	viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("max_tokens", rootCmd.PersistentFlags().Lookup("max-tokens"))

	rootCmd.AddCommand(withTracing(chatCmd))
	rootCmd.AddCommand(withTracing(reactCmd))
	rootCmd.AddCommand(withTracing(funcallCmd))
	rootCmd.AddCommand(withTracing(loopCmd))
	rootCmd.AddCommand(withTracing(agentCmd))
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	os.Exit(execute(context.Background()))
}

func execute(ctx context.Context) int {
	shutdown, err := initTracing(ctx)
	if err != nil {
		presenter.Warning(fmt.Sprintf("tracing disabled: %v", err))
		shutdown = func(context.Context) error { return nil }
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to flush traces")
		}
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		presenter.Error(err, "command failed")
		return 1
	}
	return 0
}
