package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/mcplab/pkg/logger"
	"github.com/jingkaihe/mcplab/pkg/presenter"
	"github.com/jingkaihe/mcplab/pkg/usage"
)

// UsageConfig holds the flags of the usage command.
type UsageConfig struct {
	Since     string
	Until     string
	Model     string
	SessionID string
}

// NewUsageConfig returns the usage defaults.
func NewUsageConfig() *UsageConfig {
	return &UsageConfig{Since: "7d"}
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show recorded token usage and cost",
	Long: `Show the token usage and cost recorded in the local ledger, per day and per
model. --since and --until take a duration such as 7d or 12h, or a date
such as 2026-10-01.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		config := getUsageConfigFromFlags(cmd)
		filter, err := usageFilter(config, time.Now())
		if err != nil {
			return err
		}
		return runUsage(cmd.Context(), filter)
	},
}

func init() {
	defaults := NewUsageConfig()
	usageCmd.Flags().String("since", defaults.Since, "Show usage since this duration ago or date")
	usageCmd.Flags().String("until", "", "Show usage until this duration ago or date")
	usageCmd.Flags().String("model", "", "Only show this model")
	usageCmd.Flags().String("session", "", "Only show this session id")
}

func getUsageConfigFromFlags(cmd *cobra.Command) *UsageConfig {
	config := NewUsageConfig()
	if since, err := cmd.Flags().GetString("since"); err == nil {
		config.Since = since
	}
	if until, err := cmd.Flags().GetString("until"); err == nil {
		config.Until = until
	}
	if model, err := cmd.Flags().GetString("model"); err == nil {
		config.Model = model
	}
	if session, err := cmd.Flags().GetString("session"); err == nil {
		config.SessionID = session
	}
	return config
}

func usageFilter(config *UsageConfig, now time.Time) (usage.Filter, error) {
	filter := usage.Filter{Model: config.Model, SessionID: config.SessionID}
	var err error
	if config.Since != "" {
		if filter.Since, err = usage.ParseSince(config.Since, now); err != nil {
			return filter, err
		}
	}
	if config.Until != "" {
		if filter.Until, err = usage.ParseSince(config.Until, now); err != nil {
			return filter, err
		}
	}
	return filter, nil
}

func runUsage(ctx context.Context, filter usage.Filter) error {
	ledger, err := usage.Open(ctx, viper.GetString("usage.path"), "")
	if err != nil {
		return err
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to close usage ledger")
		}
	}()

	records, err := ledger.Query(ctx, filter)
	if err != nil {
		return err
	}
	presenter.Default().UsageStats(usage.Calculate(records))
	return nil
}
