package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jingkaihe/mcplab/pkg/config"
	"github.com/jingkaihe/mcplab/pkg/cost"
	"github.com/jingkaihe/mcplab/pkg/llm"
	"github.com/jingkaihe/mcplab/pkg/logger"
	"github.com/jingkaihe/mcplab/pkg/mcp/client"
	"github.com/jingkaihe/mcplab/pkg/mcp/server"
	"github.com/jingkaihe/mcplab/pkg/presenter"
	"github.com/jingkaihe/mcplab/pkg/tools"
	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
	"github.com/jingkaihe/mcplab/pkg/usage"
	"github.com/jingkaihe/mcplab/pkg/version"
)

func init() {
	viper.SetDefault("temperature", config.DefaultTemperature)
	viper.SetDefault("max_tokens", config.DefaultMaxTokens)
	viper.SetDefault("usage.ledger", true)

	rootCmd.PersistentFlags().Bool("no-ledger", false, "Do not append usage to the local ledger")
}

// llmConfigFromViper builds the model configuration from flags, MCPLAB_*
// environment variables and ~/.mcplab/config.yaml.
func llmConfigFromViper() llmtypes.Config {
	return llmtypes.Config{
		Provider:               viper.GetString("provider"),
		Model:                  viper.GetString("model"),
		APIKey:                 viper.GetString("api_key"),
		BaseURL:                viper.GetString("base_url"),
		Temperature:            viper.GetFloat64("temperature"),
		UseTemperature:         !viper.IsSet("use_temperature") || viper.GetBool("use_temperature"),
		MaxTokens:              viper.GetInt("max_tokens"),
		UseMaxCompletionTokens: viper.GetBool("use_max_completion_tokens"),
	}
}

// applyModelOverride lets --model and --provider replace what mcp.json chose.
func applyModelOverride(cfg llmtypes.Config) (llmtypes.Config, error) {
	model := viper.GetString("model")
	provider := viper.GetString("provider")
	if model == "" && provider == "" {
		return cfg, nil
	}
	if model != "" {
		cfg.Model = model
	}
	previous := cfg.Provider
	cfg.Provider = provider
	if cfg.Provider == "" {
		cfg.Provider = llm.ProviderFor(cfg.Model)
	}
	if cfg.Provider != previous {
		key, err := llm.ResolveAPIKey(cfg.Provider, viper.GetString("api_key"))
		if err != nil {
			return cfg, err
		}
		cfg.APIKey = key
	}
	return cfg, nil
}

// defaultCalculator prices with the built-in table and pricing.missing_policy.
func defaultCalculator() (*cost.Calculator, error) {
	policy, err := cost.ParsePolicy(viper.GetString("pricing.missing_policy"))
	if err != nil {
		return nil, err
	}
	return cost.NewCalculator(cost.DefaultPriceTable(), policy), nil
}

func ledgerEnabled() bool {
	if noLedger, err := rootCmd.PersistentFlags().GetBool("no-ledger"); err == nil && noLedger {
		return false
	}
	return viper.GetBool("usage.ledger")
}

// newTracker returns a tracker that appends to the ledger when it can be
// opened. report prints a cost breakdown after every request. The returned
// func closes the ledger.
func newTracker(ctx context.Context, calc *cost.Calculator, sessionID string, report bool) (*cost.Tracker, func()) {
	var opts []cost.TrackerOption
	if report {
		opts = append(opts, cost.WithCostHook(presenter.Cost))
	}

	closeLedger := func() {}
	if ledgerEnabled() {
		ledger, err := usage.Open(ctx, viper.GetString("usage.path"), sessionID)
		if err != nil {
			logger.G(ctx).WithError(err).Warn("usage ledger unavailable, costs are kept for this session only")
		} else {
			opts = append(opts, cost.WithLedger(ledger))
			closeLedger = func() {
				if err := ledger.Close(); err != nil {
					logger.G(ctx).WithError(err).Warn("failed to close usage ledger")
				}
			}
		}
	}
	return cost.NewTracker(calc, opts...), closeLedger
}

// track prices usage when the collaborator reported any.
func track(ctx context.Context, tracker *cost.Tracker, record llmtypes.UsageRecord) {
	if !record.HasAccounting() {
		return
	}
	if _, err := tracker.Track(ctx, record); err != nil {
		presenter.Warning(fmt.Sprintf("could not price request: %v", err))
	}
}

// openToolSession connects to a tool server. With no URL the learning tools
// are served in process over MCP.
func openToolSession(ctx context.Context, serverURL, protocol string, headers map[string]string) (client.Session, error) {
	var session client.Session
	if serverURL == "" {
		s, err := server.NewMCPServer(tools.DefaultRegistry(), server.DefaultName, version.Get().Version)
		if err != nil {
			return nil, err
		}
		session = client.NewInProcessMCPClient("local", s)
	} else {
		transport, err := transportFor(protocol)
		if err != nil {
			return nil, err
		}
		session, err = client.New("remote", client.ServerConfig{
			Transport: transport,
			URL:       serverURL,
			Headers:   headers,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := session.Initialize(ctx); err != nil {
		_ = session.Close()
		return nil, errors.Wrapf(err, "failed to connect to tool server %s", displayURL(serverURL))
	}
	return session, nil
}

func transportFor(protocol string) (string, error) {
	switch strings.ToLower(protocol) {
	case "mcp", "", client.TransportStreamableHTTP:
		return client.TransportStreamableHTTP, nil
	case client.TransportSSE:
		return client.TransportSSE, nil
	case client.TransportHTTP:
		return client.TransportHTTP, nil
	default:
		return "", errors.Errorf("unknown protocol %q (want mcp, sse or http)", protocol)
	}
}

func displayURL(serverURL string) string {
	if serverURL == "" {
		return "(in process)"
	}
	return serverURL
}

// parseHeaders turns repeated "Key: value" flags into a header map.
func parseHeaders(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, ":")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, errors.Errorf("invalid header %q (want \"Key: value\")", v)
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return headers, nil
}
