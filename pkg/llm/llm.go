// Package llm builds decision collaborators backed by hosted models.
package llm

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/mcplab/pkg/llm/anthropic"
	"github.com/jingkaihe/mcplab/pkg/llm/google"
	"github.com/jingkaihe/mcplab/pkg/llm/openai"
	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
)

// DefaultModel is used when the configuration names no model.
const DefaultModel = "gpt-4o-mini"

// ErrMissingAPIKey is returned when no API key can be resolved.
var ErrMissingAPIKey = errors.New("missing API key")

// Client sends a single decision request to a model.
type Client interface {
	Decide(ctx context.Context, req llmtypes.Request) (llmtypes.Response, error)
	Model() string
}

var (
	_ Client = (*openai.Client)(nil)
	_ Client = (*anthropic.Client)(nil)
	_ Client = (*google.Client)(nil)
)

// ProviderFor infers the provider from a model name. Unknown names fall back to OpenAI.
func ProviderFor(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "claude"):
		return llmtypes.ProviderAnthropic
	case strings.HasPrefix(m, "gemini"):
		return llmtypes.ProviderGoogle
	default:
		return llmtypes.ProviderOpenAI
	}
}

// APIKeyEnvVar is the environment variable consulted when no key is configured.
func APIKeyEnvVar(provider string) string {
	switch provider {
	case llmtypes.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case llmtypes.ProviderGoogle:
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

// ResolveAPIKey turns a configured key into the real one. "ENV:NAME" reads
// NAME from the environment; an empty value reads the provider's default
// variable; anything else is used as is.
func ResolveAPIKey(provider, configured string) (string, error) {
	if name, ok := strings.CutPrefix(configured, "ENV:"); ok {
		key := os.Getenv(name)
		if key == "" {
			return "", errors.Wrapf(ErrMissingAPIKey, "environment variable %s is not set", name)
		}
		return key, nil
	}
	if configured != "" {
		return configured, nil
	}

	name := APIKeyEnvVar(provider)
	key := os.Getenv(name)
	if key == "" && provider == llmtypes.ProviderGoogle {
		name = "GOOGLE_API_KEY"
		key = os.Getenv(name)
	}
	if key == "" {
		return "", errors.Wrapf(ErrMissingAPIKey, "set %s or configure an API key", APIKeyEnvVar(provider))
	}
	return key, nil
}

// Prepare fills in the model, provider, API key and retry defaults.
func Prepare(config llmtypes.Config) (llmtypes.Config, error) {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Provider == "" {
		config.Provider = ProviderFor(config.Model)
	}
	if config.Retry.Attempts == 0 {
		config.Retry = llmtypes.DefaultRetryConfig
	}

	key, err := ResolveAPIKey(config.Provider, config.APIKey)
	if err != nil {
		return config, err
	}
	config.APIKey = key
	return config, nil
}

// New returns the client for the configured provider.
func New(config llmtypes.Config) (Client, error) {
	config, err := Prepare(config)
	if err != nil {
		return nil, err
	}

	switch config.Provider {
	case llmtypes.ProviderOpenAI:
		return openai.New(config)
	case llmtypes.ProviderAnthropic:
		return anthropic.New(config)
	case llmtypes.ProviderGoogle:
		return google.New(config)
	default:
		return nil, errors.Errorf("unsupported provider %q", config.Provider)
	}
}
