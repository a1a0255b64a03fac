// Package anthropic implements the decision collaborator on the Claude messages API.
package anthropic

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/mcplab/pkg/telemetry"
	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
)

// DefaultMaxTokens is sent when the configuration sets no cap; the API requires one.
const DefaultMaxTokens = 1024

// Client talks to the Anthropic API.
type Client struct {
	client anthropic.Client
	config llmtypes.Config
}

// New builds a client from a prepared configuration.
func New(config llmtypes.Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.Retry.Attempts > 0 {
		opts = append(opts, option.WithMaxRetries(config.Retry.Attempts-1))
	}
	return &Client{
		client: anthropic.NewClient(opts...),
		config: config,
	}, nil
}

// Model is the configured model name.
func (c *Client) Model() string {
	return c.config.Model
}

// Decide sends the system prompt as a system block and the user text as the
// only message.
func (c *Client) Decide(ctx context.Context, req llmtypes.Request) (llmtypes.Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.MaxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.User))},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if c.config.UseTemperature {
		params.Temperature = anthropic.Float(c.config.Temperature)
	}

	ctx, span := telemetry.StartSpan(ctx, "llm.anthropic.messages", attribute.String("llm.model", c.config.Model))
	response, err := c.client.Messages.New(ctx, params)
	telemetry.EndSpan(span, err)
	if err != nil {
		return llmtypes.Response{}, errors.Wrap(err, "anthropic messages request failed")
	}

	var text strings.Builder
	for _, block := range response.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}

	model := string(response.Model)
	if model == "" {
		model = c.config.Model
	}
	return llmtypes.Response{
		Text:  text.String(),
		Model: model,
		Usage: llmtypes.NewUsageRecord(model, int(response.Usage.InputTokens), int(response.Usage.OutputTokens), 0),
	}, nil
}
