// Package openai implements the decision collaborator on the OpenAI chat
// completions API, including multi-choice generation and native function calling.
package openai

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/mcplab/pkg/logger"
	"github.com/jingkaihe/mcplab/pkg/telemetry"
	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
)

// Client talks to OpenAI or any API compatible with it.
type Client struct {
	client *openai.Client
	config llmtypes.Config
}

// New builds a client from a prepared configuration.
func New(config llmtypes.Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if config.Retry.Attempts == 0 {
		config.Retry = llmtypes.DefaultRetryConfig
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Model is the configured model name.
func (c *Client) Model() string {
	return c.config.Model
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 0 || reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	return false
}

// chatRequest builds the request body shared by every call. Temperature is
// only sent when enabled, and the token cap goes into max_tokens or
// max_completion_tokens depending on the model family.
func (c *Client) chatRequest(messages []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    c.config.Model,
		Messages: messages,
	}
	if c.config.UseTemperature {
		req.Temperature = float32(c.config.Temperature)
	}
	if c.config.MaxTokens > 0 {
		if c.config.UseMaxCompletionTokens {
			req.MaxCompletionTokens = c.config.MaxTokens
		} else {
			req.MaxTokens = c.config.MaxTokens
		}
	}
	return req
}

func baseMessages(req llmtypes.Request) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	return append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "llm.openai.chat",
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.choices", max(req.N, 1)),
		attribute.Int("llm.tools", len(req.Tools)),
	)

	retryConfig := c.config.Retry
	delayType := retry.BackOffDelay
	if retryConfig.BackoffType == "fixed" {
		delayType = retry.FixedDelay
	}

	var response openai.ChatCompletionResponse
	err := retry.Do(
		func() error {
			var apiErr error
			response, apiErr = c.client.CreateChatCompletion(ctx, req)
			return apiErr
		},
		retry.RetryIf(isRetryableError),
		retry.Attempts(uint(retryConfig.Attempts)),
		retry.Delay(time.Duration(retryConfig.InitialDelay)*time.Millisecond),
		retry.MaxDelay(time.Duration(retryConfig.MaxDelay)*time.Millisecond),
		retry.DelayType(delayType),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).WithField("max_attempts", retryConfig.Attempts).Warn("retrying OpenAI API call")
		}),
	)
	if err == nil && len(response.Choices) == 0 {
		err = errors.New("openai: response has no choices")
	}
	if err == nil {
		span.SetAttributes(
			attribute.Int("llm.usage.prompt_tokens", response.Usage.PromptTokens),
			attribute.Int("llm.usage.completion_tokens", response.Usage.CompletionTokens),
		)
	}
	telemetry.EndSpan(span, err)
	if err != nil {
		return response, errors.Wrap(err, "openai chat completion failed")
	}
	return response, nil
}

func usageOf(response openai.ChatCompletionResponse) llmtypes.UsageRecord {
	return llmtypes.NewUsageRecord(response.Model, response.Usage.PromptTokens, response.Usage.CompletionTokens, response.Usage.TotalTokens)
}

// Decide sends one system + user exchange and returns the first choice.
func (c *Client) Decide(ctx context.Context, req llmtypes.Request) (llmtypes.Response, error) {
	response, err := c.complete(ctx, c.chatRequest(baseMessages(req)))
	if err != nil {
		return llmtypes.Response{}, err
	}
	return llmtypes.Response{
		Text:  response.Choices[0].Message.Content,
		Model: response.Model,
		Usage: usageOf(response),
	}, nil
}

// Choices asks for n alternative completions in one request. The usage covers
// all of them.
func (c *Client) Choices(ctx context.Context, req llmtypes.Request, n int) ([]string, llmtypes.UsageRecord, error) {
	if n < 1 {
		n = 1
	}
	chatReq := c.chatRequest(baseMessages(req))
	chatReq.N = n

	response, err := c.complete(ctx, chatReq)
	if err != nil {
		return nil, llmtypes.UsageRecord{}, err
	}

	texts := make([]string, len(response.Choices))
	for i, choice := range response.Choices {
		texts[i] = choice.Message.Content
	}
	return texts, usageOf(response), nil
}
