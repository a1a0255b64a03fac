// Package google implements the decision collaborator on the Gemini API.
package google

import (
	"context"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"github.com/jingkaihe/mcplab/pkg/logger"
	"github.com/jingkaihe/mcplab/pkg/telemetry"
	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
)

// Client talks to the Gemini API.
type Client struct {
	client *genai.Client
	config llmtypes.Config
}

// New builds a client from a prepared configuration.
func New(config llmtypes.Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.New("google: API key is required")
	}
	if config.Retry.Attempts == 0 {
		config.Retry = llmtypes.DefaultRetryConfig
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Google GenAI client")
	}
	return &Client{client: client, config: config}, nil
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

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"service unavailable",
		"internal error",
		"rate limit",
		"too many requests",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// Decide sends the system prompt as the system instruction and the user text
// as the only content.
func (c *Client) Decide(ctx context.Context, req llmtypes.Request) (llmtypes.Response, error) {
	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if c.config.UseTemperature {
		config.Temperature = genai.Ptr(float32(c.config.Temperature))
	}
	if c.config.MaxTokens > 0 {
		config.MaxOutputTokens = int32(c.config.MaxTokens)
	}
	contents := []*genai.Content{genai.NewContentFromText(req.User, genai.RoleUser)}

	ctx, span := telemetry.StartSpan(ctx, "llm.google.generate", attribute.String("llm.model", c.config.Model))
	var response *genai.GenerateContentResponse
	err := retry.Do(
		func() error {
			var apiErr error
			response, apiErr = c.client.Models.GenerateContent(ctx, c.config.Model, contents, config)
			return apiErr
		},
		retry.RetryIf(isRetryableError),
		retry.Attempts(uint(c.config.Retry.Attempts)),
		retry.Delay(time.Duration(c.config.Retry.InitialDelay)*time.Millisecond),
		retry.MaxDelay(time.Duration(c.config.Retry.MaxDelay)*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).Warn("retrying Google GenAI call")
		}),
	)
	telemetry.EndSpan(span, err)
	if err != nil {
		return llmtypes.Response{}, errors.Wrap(err, "google generate content failed")
	}

	return llmtypes.Response{
		Text:  responseText(response),
		Model: c.config.Model,
		Usage: usageOf(c.config.Model, response),
	}, nil
}

func responseText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			text.WriteString(part.Text)
		}
	}
	return text.String()
}

func usageOf(model string, response *genai.GenerateContentResponse) llmtypes.UsageRecord {
	if response == nil || response.UsageMetadata == nil {
		return llmtypes.NewUsageRecord(model, 0, 0, 0)
	}
	u := response.UsageMetadata
	return llmtypes.NewUsageRecord(model, int(u.PromptTokenCount), int(u.CandidatesTokenCount), int(u.TotalTokenCount))
}
