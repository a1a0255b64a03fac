package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/jingkaihe/mcplab/pkg/logger"
	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
)

// DefaultFunctionRounds bounds RunFunctions when the caller passes zero.
const DefaultFunctionRounds = 5

// Executor runs a tool the model asked for.
type Executor interface {
	CallTool(ctx context.Context, name string, params map[string]any) (any, error)
}

// FunctionCall is one tool call made during RunFunctions.
type FunctionCall struct {
	Name      string
	Arguments map[string]any
	Result    string
	Err       error
}

// FunctionRun is the outcome of RunFunctions.
type FunctionRun struct {
	Answer string
	Calls  []FunctionCall
	// Usage holds one record per model request, in order.
	Usage []llmtypes.UsageRecord
}

// RunFunctions lets the model call tools natively: every tool call is run
// through exec and its result sent back as a tool message, until the model
// answers without calling a tool or rounds requests have been made.
func (c *Client) RunFunctions(ctx context.Context, req llmtypes.Request, tools []openai.Tool, exec Executor, rounds int) (FunctionRun, error) {
	if rounds <= 0 {
		rounds = DefaultFunctionRounds
	}
	log := logger.G(ctx).WithField("model", c.config.Model)

	var run FunctionRun
	messages := baseMessages(req)
	for round := 0; round < rounds; round++ {
		chatReq := c.chatRequest(messages)
		chatReq.Tools = tools

		response, err := c.complete(ctx, chatReq)
		if err != nil {
			return run, err
		}
		run.Usage = append(run.Usage, usageOf(response))

		message := response.Choices[0].Message
		if len(message.ToolCalls) == 0 {
			run.Answer = message.Content
			return run, nil
		}

		messages = append(messages, message)
		for _, call := range message.ToolCalls {
			fc := c.runCall(ctx, call, exec)
			log.WithField("tool", fc.Name).WithField("result", fc.Result).Debug("function called")
			run.Calls = append(run.Calls, fc)
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    fc.Result,
				ToolCallID: call.ID,
			})
		}
	}
	return run, errors.Errorf("no final answer after %d rounds", rounds)
}

func (c *Client) runCall(ctx context.Context, call openai.ToolCall, exec Executor) FunctionCall {
	fc := FunctionCall{Name: call.Function.Name, Arguments: map[string]any{}}
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &fc.Arguments); err != nil {
			fc.Err = errors.Wrapf(err, "invalid arguments for %s", fc.Name)
			fc.Result = "Error: " + fc.Err.Error()
			return fc
		}
	}

	result, err := exec.CallTool(ctx, fc.Name, fc.Arguments)
	if err != nil {
		fc.Err = err
		fc.Result = "Error: " + err.Error()
		return fc
	}
	fc.Result = resultString(result)
	return fc
}

func resultString(v any) string {
	switch r := v.(type) {
	case string:
		return r
	case nil:
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
