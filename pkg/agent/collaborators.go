package agent

import (
	"context"

	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
	tooltypes "github.com/jingkaihe/mcplab/pkg/types/tools"
)

// Decider chooses the next action. Model clients and RuleDecider implement it.
type Decider interface {
	Decide(ctx context.Context, req llmtypes.Request) (llmtypes.Response, error)
}

// Catalog lists the tools a tool server offers.
type Catalog interface {
	ListTools(ctx context.Context) ([]tooltypes.ToolDescriptor, error)
}

// Executor invokes a tool by name.
type Executor interface {
	CallTool(ctx context.Context, name string, params map[string]any) (any, error)
}

// ToolServer is a Catalog that can also execute its tools.
type ToolServer interface {
	Catalog
	Executor
}

// UsageRecorder receives the token accounting of every decision call.
type UsageRecorder interface {
	Record(ctx context.Context, usage llmtypes.UsageRecord) error
}
