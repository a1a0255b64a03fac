package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	tooltypes "github.com/jingkaihe/mcplab/pkg/types/tools"
)

// Wire prefixes of a decision response.
const (
	ToolPrefix   = "TOOL:"
	DirectPrefix = "DIRECT:"
)

// DecisionKind tags a Decision.
type DecisionKind int

const (
	DecisionError DecisionKind = iota
	DecisionTool
	DecisionDirect
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionTool:
		return "tool"
	case DecisionDirect:
		return "direct"
	default:
		return "error"
	}
}

// Params are tool arguments in the order the decider wrote them.
type Params = orderedmap.OrderedMap[string, any]

// Decision is what one decider response asks the loop to do.
type Decision struct {
	Kind   DecisionKind
	Tool   string
	Params *Params
	Answer string
	Err    error
}

func toolDecision(name string, params *Params) Decision {
	return Decision{Kind: DecisionTool, Tool: name, Params: params}
}

func directDecision(answer string) Decision {
	return Decision{Kind: DecisionDirect, Answer: answer}
}

func errorDecision(err error) Decision {
	return Decision{Kind: DecisionError, Err: err}
}

// ParamsMap returns the parameters as a plain map for the executor.
func (d Decision) ParamsMap() map[string]any {
	out := map[string]any{}
	if d.Params == nil {
		return out
	}
	for pair := d.Params.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}

// ParseDecision reads a decider response. A TOOL: response names the tool on
// the first line and carries a JSON object on the following line(s); a DIRECT:
// response carries the answer. Anything else is a DecisionError.
func ParseDecision(text string, catalog []tooltypes.ToolDescriptor) Decision {
	text = strings.TrimSpace(text)

	switch {
	case strings.HasPrefix(text, ToolPrefix):
		return parseToolDecision(strings.TrimPrefix(text, ToolPrefix), catalog)
	case strings.HasPrefix(text, DirectPrefix):
		return directDecision(strings.TrimSpace(strings.TrimPrefix(text, DirectPrefix)))
	default:
		return errorDecision(errors.Wrapf(ErrDecisionParse, "response starts with neither %s nor %s: %q", ToolPrefix, DirectPrefix, truncate(text, 80)))
	}
}

func parseToolDecision(body string, catalog []tooltypes.ToolDescriptor) Decision {
	name, payload, _ := strings.Cut(body, "\n")
	name = strings.TrimSpace(name)
	payload = strings.TrimSpace(payload)

	if name == "" {
		return errorDecision(errors.Wrap(ErrDecisionParse, "tool name is empty"))
	}
	if payload == "" {
		return errorDecision(errors.Wrapf(ErrDecisionParse, "no parameter line for tool %q", name))
	}

	params := orderedmap.New[string, any]()
	if !strings.HasPrefix(payload, "{") {
		return errorDecision(errors.Wrapf(ErrDecisionParse, "parameters for tool %q are not a JSON object", name))
	}
	// Only the first JSON value is read; any text after it is ignored.
	if err := json.NewDecoder(strings.NewReader(payload)).Decode(params); err != nil {
		return errorDecision(errors.Wrapf(ErrDecisionParse, "parameters for tool %q are not a JSON object: %v", name, err))
	}

	if _, ok := tooltypes.Lookup(catalog, name); !ok {
		return errorDecision(errors.Wrapf(ErrToolNotFound, "tool %q", name))
	}
	return toolDecision(name, params)
}

// missingParameters lists the required parameters of desc absent from params.
func missingParameters(desc tooltypes.ToolDescriptor, params *Params) []string {
	var missing []string
	for _, name := range desc.RequiredParameters() {
		if params == nil {
			missing = append(missing, name)
			continue
		}
		if _, ok := params.Get(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// FormatCall renders name(k=v, ...) in parameter order.
func FormatCall(name string, params *Params) string {
	var parts []string
	if params != nil {
		for pair := params.Oldest(); pair != nil; pair = pair.Next() {
			parts = append(parts, fmt.Sprintf("%s=%s", pair.Key, formatValue(pair.Value)))
		}
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return "null"
	case float64, bool, json.Number:
		return fmt.Sprint(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
