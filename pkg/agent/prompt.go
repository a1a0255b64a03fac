package agent

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pkg/errors"

	tooltypes "github.com/jingkaihe/mcplab/pkg/types/tools"
)

// ObservationPrefix starts an observation produced from a successful tool call.
const ObservationPrefix = "Result: "

// ErrorObservationPrefix starts an observation produced from a failed tool call.
const ErrorObservationPrefix = "Error: "

// DirectAnswerPrompt is the system instruction of the fallback request.
const DirectAnswerPrompt = "You are a helpful assistant. Answer the user's question directly and concisely. Do not call any tools."

const decisionTemplate = `You select tools for a user. Given the input, pick the best tool and produce its parameters, or answer directly when no tool is needed.

Available tools:
{{- range .Tools}}
- {{.Name}}: {{.Description}}{{if .Parameters}} [parameters: {{range $i, $p := .Parameters}}{{if $i}}, {{end}}{{$p.Name}} ({{$p.Type}}, {{if $p.Required}}required{{else}}optional{{end}}){{end}}]{{end}}
{{- else}}
(none)
{{- end}}

Respond in exactly one of these shapes:
- When a tool is needed: "TOOL: <tool name>" on the first line, then the parameters as a JSON object on the next line.
- When no tool is needed: "DIRECT: <your answer>".

When the input starts with "Result: " it is the outcome of a tool you selected earlier. Turn it into a natural answer with DIRECT unless another tool is needed.

Examples:
- Input: "Multiply 5 by 3" -> Output: "TOOL: multiply\n{\"a\": 5, \"b\": 3}"
- Input: "東京の天気は？" -> Output: "TOOL: get_weather\n{\"city\": \"東京\"}"
- Input: "こんにちは" -> Output: "DIRECT: こんにちは！何かお手伝いできることはありますか？"
- Input: "Result: get_weather(city=名古屋) = 雨、気温25度、湿度80%" -> Output: "DIRECT: 名古屋は雨で、気温25度、湿度80%です。"
- Input: "Result: multiply(a=3, b=6) = 18" -> Output: "DIRECT: 3 times 6 is 18."

Always emit parameters as JSON and always include every required parameter.`

var decisionPrompt = template.Must(template.New("decision").Parse(decisionTemplate))

// BuildDecisionPrompt renders the system instruction that lists the catalog
// and the two response shapes. overrides replaces tool descriptions by name;
// a lowercased key matches any spelling of the name.
func BuildDecisionPrompt(tools []tooltypes.ToolDescriptor, overrides map[string]string) (string, error) {
	listed := make([]tooltypes.ToolDescriptor, len(tools))
	for i, t := range tools {
		desc, ok := overrides[t.Name]
		if !ok {
			desc, ok = overrides[strings.ToLower(t.Name)]
		}
		if ok && desc != "" {
			t.Description = desc
		}
		listed[i] = t
	}

	var buf bytes.Buffer
	if err := decisionPrompt.Execute(&buf, map[string]any{"Tools": listed}); err != nil {
		return "", errors.Wrap(err, "failed to render decision prompt")
	}
	return buf.String(), nil
}

// FormatObservation renders a successful tool call as the next observation.
func FormatObservation(name string, params *Params, result any) string {
	return ObservationPrefix + FormatCall(name, params) + " = " + formatValue(result)
}

// FormatErrorObservation renders a failed tool call as the next observation.
func FormatErrorObservation(err error) string {
	return ErrorObservationPrefix + err.Error()
}
