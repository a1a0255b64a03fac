package tools

import (
	"github.com/sashabaranov/go-openai"
)

// ToOpenAITools converts registry tools into OpenAI function definitions.
func ToOpenAITools(tools []Tool) ([]openai.Tool, error) {
	out := make([]openai.Tool, len(tools))
	for i, t := range tools {
		schema, err := SchemaMap(t)
		if err != nil {
			return nil, err
		}
		delete(schema, "$schema")

		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  schema,
			},
		}
	}
	return out, nil
}
