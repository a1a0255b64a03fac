package tools

import (
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ToolDescriptor describes a tool offered by a catalog.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterSpec `json:"parameters"`
}

// ParameterSpec describes one declared parameter of a tool.
type ParameterSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// RequiredParameters returns the names of the required parameters in declaration order.
func (d ToolDescriptor) RequiredParameters() []string {
	var names []string
	for _, p := range d.Parameters {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// Lookup finds a descriptor by name.
func Lookup(tools []ToolDescriptor, name string) (ToolDescriptor, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return ToolDescriptor{}, false
}

type propertySchema struct {
	Type        any    `json:"type"`
	Description string `json:"description"`
}

type objectSchema struct {
	Properties *orderedmap.OrderedMap[string, propertySchema] `json:"properties"`
	Required   []string                                       `json:"required"`
}

// ParseParameters turns a JSON schema object into parameter specs, keeping
// the property order of the document.
func ParseParameters(schema json.RawMessage) ([]ParameterSpec, error) {
	if len(schema) == 0 || string(schema) == "null" {
		return nil, nil
	}

	obj := objectSchema{Properties: orderedmap.New[string, propertySchema]()}
	if err := json.Unmarshal(schema, &obj); err != nil {
		return nil, errors.Wrap(err, "failed to parse parameter schema")
	}

	required := make(map[string]bool, len(obj.Required))
	for _, name := range obj.Required {
		required[name] = true
	}

	specs := make([]ParameterSpec, 0, obj.Properties.Len())
	for pair := obj.Properties.Oldest(); pair != nil; pair = pair.Next() {
		specs = append(specs, ParameterSpec{
			Name:        pair.Key,
			Type:        typeLabel(pair.Value.Type),
			Description: pair.Value.Description,
			Required:    required[pair.Key],
		})
	}
	return specs, nil
}

// ParseParameterMap is ParseParameters for schemas that were already decoded
// into a map, where the original property order is gone. Parameters are
// returned sorted by name.
func ParseParameterMap(properties map[string]any, requiredNames []string) []ParameterSpec {
	required := make(map[string]bool, len(requiredNames))
	for _, name := range requiredNames {
		required[name] = true
	}

	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]ParameterSpec, 0, len(names))
	for _, name := range names {
		spec := ParameterSpec{Name: name, Required: required[name]}
		if prop, ok := properties[name].(map[string]any); ok {
			spec.Type = typeLabel(prop["type"])
			spec.Description, _ = prop["description"].(string)
		} else {
			spec.Type = "any"
		}
		specs = append(specs, spec)
	}
	return specs
}

func typeLabel(v any) string {
	switch t := v.(type) {
	case string:
		if t != "" {
			return t
		}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s != "null" {
				return s
			}
		}
	}
	return "any"
}

// CallRequest is the body of a plain HTTP tool invocation.
type CallRequest struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
}

// CallResponse carries either a result or an error message.
type CallResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// ListEntry is one element of the plain HTTP tool listing.
type ListEntry struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}
