package tools

import (
	"context"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/mcplab/pkg/logger"
	"github.com/jingkaihe/mcplab/pkg/telemetry"
	tooltypes "github.com/jingkaihe/mcplab/pkg/types/tools"
)

// Registry lists and invokes tools by name, in registration order.
type Registry struct {
	tools  []Tool
	byName map[string]Tool
}

// NewRegistry builds a registry. Tool names must be unique.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if _, dup := r.byName[t.Name()]; dup {
			return nil, errors.Errorf("duplicate tool name %q", t.Name())
		}
		r.byName[t.Name()] = t
		r.tools = append(r.tools, t)
	}
	return r, nil
}

// LearningTools returns every learning tool.
func LearningTools() []Tool {
	return []Tool{
		&MultiplyTool{},
		&DivideTool{},
		&WeatherTool{},
		&JapanPMTool{},
		&CalculatorTool{},
	}
}

// DefaultRegistry holds every learning tool.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(LearningTools()...)
	if err != nil {
		panic(err)
	}
	return r
}

// Subset returns a registry with only the named tools. An empty list keeps all.
func (r *Registry) Subset(names []string) (*Registry, error) {
	if len(names) == 0 {
		return r, nil
	}
	selected := make([]Tool, 0, len(names))
	for _, name := range names {
		t, ok := r.Get(name)
		if !ok {
			return nil, errors.Wrapf(ErrToolNotFound, "tool %q", name)
		}
		selected = append(selected, t)
	}
	return NewRegistry(selected...)
}

// Get returns the tool called name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// List returns the tools in registration order.
func (r *Registry) List() []Tool {
	return append([]Tool(nil), r.tools...)
}

// Descriptors describes every tool from its schema.
func (r *Registry) Descriptors() ([]tooltypes.ToolDescriptor, error) {
	descriptors := make([]tooltypes.ToolDescriptor, 0, len(r.tools))
	for _, t := range r.tools {
		raw, err := SchemaJSON(t)
		if err != nil {
			return nil, err
		}
		params, err := tooltypes.ParseParameters(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "tool %s", t.Name())
		}
		descriptors = append(descriptors, tooltypes.ToolDescriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  params,
		})
	}
	return descriptors, nil
}

// ListTools lets a local registry act as a tool catalog.
func (r *Registry) ListTools(context.Context) ([]tooltypes.ToolDescriptor, error) {
	return r.Descriptors()
}

// CallTool runs the named tool.
func (r *Registry) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, errors.Wrapf(ErrToolNotFound, "tool %q", name)
	}
	if args == nil {
		args = map[string]any{}
	}

	ctx, span := telemetry.StartSpan(ctx, "tools."+name, append(t.TracingKVs(args), attribute.String("tool.name", name))...)
	result, err := t.Execute(ctx, args)
	telemetry.EndSpan(span, err)

	if err != nil {
		logger.G(ctx).WithError(err).WithField("tool", name).Debug("tool returned an error")
		return nil, err
	}
	return result, nil
}

func normalizeCity(city string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, city)
}
