// Package tools holds the learning tools served by mcplab and the registry
// that lists and invokes them by name.
package tools

import (
	"context"
	"encoding/json"
	"math"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// ErrToolNotFound is returned when a registry has no tool by the requested name.
var ErrToolNotFound = errors.New("tool not found")

// ErrInvalidArguments wraps argument decoding and validation failures.
var ErrInvalidArguments = errors.New("invalid arguments")

// Tool is a named function with a JSON schema for its arguments.
type Tool interface {
	Name() string
	Description() string
	GenerateSchema() *jsonschema.Schema
	Execute(ctx context.Context, args map[string]any) (any, error)
	TracingKVs(args map[string]any) []attribute.KeyValue
}

// GenerateSchema reflects the input struct T into a JSON schema.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// SchemaJSON renders a tool's schema as JSON.
func SchemaJSON(t Tool) (json.RawMessage, error) {
	b, err := json.Marshal(t.GenerateSchema())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal schema of tool %s", t.Name())
	}
	return b, nil
}

// SchemaMap renders a tool's schema as a generic JSON object.
func SchemaMap(t Tool) (map[string]any, error) {
	raw, err := SchemaJSON(t)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrapf(err, "failed to decode schema of tool %s", t.Name())
	}
	return m, nil
}

// decodeArgs checks the required properties of T's schema and decodes args
// into T. Decoding is weakly typed so "5", 5 and 5.0 all fill an int field,
// but 5.5 does not.
func decodeArgs[T any](args map[string]any) (T, error) {
	var input T

	for _, name := range GenerateSchema[T]().Required {
		if v, ok := args[name]; !ok || v == nil {
			return input, errors.Wrapf(ErrInvalidArguments, "missing required parameter %q", name)
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &input,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       integralFloatHook,
	})
	if err != nil {
		return input, errors.Wrap(err, "failed to create argument decoder")
	}
	if err := decoder.Decode(args); err != nil {
		return input, errors.Wrapf(ErrInvalidArguments, "%v", err)
	}
	return input, nil
}

// integralFloatHook refuses to truncate a fractional number into an integer field.
func integralFloatHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}
	if from.Kind() != reflect.Float32 && from.Kind() != reflect.Float64 {
		return data, nil
	}
	f := reflect.ValueOf(data).Float()
	if f != math.Trunc(f) {
		return nil, errors.Errorf("%v is not an integer", f)
	}
	return data, nil
}
