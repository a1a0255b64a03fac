package tools

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/mcplab/pkg/logger"
)

// MultiplyTool multiplies two integers.
type MultiplyTool struct{}

// MultiplyInput are the arguments of multiply.
type MultiplyInput struct {
	A int `json:"a" jsonschema:"description=First integer"`
	B int `json:"b" jsonschema:"description=Second integer"`
}

func (t *MultiplyTool) Name() string        { return "multiply" }
func (t *MultiplyTool) Description() string { return "Multiply two integers and return the product" }

func (t *MultiplyTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[MultiplyInput]()
}

func (t *MultiplyTool) TracingKVs(args map[string]any) []attribute.KeyValue {
	return numericKVs(args, "a", "b")
}

func (t *MultiplyTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	input, err := decodeArgs[MultiplyInput](args)
	if err != nil {
		return nil, err
	}
	result := input.A * input.B
	logger.G(ctx).WithField("a", input.A).WithField("b", input.B).WithField("result", result).Debug("multiply")
	return result, nil
}

// DivideTool divides two numbers.
type DivideTool struct{}

// DivideInput are the arguments of divide.
type DivideInput struct {
	A float64 `json:"a" jsonschema:"description=Dividend"`
	B float64 `json:"b" jsonschema:"description=Divisor (non-zero)"`
}

func (t *DivideTool) Name() string        { return "divide" }
func (t *DivideTool) Description() string { return "Divide a by b and return the quotient" }

func (t *DivideTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[DivideInput]()
}

func (t *DivideTool) TracingKVs(args map[string]any) []attribute.KeyValue {
	return numericKVs(args, "a", "b")
}

func (t *DivideTool) Execute(_ context.Context, args map[string]any) (any, error) {
	input, err := decodeArgs[DivideInput](args)
	if err != nil {
		return nil, err
	}
	if input.B == 0 {
		return nil, errors.New("division by zero")
	}
	return input.A / input.B, nil
}

// WeatherTool reports canned weather for a handful of Japanese cities.
type WeatherTool struct{}

// WeatherInput are the arguments of get_weather.
type WeatherInput struct {
	City string `json:"city" jsonschema:"description=City name such as 東京 or Tokyo"`
}

var weatherTable = map[string]string{
	"東京":  "晴れ、気温30度、湿度60%",
	"大阪":  "曇り、気温28度、湿度70%",
	"名古屋": "雨、気温25度、湿度80%",
	"福岡":  "晴れ、気温32度、湿度55%",
	"札幌":  "曇り、気温22度、湿度65%",
}

var cityAliases = map[string]string{
	"tokyo":   "東京",
	"osaka":   "大阪",
	"nagoya":  "名古屋",
	"fukuoka": "福岡",
	"sapporo": "札幌",
}

func (t *WeatherTool) Name() string        { return "get_weather" }
func (t *WeatherTool) Description() string { return "Get the current weather for a city" }

func (t *WeatherTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[WeatherInput]()
}

func (t *WeatherTool) TracingKVs(args map[string]any) []attribute.KeyValue {
	city, _ := args["city"].(string)
	return []attribute.KeyValue{attribute.String("city", city)}
}

func (t *WeatherTool) Execute(_ context.Context, args map[string]any) (any, error) {
	input, err := decodeArgs[WeatherInput](args)
	if err != nil {
		return nil, err
	}
	return Weather(input.City), nil
}

// Weather looks up the canned report for city.
func Weather(city string) string {
	key := city
	if alias, ok := cityAliases[normalizeCity(city)]; ok {
		key = alias
	}
	if report, ok := weatherTable[key]; ok {
		return report
	}
	return fmt.Sprintf("No weather information for %s", city)
}

// JapanPMTool reports the current prime minister of Japan.
type JapanPMTool struct{}

// NoInput is the argument struct of tools that take no parameters.
type NoInput struct{}

// JapanPM is the answer get_japan_pm returns.
const JapanPM = "石破茂（第103代） 就任日 2024年（令和6年）11月11日"

func (t *JapanPMTool) Name() string        { return "get_japan_pm" }
func (t *JapanPMTool) Description() string { return "Return the current prime minister of Japan" }

func (t *JapanPMTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[NoInput]()
}

func (t *JapanPMTool) TracingKVs(map[string]any) []attribute.KeyValue { return nil }

func (t *JapanPMTool) Execute(context.Context, map[string]any) (any, error) {
	return JapanPM, nil
}

// CalculatorTool applies one arithmetic operation to two numbers.
type CalculatorTool struct{}

// CalculatorInput are the arguments of calculator.
type CalculatorInput struct {
	A  float64 `json:"a" jsonschema:"description=Left operand"`
	B  float64 `json:"b" jsonschema:"description=Right operand"`
	Op string  `json:"op" jsonschema:"description=Operation to apply,enum=add,enum=subtract,enum=multiply,enum=divide"`
}

func (t *CalculatorTool) Name() string { return "calculator" }
func (t *CalculatorTool) Description() string {
	return "Apply add, subtract, multiply or divide to two numbers"
}

func (t *CalculatorTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[CalculatorInput]()
}

func (t *CalculatorTool) TracingKVs(args map[string]any) []attribute.KeyValue {
	op, _ := args["op"].(string)
	return append(numericKVs(args, "a", "b"), attribute.String("op", op))
}

func (t *CalculatorTool) Execute(_ context.Context, args map[string]any) (any, error) {
	input, err := decodeArgs[CalculatorInput](args)
	if err != nil {
		return nil, err
	}
	return Calculate(input.A, input.B, input.Op)
}

// Calculate applies op to a and b.
func Calculate(a, b float64, op string) (float64, error) {
	switch op {
	case "add", "+":
		return a + b, nil
	case "subtract", "-":
		return a - b, nil
	case "multiply", "*", "×":
		return a * b, nil
	case "divide", "/", "÷":
		if b == 0 {
			return 0, errors.New("division by zero")
		}
		return a / b, nil
	default:
		return 0, errors.Wrapf(ErrInvalidArguments, "unknown operation %q", op)
	}
}

func numericKVs(args map[string]any, names ...string) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(names))
	for _, name := range names {
		kvs = append(kvs, attribute.String(name, fmt.Sprint(args[name])))
	}
	return kvs
}
