package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
)

var (
	multiplyKeywords = []string{"掛けて", "かけて", "×", "multiply", "計算", "times"}
	weatherKeywords  = []string{"天気", "weather", "気温"}

	integerPattern = regexp.MustCompile(`-?\d+`)
	englishCity    = regexp.MustCompile(`(?i)weather\s+(?:in|for|at)\s+([\p{L}][\p{L}\s.-]*?)\s*[?？!.]*$`)
	japaneseCity   = regexp.MustCompile(`^\s*([\p{L}]+?)\s*の(?:天気|気温)`)
)

// RuleModel is the model name RuleDecider reports. It carries no token accounting.
const RuleModel = "rules"

// RuleDecider answers decision requests with keyword rules instead of a model.
// It speaks the same TOOL:/DIRECT: convention, so the loop cannot tell the
// difference.
type RuleDecider struct{}

// NewRuleDecider returns a RuleDecider.
func NewRuleDecider() *RuleDecider {
	return &RuleDecider{}
}

// Decide implements Decider.
func (d *RuleDecider) Decide(_ context.Context, req llmtypes.Request) (llmtypes.Response, error) {
	return llmtypes.Response{Text: d.decide(req), Model: RuleModel}, nil
}

func (d *RuleDecider) decide(req llmtypes.Request) string {
	text := strings.TrimSpace(req.User)

	// The fallback request has no catalog, so it can only be answered directly.
	if req.System == DirectAnswerPrompt {
		return DirectPrefix + " " + text
	}

	switch {
	case strings.HasPrefix(text, ObservationPrefix):
		return DirectPrefix + " " + strings.TrimSpace(strings.TrimPrefix(text, ObservationPrefix))
	case strings.HasPrefix(text, ErrorObservationPrefix):
		return DirectPrefix + " " + text
	case containsAny(text, multiplyKeywords):
		nums := integerPattern.FindAllString(text, -1)
		if len(nums) < 2 {
			return DirectPrefix + " Multiplication needs two numbers."
		}
		a, _ := strconv.Atoi(nums[0])
		b, _ := strconv.Atoi(nums[1])
		return toolResponse("multiply", map[string]any{"a": a, "b": b}, "a", "b")
	case containsAny(text, weatherKeywords):
		city := extractCity(text)
		if city == "" {
			return DirectPrefix + " Which city would you like the weather for?"
		}
		return toolResponse("get_weather", map[string]any{"city": city}, "city")
	default:
		return DirectPrefix + " " + text
	}
}

func toolResponse(name string, params map[string]any, order ...string) string {
	parts := make([]string, 0, len(order))
	for _, key := range order {
		k, _ := json.Marshal(key)
		v, _ := json.Marshal(params[key])
		parts = append(parts, fmt.Sprintf("%s: %s", k, v))
	}
	return fmt.Sprintf("%s %s\n{%s}", ToolPrefix, name, strings.Join(parts, ", "))
}

func extractCity(text string) string {
	if m := japaneseCity.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := englishCity.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
