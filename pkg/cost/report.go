package cost

import (
	"fmt"
	"io"
	"strings"
)

// Report writes a per-request cost breakdown.
func Report(w io.Writer, r Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Model: %s", r.Model)
	if r.PricedAs != "" && r.PricedAs != r.Model {
		fmt.Fprintf(&b, " (priced as %s)", r.PricedAs)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Prompt tokens:     %8d  x $%.8f/token = %s\n", r.PromptTokens, r.InputRate, FormatCost(r.InputCost))
	fmt.Fprintf(&b, "Completion tokens: %8d  x $%.8f/token = %s\n", r.CompletionTokens, r.OutputRate, FormatCost(r.OutputCost))
	fmt.Fprintf(&b, "Total tokens:      %8d\n", r.TotalTokens)
	fmt.Fprintf(&b, "Total cost:        %s\n", FormatCost(r.TotalCost))

	_, err := io.WriteString(w, b.String())
	return err
}

// Report writes the session summary.
func (s *Session) Report(w io.Writer) error {
	sum := s.Summarize()
	model := sum.Model
	if model == "" {
		model = "-"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Model:             %s\n", model)
	fmt.Fprintf(&b, "Requests:          %d\n", sum.Requests)
	fmt.Fprintf(&b, "Prompt tokens:     %d\n", sum.PromptTokens)
	fmt.Fprintf(&b, "Completion tokens: %d\n", sum.CompletionTokens)
	fmt.Fprintf(&b, "Total tokens:      %d\n", sum.TotalTokens)
	fmt.Fprintf(&b, "Total cost:        %s\n", FormatCost(sum.TotalCost))
	fmt.Fprintf(&b, "Average / request: %s\n", FormatCost(sum.AverageCostPerRequest))

	_, err := io.WriteString(w, b.String())
	return err
}
