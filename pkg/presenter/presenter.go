// Package presenter writes user facing CLI output: status lines, cost
// reports, the session summary box and ledger statistics.
package presenter

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/jingkaihe/mcplab/pkg/cost"
	"github.com/jingkaihe/mcplab/pkg/usage"
)

// ColorMode selects whether output is colored.
type ColorMode int

const (
	// ColorAuto leaves the decision to terminal detection.
	ColorAuto ColorMode = iota
	// ColorAlways forces color.
	ColorAlways
	// ColorNever disables color.
	ColorNever
)

// Field is a labelled value in the session summary.
type Field struct {
	Label string
	Value string
}

// TerminalPresenter writes to a pair of streams.
type TerminalPresenter struct {
	output      io.Writer
	errorOutput io.Writer
	input       *bufio.Reader
	colorMode   ColorMode
	quiet       bool
}

// New returns a presenter on stdout and stderr reading from stdin.
func New() *TerminalPresenter {
	return NewWithOptions(os.Stdout, os.Stderr, os.Stdin, detectColorMode())
}

// NewWithOptions returns a presenter on the given streams.
func NewWithOptions(output, errorOutput io.Writer, input io.Reader, mode ColorMode) *TerminalPresenter {
	switch mode {
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	}
	p := &TerminalPresenter{output: output, errorOutput: errorOutput, colorMode: mode}
	if input != nil {
		p.input = bufio.NewReader(input)
	}
	return p
}

func detectColorMode() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}
	switch strings.ToLower(os.Getenv("MCPLAB_COLOR")) {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	default:
		return ColorAuto
	}
}

// SetQuiet suppresses everything but errors and prompts.
func (p *TerminalPresenter) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// Error writes err to the error stream.
func (p *TerminalPresenter) Error(err error, context string) {
	if err == nil {
		return
	}
	c := color.New(color.FgRed, color.Bold)
	if context != "" {
		c.Fprintf(p.errorOutput, "[ERROR] %s: %v\n", context, err)
		return
	}
	c.Fprintf(p.errorOutput, "[ERROR] %v\n", err)
}

// Success writes a check-marked line.
func (p *TerminalPresenter) Success(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgGreen, color.Bold).Fprintf(p.output, "✓ %s\n", message)
}

// Warning writes a warning line.
func (p *TerminalPresenter) Warning(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgYellow, color.Bold).Fprintf(p.output, "⚠ %s\n", message)
}

// Info writes a plain line.
func (p *TerminalPresenter) Info(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.output, message)
}

// Section writes an underlined header.
func (p *TerminalPresenter) Section(title string) {
	if p.quiet {
		return
	}
	c := color.New(color.Bold)
	c.Fprintf(p.output, "\n%s\n", title)
	c.Fprintf(p.output, "%s\n", strings.Repeat("=", lipgloss.Width(title)))
}

// Prompt writes label and reads one line. ok is false at end of input.
func (p *TerminalPresenter) Prompt(label string) (line string, ok bool) {
	color.New(color.FgCyan).Fprint(p.output, label)
	if p.input == nil {
		return "", false
	}
	text, err := p.input.ReadString('\n')
	if err != nil && text == "" {
		return "", false
	}
	return strings.TrimSpace(text), true
}

// Cost writes the cost breakdown of one request.
func (p *TerminalPresenter) Cost(r cost.Result) {
	if p.quiet {
		return
	}
	var buf bytes.Buffer
	_ = cost.Report(&buf, r)
	color.New(color.FgCyan).Fprint(p.output, buf.String())
}

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// RenderSummary renders the end of session box: the given fields followed by
// the cost summary.
func RenderSummary(title string, fields []Field, sum cost.Summary) string {
	model := sum.Model
	if model == "" {
		model = "-"
	}
	fields = append(fields,
		Field{"Model used", model},
		Field{"Requests", usage.FormatNumber(sum.Requests)},
		Field{"Prompt tokens", usage.FormatNumber(sum.PromptTokens)},
		Field{"Completion tokens", usage.FormatNumber(sum.CompletionTokens)},
		Field{"Total tokens", usage.FormatNumber(sum.TotalTokens)},
		Field{"Total cost", cost.FormatCost(sum.TotalCost)},
		Field{"Average / request", cost.FormatCost(sum.AverageCostPerRequest)},
	)

	width := 0
	for _, f := range fields {
		width = max(width, lipgloss.Width(f.Label))
	}
	lines := []string{titleStyle.Render(title), ""}
	for _, f := range fields {
		label := f.Label + strings.Repeat(" ", width-lipgloss.Width(f.Label))
		lines = append(lines, labelStyle.Render(label)+"  "+f.Value)
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// Summary writes the end of session box.
func (p *TerminalPresenter) Summary(title string, fields []Field, sum cost.Summary) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.output, RenderSummary(title, fields, sum))
}

// UsageStats writes ledger statistics per day and per model.
func (p *TerminalPresenter) UsageStats(stats usage.Stats) {
	if p.quiet {
		return
	}
	if stats.Total.Requests == 0 {
		p.Info("No usage recorded in this period.")
		return
	}

	row := "%-12s %9s %12s %12s %12s\n"
	p.Section("Daily usage")
	fmt.Fprintf(p.output, row, "Date", "Requests", "Prompt", "Completion", "Cost")
	for _, d := range stats.Daily {
		fmt.Fprintf(p.output, row, d.Date.Format(time.DateOnly), usage.FormatNumber(d.Requests),
			usage.FormatNumber(d.PromptTokens), usage.FormatNumber(d.CompletionTokens), cost.FormatCost(d.TotalCost))
	}

	modelRow := "%-28s %9s %12s %12s\n"
	p.Section("By model")
	fmt.Fprintf(p.output, modelRow, "Model", "Requests", "Tokens", "Cost")
	for _, m := range stats.Models {
		fmt.Fprintf(p.output, modelRow, m.Model, usage.FormatNumber(m.Requests),
			usage.FormatNumber(m.TotalTokens), cost.FormatCost(m.TotalCost))
	}

	color.New(color.FgCyan, color.Bold).Fprintf(p.output, "\nTotal: %s requests, %s tokens, %s\n",
		usage.FormatNumber(stats.Total.Requests), usage.FormatNumber(stats.Total.TotalTokens), cost.FormatCost(stats.Total.TotalCost))
}

var defaultPresenter = New()

// Default returns the process wide presenter.
func Default() *TerminalPresenter {
	return defaultPresenter
}

// Error writes err using the default presenter.
func Error(err error, context string) {
	defaultPresenter.Error(err, context)
}

// Success writes message using the default presenter.
func Success(message string) {
	defaultPresenter.Success(message)
}

// Warning writes message using the default presenter.
func Warning(message string) {
	defaultPresenter.Warning(message)
}

// Info writes message using the default presenter.
func Info(message string) {
	defaultPresenter.Info(message)
}

// Section writes a header using the default presenter.
func Section(title string) {
	defaultPresenter.Section(title)
}

// Cost writes a cost breakdown using the default presenter.
func Cost(r cost.Result) {
	defaultPresenter.Cost(r)
}
