package usage

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jingkaihe/mcplab/pkg/cost"
)

// Totals aggregates a set of records.
type Totals struct {
	Requests         int     `json:"requests"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	InputCost        float64 `json:"input_cost"`
	OutputCost       float64 `json:"output_cost"`
	TotalCost        float64 `json:"total_cost"`
}

func (t *Totals) add(r Record) {
	t.Requests++
	t.PromptTokens += r.PromptTokens
	t.CompletionTokens += r.CompletionTokens
	t.TotalTokens += r.TotalTokens
	t.InputCost += r.InputCost
	t.OutputCost += r.OutputCost
	t.TotalCost += r.TotalCost
}

// DailyUsage is the usage of one UTC day.
type DailyUsage struct {
	Date time.Time `json:"date"`
	Totals
}

// ModelUsage is the usage of one model.
type ModelUsage struct {
	Model string `json:"model"`
	Totals
}

// Stats is the report printed by `mcplab usage`.
type Stats struct {
	Daily  []DailyUsage `json:"daily"`
	Models []ModelUsage `json:"models"`
	Total  Totals       `json:"total"`
}

// Calculate aggregates records per day (newest first) and per model (most
// expensive first).
func Calculate(records []Record) Stats {
	days := map[string]*DailyUsage{}
	models := map[string]*ModelUsage{}
	var stats Stats

	for _, r := range records {
		date := r.CreatedAt.UTC().Truncate(24 * time.Hour)
		key := date.Format(time.DateOnly)
		if days[key] == nil {
			days[key] = &DailyUsage{Date: date}
		}
		days[key].add(r)

		model := cost.NormalizeModel(r.Model)
		if models[model] == nil {
			models[model] = &ModelUsage{Model: model}
		}
		models[model].add(r)

		stats.Total.add(r)
	}

	for _, d := range days {
		stats.Daily = append(stats.Daily, *d)
	}
	sort.Slice(stats.Daily, func(i, j int) bool { return stats.Daily[i].Date.After(stats.Daily[j].Date) })

	for _, m := range models {
		stats.Models = append(stats.Models, *m)
	}
	sort.Slice(stats.Models, func(i, j int) bool {
		if stats.Models[i].TotalCost != stats.Models[j].TotalCost {
			return stats.Models[i].TotalCost > stats.Models[j].TotalCost
		}
		return stats.Models[i].Model < stats.Models[j].Model
	})
	return stats
}

// ParseSince turns "7d", "12h" or "2026-01-02" into the start of a window
// ending at now.
func ParseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return time.Time{}, errors.Errorf("invalid day count %q", s)
		}
		return now.AddDate(0, 0, -n), nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid time %q: use 7d, 12h or YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatNumber groups digits with commas.
func FormatNumber(n int) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	str := strconv.Itoa(n)
	if len(str) <= 3 {
		return str
	}

	var out strings.Builder
	for i, digit := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(digit)
	}
	return out.String()
}
