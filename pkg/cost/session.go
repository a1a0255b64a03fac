package cost

// Session accumulates the cost of every request in one interactive session.
// It is a plain accumulator: give each concurrent session its own.
type Session struct {
	PromptTokens     int
	CompletionTokens int
	TotalCost        float64
	Requests         int
	Model            string
}

// Summary is a read-only snapshot of a Session.
type Summary struct {
	Model                 string  `json:"model" yaml:"model"`
	Requests              int     `json:"total_requests" yaml:"total_requests"`
	PromptTokens          int     `json:"total_prompt_tokens" yaml:"total_prompt_tokens"`
	CompletionTokens      int     `json:"total_completion_tokens" yaml:"total_completion_tokens"`
	TotalTokens           int     `json:"total_tokens" yaml:"total_tokens"`
	TotalCost             float64 `json:"total_cost" yaml:"total_cost"`
	AverageCostPerRequest float64 `json:"average_cost_per_request" yaml:"average_cost_per_request"`
}

// Add folds one request into the session. The first model seen names the session.
func (s *Session) Add(r Result) {
	s.PromptTokens += r.PromptTokens
	s.CompletionTokens += r.CompletionTokens
	s.TotalCost += r.TotalCost
	s.Requests++
	if s.Model == "" {
		s.Model = r.Model
	}
}

// Summarize returns a snapshot. The average is 0 when nothing was added.
func (s *Session) Summarize() Summary {
	var avg float64
	if s.Requests > 0 {
		avg = s.TotalCost / float64(s.Requests)
	}
	return Summary{
		Model:                 s.Model,
		Requests:              s.Requests,
		PromptTokens:          s.PromptTokens,
		CompletionTokens:      s.CompletionTokens,
		TotalTokens:           s.PromptTokens + s.CompletionTokens,
		TotalCost:             s.TotalCost,
		AverageCostPerRequest: avg,
	}
}
