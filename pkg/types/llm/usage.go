package llm

// UsageRecord is the token accounting of one completed model call.
type UsageRecord struct {
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// NewUsageRecord builds a record, deriving the total when the provider does
// not report one.
func NewUsageRecord(model string, promptTokens, completionTokens, totalTokens int) UsageRecord {
	if totalTokens == 0 {
		totalTokens = promptTokens + completionTokens
	}
	return UsageRecord{
		Model:            model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      totalTokens,
	}
}

// HasAccounting reports whether the collaborator exposed token accounting.
func (u UsageRecord) HasAccounting() bool {
	return u.Model != ""
}
