package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUsageRecord(t *testing.T) {
	tests := []struct {
		name       string
		prompt     int
		completion int
		total      int
		want       int
	}{
		{name: "total reported", prompt: 10, completion: 5, total: 20, want: 20},
		{name: "total derived", prompt: 10, completion: 5, total: 0, want: 15},
		{name: "empty", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewUsageRecord("gpt-4o", tt.prompt, tt.completion, tt.total)
			assert.Equal(t, tt.want, rec.TotalTokens)
			assert.True(t, rec.HasAccounting())
		})
	}

	assert.False(t, UsageRecord{}.HasAccounting())
}
