package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageFilter(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	filter, err := usageFilter(&UsageConfig{Since: "7d", Model: "gpt-4o", SessionID: "s-1"}, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-7*24*time.Hour), filter.Since)
	assert.True(t, filter.Until.IsZero())
	assert.Equal(t, "gpt-4o", filter.Model)
	assert.Equal(t, "s-1", filter.SessionID)

	filter, err = usageFilter(&UsageConfig{Since: "2026-10-01", Until: "12h"}, now)
	require.NoError(t, err)
	assert.Equal(t, 2026, filter.Since.Year())
	assert.Equal(t, time.October, filter.Since.Month())
	assert.Equal(t, 1, filter.Since.Day())
	assert.Equal(t, now.Add(-12*time.Hour), filter.Until)

	_, err = usageFilter(&UsageConfig{Since: "soon"}, now)
	assert.Error(t, err)
}
