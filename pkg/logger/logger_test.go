package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	l := newLogger()

	formatter, ok := l.Formatter.(*logrus.TextFormatter)
	require.True(t, ok)
	assert.Equal(t, time.RFC3339Nano, formatter.TimestampFormat)
	assert.True(t, formatter.FullTimestamp)
}

func TestGetLoggerFallsBackToGlobal(t *testing.T) {
	entry := G(context.Background())
	assert.Equal(t, L.Logger, entry.Logger)
}

func TestWithLoggerRoundTrip(t *testing.T) {
	custom := logrus.NewEntry(logrus.New()).WithField("component", "agent")
	ctx := WithLogger(context.Background(), custom)

	got := G(ctx)
	assert.Equal(t, custom.Logger, got.Logger)
	assert.Equal(t, "agent", got.Data["component"])
}

func TestWithFields(t *testing.T) {
	ctx := WithFields(context.Background(), logrus.Fields{"session": "abc"})
	ctx = WithFields(ctx, logrus.Fields{"iteration": 2})

	entry := G(ctx)
	assert.Equal(t, "abc", entry.Data["session"])
	assert.Equal(t, 2, entry.Data["iteration"])
}

func TestSetLogLevel(t *testing.T) {
	original := L.Logger.GetLevel()
	defer L.Logger.SetLevel(original)

	require.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())

	assert.Error(t, SetLogLevel("loud"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())
}

func TestSetLogFormatJSON(t *testing.T) {
	originalFormatter := L.Logger.Formatter
	originalOut := L.Logger.Out
	defer func() {
		L.Logger.Formatter = originalFormatter
		L.Logger.SetOutput(originalOut)
	}()

	var buf bytes.Buffer
	SetLogOutput(&buf)
	SetLogFormat("json")

	G(context.Background()).WithField("tool", "multiply").Info("tool called")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "tool called", line["message"])
	assert.Equal(t, "info", line["logLevel"])
	assert.Equal(t, "multiply", line["tool"])
	assert.Contains(t, line, "timestamp")
}
