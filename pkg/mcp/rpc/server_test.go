package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/mcplab/pkg/tools"
	tooltypes "github.com/jingkaihe/mcplab/pkg/types/tools"
)

func postCall(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, tooltypes.CallResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/call", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp tooltypes.CallResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestListTools(t *testing.T) {
	h := NewHandler(tools.DefaultRegistry())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tools", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var list []tooltypes.ListEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 5)
	assert.Equal(t, "multiply", list[0].Name)

	params, err := tooltypes.ParseParameters(list[0].Parameters)
	require.NoError(t, err)
	assert.Equal(t, "a", params[0].Name)
	assert.True(t, params[0].Required)
}

func TestCall(t *testing.T) {
	h := NewHandler(tools.DefaultRegistry())

	tests := []struct {
		name       string
		body       string
		status     int
		wantResult string
		wantError  string
	}{
		{
			name:       "multiply",
			body:       `{"tool": "multiply", "parameters": {"a": 5, "b": 3}}`,
			status:     http.StatusOK,
			wantResult: "15",
		},
		{
			name:       "zero result is still a result",
			body:       `{"tool": "multiply", "parameters": {"a": 0, "b": 3}}`,
			status:     http.StatusOK,
			wantResult: "0",
		},
		{
			name:       "weather",
			body:       `{"tool": "get_weather", "parameters": {"city": "大阪"}}`,
			status:     http.StatusOK,
			wantResult: `"曇り、気温28度、湿度70%"`,
		},
		{
			name:      "unknown tool",
			body:      `{"tool": "translate", "parameters": {}}`,
			status:    http.StatusOK,
			wantError: "Tool 'translate' not found",
		},
		{
			name:      "missing parameter",
			body:      `{"tool": "multiply", "parameters": {"a": 5}}`,
			status:    http.StatusOK,
			wantError: `missing required parameter "b"`,
		},
		{
			name:      "tool fault",
			body:      `{"tool": "divide", "parameters": {"a": 5, "b": 0}}`,
			status:    http.StatusOK,
			wantError: "division by zero",
		},
		{
			name:      "malformed body",
			body:      `{"tool":`,
			status:    http.StatusBadRequest,
			wantError: "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := postCall(t, h, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			if tt.wantError != "" {
				assert.Contains(t, resp.Error, tt.wantError)
				assert.Empty(t, resp.Result)
				return
			}
			assert.Empty(t, resp.Error)
			assert.JSONEq(t, tt.wantResult, string(resp.Result))
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewHandler(tools.DefaultRegistry())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/call", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServerLifecycle(t *testing.T) {
	s, err := NewServer(tools.DefaultRegistry(), "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	resp, err := http.Get(fmt.Sprintf("http://%s/tools", s.Addr()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.NoError(t, <-done)
}

func TestNewServerBadAddress(t *testing.T) {
	_, err := NewServer(tools.DefaultRegistry(), "256.0.0.1:bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
