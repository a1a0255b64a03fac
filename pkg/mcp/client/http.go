package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	tooltypes "github.com/jingkaihe/mcplab/pkg/types/tools"
)

// HTTPClient speaks the plain /tools and /call protocol.
type HTTPClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient returns a client rooted at baseURL.
func NewHTTPClient(name, baseURL string) *HTTPClient {
	return &HTTPClient{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name is the configured server name.
func (c *HTTPClient) Name() string {
	return c.name
}

// Initialize checks that the server answers.
func (c *HTTPClient) Initialize(ctx context.Context) error {
	_, err := c.ListTools(ctx)
	return err
}

// ListTools implements the agent catalog.
func (c *HTTPClient) ListTools(ctx context.Context) ([]tooltypes.ToolDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tools", nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build tools request")
	}

	var entries []tooltypes.ListEntry
	if err := c.do(req, &entries); err != nil {
		return nil, errors.Wrapf(err, "failed to list tools of %q", c.name)
	}

	descriptors := make([]tooltypes.ToolDescriptor, 0, len(entries))
	for _, e := range entries {
		params, err := tooltypes.ParseParameters(e.Parameters)
		if err != nil {
			return nil, errors.Wrapf(err, "tool %s", e.Name)
		}
		descriptors = append(descriptors, tooltypes.ToolDescriptor{
			Name:        e.Name,
			Description: e.Description,
			Parameters:  params,
		})
	}
	return descriptors, nil
}

// CallTool implements the agent executor. JSON results are decoded; a string
// result comes back as a string.
func (c *HTTPClient) CallTool(ctx context.Context, name string, params map[string]any) (any, error) {
	body, err := json.Marshal(tooltypes.CallRequest{Tool: name, Parameters: params})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode call request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build call request")
	}
	req.Header.Set("Content-Type", "application/json")

	var resp tooltypes.CallResponse
	if err := c.do(req, &resp); err != nil {
		return nil, errors.Wrapf(err, "failed to call tool %s on %q", name, c.name)
	}
	if resp.Error != "" {
		return nil, errors.Wrap(ErrRemoteTool, resp.Error)
	}

	var result any
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return nil, errors.Wrap(err, "failed to decode tool result")
		}
	}
	return result, nil
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
