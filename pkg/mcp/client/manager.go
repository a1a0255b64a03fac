package client

import (
	"context"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/jingkaihe/mcplab/pkg/logger"
	tooltypes "github.com/jingkaihe/mcplab/pkg/types/tools"
)

// Session is a connected tool server.
type Session interface {
	Name() string
	Initialize(ctx context.Context) error
	ListTools(ctx context.Context) ([]tooltypes.ToolDescriptor, error)
	CallTool(ctx context.Context, name string, params map[string]any) (any, error)
	Close() error
}

var (
	_ Session = (*MCPClient)(nil)
	_ Session = (*HTTPClient)(nil)
)

// New picks the client for cfg: the plain HTTP protocol for "http", MCP otherwise.
func New(name string, cfg ServerConfig) (Session, error) {
	if cfg.Transport == TransportHTTP {
		if cfg.URL == "" {
			return nil, errors.Errorf("server %q: url is required for http", name)
		}
		return NewHTTPClient(name, cfg.URL), nil
	}
	return NewMCPClient(name, cfg)
}

// Manager owns a set of named sessions.
type Manager struct {
	sessions map[string]Session
}

// NewManager builds one session per configured server.
func NewManager(servers map[string]ServerConfig) (*Manager, error) {
	m := &Manager{sessions: make(map[string]Session, len(servers))}
	for name, cfg := range servers {
		s, err := New(name, cfg)
		if err != nil {
			return nil, err
		}
		m.sessions[name] = s
	}
	return m, nil
}

// Add registers an already built session.
func (m *Manager) Add(s Session) {
	m.sessions[s.Name()] = s
}

// Names lists the sessions, sorted.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.sessions))
	for name := range m.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the session called name.
func (m *Manager) Get(name string) (Session, error) {
	s, ok := m.sessions[name]
	if !ok {
		return nil, errors.Errorf("tool server %q is not configured", name)
	}
	return s, nil
}

// Initialize connects every session, stopping at the first failure.
func (m *Manager) Initialize(ctx context.Context) error {
	for _, name := range m.Names() {
		if err := m.sessions[name].Initialize(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every session and reports all failures together.
func (m *Manager) Close(ctx context.Context) error {
	var result *multierror.Error
	for _, name := range m.Names() {
		if err := m.sessions[name].Close(); err != nil {
			logger.G(ctx).WithError(err).WithField("server", name).Warn("failed to close tool server session")
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
