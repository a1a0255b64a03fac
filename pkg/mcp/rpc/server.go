// Package rpc serves tools over a minimal HTTP protocol: GET /tools lists the
// catalog and POST /call invokes one tool.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/jingkaihe/mcplab/pkg/logger"
	"github.com/jingkaihe/mcplab/pkg/tools"
	tooltypes "github.com/jingkaihe/mcplab/pkg/types/tools"
)

// Server exposes a tool registry over HTTP.
type Server struct {
	registry *tools.Registry
	router   *mux.Router
	server   *http.Server
	listener net.Listener
}

// NewServer binds addr and prepares the routes. Use ":0" for an ephemeral port.
func NewServer(registry *tools.Registry, addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", addr)
	}

	s := &Server{
		registry: registry,
		router:   mux.NewRouter(),
		listener: listener,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s, nil
}

// NewHandler returns the routes without binding a listener.
func NewHandler(registry *tools.Registry) http.Handler {
	s := &Server{registry: registry, router: mux.NewRouter()}
	s.setupRoutes()
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/tools", s.handleListTools).Methods(http.MethodGet)
	s.router.HandleFunc("/call", s.handleCall).Methods(http.MethodPost)
	s.router.Use(loggingMiddleware)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.G(r.Context()).WithFields(map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rw.status,
			"duration": time.Since(start),
		}).Debug("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	list := make([]tooltypes.ListEntry, 0, len(s.registry.List()))
	for _, t := range s.registry.List() {
		schema, err := tools.SchemaJSON(t)
		if err != nil {
			writeJSON(r.Context(), w, http.StatusInternalServerError, tooltypes.CallResponse{Error: err.Error()})
			return
		}
		list = append(list, tooltypes.ListEntry{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  schema,
		})
	}
	writeJSON(r.Context(), w, http.StatusOK, list)
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req tooltypes.CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(ctx, w, http.StatusBadRequest, tooltypes.CallResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	log := logger.G(ctx).WithField("tool", req.Tool)
	if _, ok := s.registry.Get(req.Tool); !ok {
		log.Warn("unknown tool requested")
		writeJSON(ctx, w, http.StatusOK, tooltypes.CallResponse{Error: fmt.Sprintf("Tool '%s' not found", req.Tool)})
		return
	}

	result, err := s.registry.CallTool(ctx, req.Tool, req.Parameters)
	if err != nil {
		log.WithError(err).Info("tool call failed")
		writeJSON(ctx, w, http.StatusOK, tooltypes.CallResponse{Error: err.Error()})
		return
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		writeJSON(ctx, w, http.StatusInternalServerError, tooltypes.CallResponse{Error: "failed to encode result"})
		return
	}
	log.WithField("result", string(encoded)).Info("tool called")
	writeJSON(ctx, w, http.StatusOK, tooltypes.CallResponse{Result: encoded})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.G(ctx).WithError(err).Error("failed to encode response")
	}
}

// Addr is the address the server listens on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	logger.G(ctx).WithField("addr", s.Addr()).Info("starting HTTP tool server")
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "HTTP tool server failed")
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.G(ctx).Info("shutting down HTTP tool server")
	if err := s.server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "failed to shutdown HTTP tool server")
	}
	return nil
}
