// Package server exposes the query engine over a read-only JSON HTTP API.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/shibukawa/schemagraph/engine"
)

// GraphNotFoundMessage is returned while no graph has been loaded.
const GraphNotFoundMessage = "graph not found, run scan first"

// Server routes API requests to the current engine. The engine may be
// swapped at runtime when the graph file is rebuilt.
type Server struct {
	mu     sync.RWMutex
	engine *engine.Engine

	cors bool
	logf func(format string, args ...any)
}

// Option configures a Server
type Option func(*Server)

// WithCORS toggles permissive CORS headers.
func WithCORS(enabled bool) Option {
	return func(s *Server) {
		s.cors = enabled
	}
}

// WithLogger replaces log.Printf for access and error logs.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(s *Server) {
		s.logf = logf
	}
}

// New creates a server. e may be nil until a graph exists.
func New(e *engine.Engine, opts ...Option) *Server {
	s := &Server{
		engine: e,
		cors:   true,
		logf:   log.Printf,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Engine returns the engine currently serving requests.
func (s *Server) Engine() *engine.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.engine
}

// SetEngine replaces the serving engine.
func (s *Server) SetEngine(e *engine.Engine) {
	s.mu.Lock()
	s.engine = e
	s.mu.Unlock()
}

// Register binds the API handlers to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /tables", s.withEngine(s.handleTables))
	mux.HandleFunc("GET /tables/{name}", s.withEngine(s.handleExplain))
	mux.HandleFunc("GET /columns", s.withEngine(s.handleColumns))
	mux.HandleFunc("GET /relationships", s.withEngine(s.handleRelationships))
	mux.HandleFunc("GET /path", s.withEngine(s.handlePath))
	mux.HandleFunc("GET /join", s.withEngine(s.handleJoin))
	mux.HandleFunc("GET /stats", s.withEngine(s.handleStats))
}

// Handler returns the routed API wrapped in the access log and, when
// enabled, the CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)

	handler := s.accessLogMiddleware(mux)
	if s.cors {
		handler = corsMiddleware(handler)
	}

	return handler
}

type errorResponse struct {
	Error string `json:"error"`
}

type engineHandler func(w http.ResponseWriter, r *http.Request, e *engine.Engine)

func (s *Server) withEngine(next engineHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e := s.Engine()
		if e == nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: GraphNotFoundMessage})
			return
		}

		next(w, r, e)
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logf("%s %s failed: %v", r.Method, r.URL.Path, err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
