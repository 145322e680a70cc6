// Package api implements the HTTP API for the assistant.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/seralba/vitala-health-agent/internal/agent"
	"github.com/seralba/vitala-health-agent/internal/buildinfo"
	"github.com/seralba/vitala-health-agent/internal/httpkit"
	"github.com/seralba/vitala-health-agent/internal/web"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response,
// which is not actionable but worth tracking for debugging.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// writeError sends a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"error": message}, logger)
}

// Server is the HTTP API server.
type Server struct {
	address string
	port    int
	loop    *agent.Loop
	logger  *slog.Logger
	server  *http.Server
	stats   *Stats
	web     *web.Server
}

// NewServer creates a new API server. web may be nil to serve the API
// without the browser frontend.
func NewServer(address string, port int, loop *agent.Loop, webServer *web.Server, logger *slog.Logger) *Server {
	return &Server{
		address: address,
		port:    port,
		loop:    loop,
		logger:  logger,
		stats:   NewStats(),
		web:     webServer,
	}
}

// Stats returns the server's session statistics.
func (s *Server) Stats() *Stats {
	return s.stats
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("GET /v1/symptoms", s.handleSymptoms)
	mux.HandleFunc("GET /v1/sessions", s.handleSessions)
	mux.HandleFunc("GET /v1/stats", s.handleStats)

	mux.HandleFunc("GET /v1/version", s.handleVersion)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	if s.web != nil {
		s.web.RegisterRoutes(mux)
	}

	return s.withLogging(mux)
}

// Start begins serving HTTP requests and blocks until the server stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // model calls can be slow
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"name":    "Vitala",
		"version": buildinfo.Version,
		"status":  "ok",
	}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}

// ChatRequest is the simple chat request body.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse is the simple chat response body.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", s.logger)
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "no message provided", s.logger)
		return
	}

	sess := s.loop.Sessions().GetOrCreate(req.SessionID)

	reply, err := s.loop.Respond(r.Context(), sess, req.Message)
	if err != nil {
		s.stats.RecordFailure()
		if errors.Is(err, httpkit.ErrServiceUnavailable) {
			writeError(w, http.StatusServiceUnavailable,
				"the assistant is temporarily unavailable, please try again", s.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "request failed", s.logger)
		return
	}

	s.stats.RecordTurn()

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ChatResponse{SessionID: sess.ID, Reply: reply}, s.logger)
}

func (s *Server) handleSymptoms(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "session_id is required", s.logger)
		return
	}

	sess, ok := s.loop.Sessions().Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session", s.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"session_id": sess.ID,
		"symptoms":   sess.Symptoms(),
	}, s.logger)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"sessions": s.loop.Sessions().List(),
	}, s.logger)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s.stats.Snapshot(), s.logger)
}
