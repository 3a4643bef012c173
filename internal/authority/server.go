// ABOUTME: Authority service owning the credential table and token issuance
// ABOUTME: Serves /health, /readiness, and POST /auth over TLS

package authority

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/keyward/keyward/internal/config"
	"github.com/keyward/keyward/internal/directory"
	"github.com/keyward/keyward/internal/httpx"
	"github.com/keyward/keyward/internal/lifecycle"
	"github.com/keyward/keyward/internal/token"
)

// Server is the authority service. It verifies credentials against the
// immutable principal directory and issues signed tokens.
type Server struct {
	cfg        *config.Config
	principals *directory.Principals
	codec      *token.Codec
	drain      *lifecycle.State
	logger     *slog.Logger
	httpServer *http.Server
}

// AuthRequest is the JSON request body for POST /auth.
type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is the JSON response body for POST /auth.
type AuthResponse struct {
	Authenticated bool   `json:"authenticated"`
	User          string `json:"user,omitempty"`
	Token         string `json:"token,omitempty"`
	Error         string `json:"error,omitempty"`
}

// New creates an authority server from configuration.
func New(cfg *config.Config, drain *lifecycle.State, logger *slog.Logger) (*Server, error) {
	entries := make(map[string]directory.Entry, len(cfg.Principals))
	for username, p := range cfg.Principals {
		entries[username] = directory.Entry{Secret: p.Password, Role: directory.Role(p.Role)}
	}
	principals, err := directory.NewPrincipals(entries)
	if err != nil {
		return nil, fmt.Errorf("building principal directory: %w", err)
	}

	codec, err := token.New([]byte(cfg.Auth.JWTSecret), cfg.TokenTTL())
	if err != nil {
		return nil, fmt.Errorf("creating token codec: %w", err)
	}

	s := &Server{
		cfg:        cfg,
		principals: principals,
		codec:      codec,
		drain:      drain,
		logger:     logger.With("component", "authority"),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the full HTTP handler, including middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/readiness", s.handleReadiness)
	mux.HandleFunc("/auth", s.handleAuth)
	return httpx.RequestLog(s.logger, httpx.Recover(s.logger, mux))
}

// Run serves TLS until ctx is canceled, then begins draining and performs
// a bounded graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("authority listening", "addr", ln.Addr().String())
		if err := s.httpServer.ServeTLS(ln, s.cfg.Server.CertFile, s.cfg.Server.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("received shutdown signal, finishing requests")
		s.drain.Begin()
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// handleHealth reports liveness. A draining process reports a distinct
// shutting_down status so orchestrators can tell it from a failure.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.drain.Draining() {
		httpx.Status(w, http.StatusServiceUnavailable, "shutting_down")
		return
	}
	httpx.Status(w, http.StatusOK, "healthy")
}

// handleReadiness reports readiness. The authority has no upstream
// dependencies, so its self-check is unconditional.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	httpx.Status(w, http.StatusOK, "ready")
}

// handleAuth verifies credentials and issues a token. The drain check runs
// before anything else; shutdown takes priority over all business logic.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.drain.Draining() {
		httpx.Error(w, http.StatusServiceUnavailable, "service shutting down")
		return
	}

	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, AuthResponse{Error: "invalid request body"})
		return
	}

	s.logger.Info("authentication attempt", "user", req.Username)

	if req.Username == "" || req.Password == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, AuthResponse{Error: "missing credentials"})
		return
	}

	principal, err := s.principals.Verify(req.Username, req.Password)
	if err != nil {
		s.logger.Warn("authentication failed", "user", req.Username)
		httpx.WriteJSON(w, http.StatusUnauthorized, AuthResponse{Error: "invalid credentials"})
		return
	}

	tok, err := s.codec.IssueDefault(principal.Username, string(principal.Role))
	if err != nil {
		s.logger.Error("token issuance failed", "user", req.Username, "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, AuthResponse{Error: "authentication failed"})
		return
	}

	s.logger.Info("authentication successful",
		"user", principal.Username,
		"duration", time.Since(start),
	)
	httpx.WriteJSON(w, http.StatusOK, AuthResponse{
		Authenticated: true,
		User:          principal.Username,
		Token:         tok,
	})
}
