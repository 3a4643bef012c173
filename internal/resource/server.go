// ABOUTME: Resource service serving protected per-user data over TLS
// ABOUTME: Gates /data behind the delegated verifier; readiness tracks the authority

package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/keyward/keyward/internal/config"
	"github.com/keyward/keyward/internal/directory"
	"github.com/keyward/keyward/internal/httpx"
	"github.com/keyward/keyward/internal/lifecycle"
	"github.com/keyward/keyward/internal/token"
)

// Server is the resource service. It owns the read-only resource
// directory and authenticates callers through the delegated verifier.
type Server struct {
	cfg        *config.Config
	resources  *directory.Resources
	verifier   *Verifier
	authority  *AuthorityClient
	audit      *Auditor
	drain      *lifecycle.State
	logger     *slog.Logger
	httpServer *http.Server
}

// New creates a resource server from configuration.
func New(cfg *config.Config, drain *lifecycle.State, logger *slog.Logger) (*Server, error) {
	codec, err := token.New([]byte(cfg.Auth.JWTSecret), cfg.TokenTTL())
	if err != nil {
		return nil, fmt.Errorf("creating token codec: %w", err)
	}

	logger = logger.With("component", "resource")
	authority := NewAuthorityClient(cfg.UpstreamBaseURL(), cfg.Upstream.InsecureSkipVerify, logger)

	s := &Server{
		cfg:       cfg,
		resources: directory.NewResources(cfg.Resources),
		verifier:  NewVerifier(codec, authority, logger),
		authority: authority,
		audit:     NewAuditor(cfg.Audit.Dir, logger),
		drain:     drain,
		logger:    logger,
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
	mux.HandleFunc("/data", s.handleData)
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
		s.logger.Info("resource service listening", "addr", ln.Addr().String())
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

// handleHealth reports liveness, with a distinct status while draining.
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

// handleReadiness reports readiness. The resource service is ready only
// when the authority's health endpoint answers; recovery needs no restart.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.authority.CheckHealth(r.Context()); err != nil {
		s.logger.Warn("auth service health probe failed", "error", err)
		httpx.Status(w, http.StatusServiceUnavailable, "auth_service_unavailable")
		return
	}
	httpx.Status(w, http.StatusOK, "ready")
}

// handleData authenticates the caller through the delegated verifier and
// serves the resource record owned by the resolved identity. The drain
// check runs before anything else.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.drain.Draining() {
		httpx.Error(w, http.StatusServiceUnavailable, "service shutting down")
		return
	}

	creds, err := decodeCredentials(r)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "request must be JSON")
		return
	}

	username, err := s.verifier.Authenticate(r.Context(), r.Header.Get("Authorization"), creds)
	if err != nil {
		s.writeAuthError(w, err)
		return
	}

	payload, ok := s.resources.Lookup(username)
	if !ok {
		// The identity was valid; only the data is missing.
		s.logger.Warn("no resource record for user", "user", username)
		httpx.Error(w, http.StatusNotFound, "user data not found")
		return
	}

	duration := time.Since(start)
	s.logger.Info("data request successful", "user", username, "duration", duration)
	s.audit.Record(username, duration)

	httpx.WriteJSON(w, http.StatusOK, payload)
}

// writeAuthError maps verifier failures onto the response taxonomy.
// Token and credential rejections are 401 with a machine-distinguishable
// reason; an unreachable authority is 500, distinct from a rejection.
func (s *Server) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, token.ErrExpired):
		httpx.Error(w, http.StatusUnauthorized, "invalid token: expired")
	case errors.Is(err, token.ErrBadSignature):
		httpx.Error(w, http.StatusUnauthorized, "invalid token: bad signature")
	case errors.Is(err, token.ErrMalformed):
		httpx.Error(w, http.StatusUnauthorized, "invalid token: malformed")
	case errors.Is(err, ErrAuthenticationFailed):
		httpx.Error(w, http.StatusUnauthorized, "authentication failed")
	case errors.Is(err, ErrUpstreamUnavailable):
		httpx.Error(w, http.StatusInternalServerError, "error connecting to auth service")
	default:
		s.logger.Error("unexpected authentication error", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeCredentials parses the optional JSON request body. The body must
// be JSON when present; bearer-token requests may send an empty body.
func decodeCredentials(r *http.Request) (Credentials, error) {
	var creds Credentials

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return creds, err
	}
	if len(body) == 0 {
		return creds, nil
	}

	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return creds, fmt.Errorf("content type %q is not JSON", ct)
		}
	}
	if err := json.Unmarshal(body, &creds); err != nil {
		return creds, err
	}
	return creds, nil
}
