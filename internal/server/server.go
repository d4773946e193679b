// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/morganforge/chitfund-console/internal/session"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:9464"

	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 5 * time.Second
)

// ============================================================================
// SERVER
// ============================================================================

// Server serves health, session and metrics endpoints.
type Server struct {
	addr    string
	router  *http.ServeMux
	snap    session.Snapshotter
	metrics http.Handler
	logger  *slog.Logger
	version string
}

// Option configures a Server.
type Option func(*Server)

// WithSnapshotter exposes the snapshot of src on /session.
func WithSnapshotter(src session.Snapshotter) Option {
	return func(s *Server) { s.snap = src }
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the request and lifecycle logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a Server listening on addr (DefaultAddr when empty).
func NewServer(addr string, opts ...Option) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{
		addr:   addr,
		router: http.NewServeMux(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	if s.snap != nil {
		s.router.HandleFunc("GET /session", s.handleSession)
	}
	if s.metrics != nil {
		s.router.Handle("GET /metrics", s.metrics)
	}
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(s.logger),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(s.logger),
	)(s.router)
}

// ============================================================================
// HANDLERS
// ============================================================================

// HealthResponse is the /health body.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: s.version})
}

// SessionResponse is the /session body.
type SessionResponse struct {
	Phase            string     `json:"phase"`
	IsActive         bool       `json:"is_active"`
	IsWarningActive  bool       `json:"is_warning_active"`
	TimeRemainingSec int64      `json:"time_remaining_seconds"`
	UserID           string     `json:"user_id,omitempty"`
	Role             string     `json:"role,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
}

// NewSessionResponse converts a snapshot into its wire form.
func NewSessionResponse(info session.Info) SessionResponse {
	resp := SessionResponse{
		Phase:            info.Phase.String(),
		IsActive:         info.IsActive,
		IsWarningActive:  info.IsWarningActive,
		TimeRemainingSec: int64(info.TimeRemaining / time.Second),
		UserID:           info.User.ID,
		Role:             info.User.Role,
	}
	if info.HasSession() {
		exp := info.ExpiresAt.UTC()
		resp.ExpiresAt = &exp
	}
	return resp
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NewSessionResponse(s.snap.Snapshot()))
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Run serves until ctx is done, then shuts down gracefully. It returns nil
// after a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("SERVER_START", "addr", s.addr)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("SERVER_SHUTDOWN", "addr", s.addr)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// ============================================================================
// HELPERS
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
