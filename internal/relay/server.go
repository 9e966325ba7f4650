/*-------------------------------------------------------------------------
 *
 * EV Dashboard MCP Relay
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"evdash-mcp/internal/config"
	"evdash-mcp/internal/logging"
	"evdash-mcp/internal/mcp"
)

// maxMessageSize caps inbound POST bodies (1MB). Prevents unbounded
// memory growth from malformed or malicious messages.
const maxMessageSize = 1024 * 1024

// Server is the relay process entry point: it accepts SSE connections,
// creates and registers a session per stream, routes inbound POSTs to
// the addressed session, and tears everything down on shutdown.
type Server struct {
	cfg       *config.Config
	mcpServer *mcp.Server
	registry  *Registry
	router    chi.Router
	httpSrv   *http.Server
	closing   atomic.Bool
}

// NewServer creates a relay server with its routes installed
func NewServer(cfg *config.Config, mcpServer *mcp.Server) *Server {
	s := &Server{
		cfg:       cfg,
		mcpServer: mcpServer,
		registry:  NewRegistry(),
	}

	r := chi.NewRouter()
	r.Use(corsMiddleware)
	r.Get(cfg.Server.SSEPath, s.handleSSE)
	r.Post(cfg.Server.MessagePathPrefix+"/{sessionID}", s.handleMessage)
	r.Get("/health", s.handleHealth)
	s.router = r

	return s
}

// Registry returns the session registry for observability
func (s *Server) Registry() *Registry {
	return s.registry
}

// Handler returns the HTTP handler, usable directly in tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Mount attaches an additional handler subtree, e.g. the dashboard API
func (s *Server) Mount(pattern string, handler http.Handler) {
	s.router.Mount(pattern, handler)
}

// Run serves until the context is cancelled, then performs the ordered
// shutdown: stop accepting, close sessions, clear the registry. The
// caller owns the database pool and releases it after Run returns, so
// no session can still be mid-query when the pool goes away.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:    s.cfg.Server.Address,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("Relay server listening",
			"address", s.cfg.Server.Address,
			"sse_path", s.cfg.Server.SSEPath,
			"message_path_prefix", s.cfg.Server.MessagePathPrefix)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("relay server failed: %w", err)
	case <-ctx.Done():
	}

	return s.shutdown()
}

// shutdown drives every open session to Closed, then stops the HTTP
// server. Client notification is best-effort; delivery is not
// guaranteed on a stream that is already dying.
func (s *Server) shutdown() error {
	s.closing.Store(true)

	sessions := s.registry.Snapshot()
	logging.Info("Shutting down", "active_sessions", len(sessions))

	for _, session := range sessions {
		_ = session.SendEvent("shutdown", "server shutting down")
		session.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(s.cfg.Server.ShutdownSeconds)*time.Second)
	defer cancel()

	err := s.httpSrv.Shutdown(shutdownCtx)
	s.registry.Clear()

	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// handleSSE accepts one long-lived event stream connection. The handler
// goroutine holds the stream open until the client disconnects or the
// session is closed from elsewhere.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if s.closing.Load() {
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}

	sessionID := uuid.NewString()
	messagePath := s.cfg.Server.MessagePathPrefix + "/" + sessionID

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	session, err := NewSession(sessionID, messagePath, w, s.mcpServer)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := s.registry.Register(sessionID, session); err != nil {
		http.Error(w, "Failed to register session", http.StatusInternalServerError)
		return
	}

	// Handshake failure drives Connecting -> Closed directly; no zombie
	// entry may remain registered
	if err := session.Open(); err != nil {
		s.registry.Remove(sessionID)
		session.Close()
		logging.Warn("SSE handshake failed", "session_id", sessionID, "error", err.Error())
		return
	}

	logging.Info("SSE connection opened",
		"session_id", sessionID,
		"remote", r.RemoteAddr,
		"active", s.registry.Size())

	keepalive := time.NewTicker(time.Duration(s.cfg.Server.KeepaliveSeconds) * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			// Client disconnected; in-flight queries run to completion
			// and their results are discarded
			s.teardown(session, "client disconnect")
			return
		case <-session.Done():
			s.registry.Remove(sessionID)
			logging.Info("SSE connection closed",
				"session_id", sessionID,
				"active", s.registry.Size())
			return
		case <-keepalive.C:
			if err := session.SendKeepalive(); err != nil {
				s.teardown(session, "keepalive failed")
				return
			}
		}
	}
}

// handleMessage routes one inbound protocol message to the addressed
// session. Unknown or stale identifiers are rejected with 404; they
// never reach a live session's transport.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, ok := s.registry.Lookup(sessionID)
	if !ok {
		logging.Warn("Message for unknown session", "session_id", sessionID, "remote", r.RemoteAddr)
		http.Error(w, fmt.Sprintf("Session %s not found or has been closed", sessionID), http.StatusNotFound)
		return
	}

	// The identifier is only announced once the handshake completes, so a
	// message arriving while the session is still Connecting is addressed
	// to a path the client cannot legitimately know yet. Reject it rather
	// than tear down a session that is about to open.
	if session.State() == StateConnecting {
		logging.Warn("Message for session mid-handshake", "session_id", sessionID, "remote", r.RemoteAddr)
		http.Error(w, fmt.Sprintf("Session %s not found or has been closed", sessionID), http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageSize))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	if err := session.HandleInbound(r.Context(), body); err != nil {
		var parseErr *ParseError
		switch {
		case errors.As(err, &parseErr):
			http.Error(w, parseErr.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrTransportClosed):
			// Dead stream: tear the session down rather than retry
			s.teardown(session, "transport closed")
			http.Error(w, "Session transport closed", http.StatusGone)
		default:
			logging.Error("Failed to handle message", "session_id", sessionID, "error", err.Error())
			http.Error(w, "Error processing message", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte("Accepted"))
}

// teardown removes a session from the registry and closes it
func (s *Server) teardown(session *Session, reason string) {
	s.registry.Remove(session.ID())
	session.Close()
	logging.Info("Session closed",
		"session_id", session.ID(),
		"reason", reason,
		"active", s.registry.Size())
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","server":"%s","version":"%s","sessions":%d}`,
		mcp.ServerName, mcp.ServerVersion, s.registry.Size())
}

// corsMiddleware mirrors the permissive CORS policy of the dashboard
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
