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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"evdash-mcp/internal/mcp"
)

// State tracks the session lifecycle: Connecting -> Open -> Closed.
// Closed is terminal; identifiers are never reused after it.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrTransportClosed is returned when sending on a dead stream. A dead
// stream is not recoverable; callers must tear the session down.
var ErrTransportClosed = errors.New("transport closed")

// ParseError wraps a malformed inbound message
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed message: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Session bridges one long-lived SSE response stream and its paired
// inbound message path into a bidirectional channel for the MCP server.
// Stream writes are mutex-guarded because inbound POSTs arrive on their
// own goroutines while the SSE handler holds the stream open.
type Session struct {
	id          string
	messagePath string

	w       http.ResponseWriter
	flusher http.Flusher
	handler *mcp.Server

	mu    sync.Mutex // guards state and stream writes
	state State

	inboundMu sync.Mutex // serializes inbound messages per session

	closeOnce sync.Once
	done      chan struct{}
}

// NewSession creates a session in the Connecting state. The response
// writer must support flushing; plain buffered writers cannot carry an
// event stream.
func NewSession(id, messagePath string, w http.ResponseWriter, handler *mcp.Server) (*Session, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported by response writer")
	}

	return &Session{
		id:          id,
		messagePath: messagePath,
		w:           w,
		flusher:     flusher,
		handler:     handler,
		state:       StateConnecting,
		done:        make(chan struct{}),
	}, nil
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// MessagePath returns the private inbound path for this session
func (s *Session) MessagePath() string {
	return s.messagePath
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed when the session reaches the Closed state
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Open performs the handshake: it emits the endpoint event telling the
// client where to POST, follows with a keepalive frame, and transitions
// to Open. Fails if the stream died during Connecting.
func (s *Session) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnecting {
		return fmt.Errorf("cannot open session in state %s", s.state)
	}

	if err := s.writeFrame("endpoint", s.messagePath); err != nil {
		return err
	}
	if err := s.writeComment("keepalive"); err != nil {
		return err
	}

	s.state = StateOpen
	return nil
}

// SendEvent writes one framed message down the stream. Fails with
// ErrTransportClosed once the session has left the Open state or the
// underlying stream rejects the write.
func (s *Session) SendEvent(event, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen {
		return ErrTransportClosed
	}

	return s.writeFrame(event, data)
}

// SendKeepalive writes a comment frame that keeps intermediaries from
// timing out the idle stream
func (s *Session) SendKeepalive() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen {
		return ErrTransportClosed
	}

	return s.writeComment("keepalive")
}

// writeFrame writes an SSE event frame. Callers hold s.mu.
func (s *Session) writeFrame(event, data string) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportClosed, err)
	}
	s.flusher.Flush()
	return nil
}

// writeComment writes an SSE comment frame. Callers hold s.mu.
func (s *Session) writeComment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportClosed, err)
	}
	s.flusher.Flush()
	return nil
}

// HandleInbound parses one inbound protocol message, dispatches it to
// the MCP server, and pushes the response down the SSE stream. Inbound
// messages are processed in arrival order per session. A malformed body
// yields a ParseError; a dead stream yields ErrTransportClosed.
func (s *Session) HandleInbound(ctx context.Context, body []byte) error {
	s.inboundMu.Lock()
	defer s.inboundMu.Unlock()

	var req mcp.JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return &ParseError{Err: err}
	}

	response := s.handler.HandleRequest(ctx, req)

	// Notifications carry no ID and expect no reply
	if req.ID == nil && response.Error == nil {
		return nil
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	return s.SendEvent("message", string(payload))
}

// Close transitions the session to Closed and releases the done
// channel. Idempotent: disconnect, shutdown, and error paths may all
// race to call it.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		close(s.done)
	})
}
