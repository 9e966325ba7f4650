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
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"evdash-mcp/internal/config"
	"evdash-mcp/internal/mcp"
	"evdash-mcp/internal/tools"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	cfg := config.DefaultConfig()
	server := NewServer(cfg, mcp.NewServer(tools.NewRegistry()))

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return server, ts
}

// openStream connects to the SSE endpoint and returns the announced
// message path together with a reader positioned after the handshake
func openStream(t *testing.T, ts *httptest.Server, cfg *config.Config) (*http.Response, *bufio.Reader, string) {
	t.Helper()

	resp, err := http.Get(ts.URL + cfg.Server.SSEPath)
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	event, data := readFrame(t, reader)
	if event != "endpoint" {
		t.Fatalf("expected endpoint event first, got %q", event)
	}
	if !strings.HasPrefix(data, cfg.Server.MessagePathPrefix+"/") {
		t.Fatalf("unexpected message path %q", data)
	}

	return resp, reader, data
}

// readFrame reads one SSE frame, skipping comment lines
func readFrame(t *testing.T, reader *bufio.Reader) (string, string) {
	t.Helper()

	var event, data string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("stream read failed: %v", err)
		}
		line = strings.TrimRight(line, "\n")

		switch {
		case line == "":
			if event != "" || data != "" {
				return event, data
			}
		case strings.HasPrefix(line, ":"):
			// comment frame
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestSSEHandshakeRegistersSession(t *testing.T) {
	server, ts := newTestServer(t)

	_, _, messagePath := openStream(t, ts, server.cfg)

	sessionID := strings.TrimPrefix(messagePath, server.cfg.Server.MessagePathPrefix+"/")
	if _, ok := server.Registry().Lookup(sessionID); !ok {
		t.Fatalf("session %s not registered", sessionID)
	}
}

func TestMessageForUnknownSession(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/messages/does-not-exist", "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	server, ts := newTestServer(t)

	_, reader, messagePath := openStream(t, ts, server.cfg)

	resp, err := http.Post(ts.URL+messagePath, "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","id":42,"method":"tools/list"}`))
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	event, data := readFrame(t, reader)
	if event != "message" {
		t.Fatalf("expected message event, got %q", event)
	}

	var rpcResp mcp.JSONRPCResponse
	if err := json.Unmarshal([]byte(data), &rpcResp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if rpcResp.Error != nil {
		t.Fatalf("unexpected RPC error: %+v", rpcResp.Error)
	}
	if rpcResp.ID != float64(42) {
		t.Errorf("expected id 42, got %v", rpcResp.ID)
	}
}

func TestMessageDuringHandshakeWindow(t *testing.T) {
	server, ts := newTestServer(t)

	// Register a session that has not completed its handshake yet; a POST
	// racing into that window must be rejected without closing the session
	session, err := NewSession("pending", "/messages/pending", httptest.NewRecorder(), server.mcpServer)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if err := server.registry.Register("pending", session); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	resp, err := http.Post(ts.URL+"/messages/pending", "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for a connecting session, got %d", resp.StatusCode)
	}
	if session.State() != StateConnecting {
		t.Errorf("session must stay in connecting, got %s", session.State())
	}
	if _, ok := server.registry.Lookup("pending"); !ok {
		t.Error("session must remain registered through the handshake window")
	}
}

func TestMessageMalformedBody(t *testing.T) {
	server, ts := newTestServer(t)

	_, _, messagePath := openStream(t, ts, server.cfg)

	resp, err := http.Post(ts.URL+messagePath, "application/json", strings.NewReader("{broken"))
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSessionIsolation(t *testing.T) {
	server, ts := newTestServer(t)

	_, readerA, pathA := openStream(t, ts, server.cfg)
	_, _, pathB := openStream(t, ts, server.cfg)

	if pathA == pathB {
		t.Fatal("expected distinct message paths per stream")
	}

	// A message addressed to A must come back on A's stream
	resp, err := http.Post(ts.URL+pathA, "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	resp.Body.Close()

	event, _ := readFrame(t, readerA)
	if event != "message" {
		t.Fatalf("expected message on stream A, got %q", event)
	}
}

func TestDisconnectRemovesSession(t *testing.T) {
	server, ts := newTestServer(t)

	stream, _, messagePath := openStream(t, ts, server.cfg)
	sessionID := strings.TrimPrefix(messagePath, server.cfg.Server.MessagePathPrefix+"/")

	stream.Body.Close()

	// The handler observes the disconnect asynchronously
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := server.Registry().Lookup(sessionID); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("session still registered after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Post(ts.URL+messagePath, "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after disconnect, got %d", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var health struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("health response is not valid JSON: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("expected status ok, got %q", health.Status)
	}
}

func TestCORSPreflight(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/health", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected permissive origin, got %q", origin)
	}
}
