/*-------------------------------------------------------------------------
 *
 * EV Dashboard MCP Relay - Chat Client
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"evdash-mcp/internal/mcp"
)

// endpointWait bounds how long Initialize waits for the relay to
// announce the session's message path
const endpointWait = 10 * time.Second

// SSEClient speaks MCP to the relay over one SSE stream plus the
// session's private POST path. Responses arrive on the stream and are
// correlated to requests by JSON-RPC ID.
type SSEClient struct {
	baseURL    string
	ssePath    string
	httpClient *http.Client

	mu        sync.Mutex
	requestID int
	endpoint  string
	pending   map[string]chan mcp.JSONRPCResponse

	endpointCh chan string
	stream     *http.Response
	cancel     context.CancelFunc
	closeOnce  sync.Once
	done       chan struct{}
}

// NewSSEClient creates a client for the relay at baseURL
func NewSSEClient(baseURL, ssePath string) *SSEClient {
	return &SSEClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		ssePath:    ssePath,
		httpClient: &http.Client{},
		pending:    make(map[string]chan mcp.JSONRPCResponse),
		endpointCh: make(chan string, 1),
		done:       make(chan struct{}),
	}
}

// Connect opens the event stream and starts the reader goroutine
func (c *SSEClient) Connect(ctx context.Context) error {
	streamCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.baseURL+c.ssePath, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("event stream rejected: %s", resp.Status)
	}

	c.stream = resp
	go c.readStream()

	select {
	case <-ctx.Done():
		c.Close()
		return ctx.Err()
	default:
	}

	return nil
}

// readStream parses SSE frames and routes them
func (c *SSEClient) readStream() {
	defer close(c.done)

	scanner := bufio.NewScanner(c.stream.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event != "" || data != "" {
				c.dispatch(event, data)
			}
			event, data = "", ""
		case strings.HasPrefix(line, ":"):
			// Keepalive comment frame
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if data != "" {
				data += "\n"
			}
			data += strings.TrimPrefix(line, "data: ")
		}
	}
}

func (c *SSEClient) dispatch(event, data string) {
	switch event {
	case "endpoint":
		select {
		case c.endpointCh <- data:
		default:
		}
	case "message":
		var resp mcp.JSONRPCResponse
		if err := json.Unmarshal([]byte(data), &resp); err != nil {
			return
		}
		key := fmt.Sprintf("%v", resp.ID)

		c.mu.Lock()
		ch, ok := c.pending[key]
		if ok {
			delete(c.pending, key)
		}
		c.mu.Unlock()

		if ok {
			ch <- resp
		}
	case "shutdown":
		c.Close()
	}
}

// Initialize waits for the endpoint announcement, then performs the
// MCP handshake
func (c *SSEClient) Initialize(ctx context.Context) error {
	select {
	case path := <-c.endpointCh:
		c.mu.Lock()
		c.endpoint = c.baseURL + path
		c.mu.Unlock()
	case <-time.After(endpointWait):
		return fmt.Errorf("timed out waiting for session endpoint")
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return fmt.Errorf("event stream closed during handshake")
	}

	params := mcp.InitializeParams{
		ProtocolVersion: mcp.ProtocolVersion,
		Capabilities:    map[string]interface{}{},
		ClientInfo: mcp.ClientInfo{
			Name:    "evdash-chat",
			Version: mcp.ServerVersion,
		},
	}

	var result mcp.InitializeResult
	if err := c.call(ctx, "initialize", params, &result); err != nil {
		return fmt.Errorf("initialize failed: %w", err)
	}

	// Fire-and-forget notification; the relay replies 202 only
	notification := mcp.JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  "notifications/initialized",
		Params:  map[string]interface{}{},
	}
	return c.post(ctx, notification)
}

// ListTools returns the server's tool definitions
func (c *SSEClient) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	var result mcp.ToolsListResult
	if err := c.call(ctx, "tools/list", nil, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// ListResources returns the server's resource descriptors
func (c *SSEClient) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	var result mcp.ResourcesListResult
	if err := c.call(ctx, "resources/list", nil, &result); err != nil {
		return nil, err
	}
	return result.Resources, nil
}

// ReadResource reads one resource by URI
func (c *SSEClient) ReadResource(ctx context.Context, uri string) (mcp.ResourceContent, error) {
	var result mcp.ResourceContent
	err := c.call(ctx, "resources/read", mcp.ResourceReadParams{URI: uri}, &result)
	return result, err
}

// CallTool executes a tool on the relay
func (c *SSEClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (mcp.ToolResponse, error) {
	var result mcp.ToolResponse
	err := c.call(ctx, "tools/call", mcp.ToolCallParams{Name: name, Arguments: args}, &result)
	return result, err
}

// GetPrompt fetches a prompt by name
func (c *SSEClient) GetPrompt(ctx context.Context, name string) (mcp.PromptResult, error) {
	var result mcp.PromptResult
	err := c.call(ctx, "prompts/get", mcp.PromptGetParams{Name: name}, &result)
	return result, err
}

// call sends one request and waits for its correlated response
func (c *SSEClient) call(ctx context.Context, method string, params, result interface{}) error {
	c.mu.Lock()
	if c.endpoint == "" {
		c.mu.Unlock()
		return fmt.Errorf("client not initialized")
	}
	c.requestID++
	id := c.requestID
	ch := make(chan mcp.JSONRPCResponse, 1)
	c.pending[fmt.Sprintf("%v", id)] = ch
	c.mu.Unlock()

	req := mcp.JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}

	if err := c.post(ctx, req); err != nil {
		c.mu.Lock()
		delete(c.pending, fmt.Sprintf("%v", id))
		c.mu.Unlock()
		return err
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return fmt.Errorf("%s failed: %s", method, resp.Error.Message)
		}
		raw, err := json.Marshal(resp.Result)
		if err != nil {
			return fmt.Errorf("failed to re-encode result: %w", err)
		}
		return json.Unmarshal(raw, result)
	case <-c.done:
		return fmt.Errorf("event stream closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post delivers one message to the session's private path
func (c *SSEClient) post(ctx context.Context, msg mcp.JSONRPCRequest) error {
	c.mu.Lock()
	endpoint := c.endpoint
	c.mu.Unlock()

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("message rejected: %s", resp.Status)
	}
	return nil
}

// Close tears down the stream. Idempotent.
func (c *SSEClient) Close() {
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		if c.stream != nil {
			c.stream.Body.Close()
		}
	})
}
