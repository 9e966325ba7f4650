/*-------------------------------------------------------------------------
 *
 * EV Dashboard MCP Relay
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package mcp

import (
	"context"
	"errors"
	"testing"
)

type fakeTools struct {
	tools    []Tool
	lastName string
	lastArgs map[string]interface{}
	response ToolResponse
	err      error
}

func (f *fakeTools) List() []Tool {
	return f.tools
}

func (f *fakeTools) Execute(_ context.Context, name string, args map[string]interface{}) (ToolResponse, error) {
	f.lastName = name
	f.lastArgs = args
	return f.response, f.err
}

type fakeResources struct {
	resources []Resource
	content   ResourceContent
	listErr   error
	readErr   error
	lastURI   string
}

func (f *fakeResources) List(_ context.Context) ([]Resource, error) {
	return f.resources, f.listErr
}

func (f *fakeResources) Read(_ context.Context, uri string) (ResourceContent, error) {
	f.lastURI = uri
	return f.content, f.readErr
}

type fakePrompts struct {
	prompts []Prompt
	result  PromptResult
	err     error
}

func (f *fakePrompts) List() []Prompt {
	return f.prompts
}

func (f *fakePrompts) Execute(_ string, _ map[string]string) (PromptResult, error) {
	return f.result, f.err
}

func request(id interface{}, method string, params interface{}) JSONRPCRequest {
	return JSONRPCRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
}

func TestHandleInitialize(t *testing.T) {
	server := NewServer(&fakeTools{})
	server.SetResourceProvider(&fakeResources{})

	resp := server.HandleRequest(context.Background(), request(1, "initialize", InitializeParams{
		ProtocolVersion: "2024-11-05",
		ClientInfo:      ClientInfo{Name: "test-client", Version: "0.0.1"},
	}))

	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	result, ok := resp.Result.(InitializeResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if result.ServerInfo.Name != ServerName {
		t.Errorf("expected server name %q, got %q", ServerName, result.ServerInfo.Name)
	}
	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("expected echoed protocol version, got %q", result.ProtocolVersion)
	}
	if _, ok := result.Capabilities["resources"]; !ok {
		t.Error("expected resources capability to be advertised")
	}
	if _, ok := result.Capabilities["prompts"]; ok {
		t.Error("prompts capability advertised without a provider")
	}
}

func TestHandleUnknownMethod(t *testing.T) {
	server := NewServer(&fakeTools{})

	resp := server.HandleRequest(context.Background(), request(7, "tools/delete", nil))
	if resp.Error == nil {
		t.Fatal("expected an error response")
	}
	if resp.Error.Code != MethodNotFoundCode {
		t.Errorf("expected code %d, got %d", MethodNotFoundCode, resp.Error.Code)
	}
	if resp.ID != 7 {
		t.Errorf("expected id 7, got %v", resp.ID)
	}
}

func TestHandleToolsList(t *testing.T) {
	tools := &fakeTools{tools: []Tool{{Name: "query", Description: "Run SQL"}}}
	server := NewServer(tools)

	resp := server.HandleRequest(context.Background(), request(2, "tools/list", nil))
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	result, ok := resp.Result.(ToolsListResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if len(result.Tools) != 1 || result.Tools[0].Name != "query" {
		t.Errorf("unexpected tool list: %+v", result.Tools)
	}
}

func TestHandleToolCall(t *testing.T) {
	tools := &fakeTools{
		response: ToolResponse{Content: []ContentItem{{Type: "text", Text: "3 rows"}}},
	}
	server := NewServer(tools)

	resp := server.HandleRequest(context.Background(), request(3, "tools/call", ToolCallParams{
		Name:      "query",
		Arguments: map[string]interface{}{"sql": "SELECT 1"},
	}))

	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if tools.lastName != "query" {
		t.Errorf("expected tool name query, got %q", tools.lastName)
	}
	if tools.lastArgs["sql"] != "SELECT 1" {
		t.Errorf("arguments not forwarded: %v", tools.lastArgs)
	}
}

func TestHandleToolCallExecutionFailure(t *testing.T) {
	server := NewServer(&fakeTools{err: errors.New("boom")})

	resp := server.HandleRequest(context.Background(), request(4, "tools/call", ToolCallParams{Name: "query"}))
	if resp.Error == nil {
		t.Fatal("expected an error response")
	}
	if resp.Error.Code != InternalErrorCode {
		t.Errorf("expected code %d, got %d", InternalErrorCode, resp.Error.Code)
	}
}

func TestHandleResourcesWithoutProvider(t *testing.T) {
	server := NewServer(&fakeTools{})

	for _, method := range []string{"resources/list", "resources/read"} {
		resp := server.HandleRequest(context.Background(), request(5, method, nil))
		if resp.Error == nil || resp.Error.Code != MethodNotFoundCode {
			t.Errorf("%s: expected method-not-found, got %+v", method, resp.Error)
		}
	}
}

func TestHandleResourcesListFailure(t *testing.T) {
	server := NewServer(&fakeTools{})
	server.SetResourceProvider(&fakeResources{listErr: errors.New("connection refused")})

	resp := server.HandleRequest(context.Background(), request(6, "resources/list", nil))
	if resp.Error == nil || resp.Error.Code != InternalErrorCode {
		t.Fatalf("expected internal error, got %+v", resp.Error)
	}
}

func TestHandleResourceRead(t *testing.T) {
	resources := &fakeResources{
		content: ResourceContent{URI: "pg://vehicles/schema", MimeType: "application/json"},
	}
	server := NewServer(&fakeTools{})
	server.SetResourceProvider(resources)

	resp := server.HandleRequest(context.Background(),
		request(8, "resources/read", ResourceReadParams{URI: "pg://vehicles/schema"}))
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if resources.lastURI != "pg://vehicles/schema" {
		t.Errorf("URI not forwarded, got %q", resources.lastURI)
	}
}

func TestHandlePromptsGet(t *testing.T) {
	server := NewServer(&fakeTools{})
	server.SetPromptProvider(&fakePrompts{
		result: PromptResult{Messages: []PromptMessage{{Role: "system"}}},
	})

	resp := server.HandleRequest(context.Background(),
		request(9, "prompts/get", PromptGetParams{Name: "ev-assistant"}))
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	result, ok := resp.Result.(PromptResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if len(result.Messages) != 1 {
		t.Errorf("expected one message, got %d", len(result.Messages))
	}
}

func TestHandleInitializedNotification(t *testing.T) {
	server := NewServer(&fakeTools{})

	resp := server.HandleRequest(context.Background(),
		JSONRPCRequest{JSONRPC: "2.0", Method: "notifications/initialized"})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if resp.ID != nil {
		t.Errorf("expected nil id, got %v", resp.ID)
	}
}
