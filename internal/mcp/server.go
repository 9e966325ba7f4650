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
	"encoding/json"
)

const (
	ProtocolVersion = "2024-11-05"
	ServerName      = "evdash-mcp-relay"
	ServerVersion   = "0.2.0"
)

// ToolProvider is an interface for listing and executing tools
type ToolProvider interface {
	List() []Tool
	Execute(ctx context.Context, name string, args map[string]interface{}) (ToolResponse, error)
}

// ResourceProvider is an interface for listing and reading resources.
// Listing takes a context and may fail because resources are generated
// from live catalog lookups rather than a static registry.
type ResourceProvider interface {
	List(ctx context.Context) ([]Resource, error)
	Read(ctx context.Context, uri string) (ResourceContent, error)
}

// PromptProvider is an interface for listing and executing prompts
type PromptProvider interface {
	List() []Prompt
	Execute(name string, args map[string]string) (PromptResult, error)
}

// Server handles MCP protocol dispatch. It is transport-agnostic:
// callers hand it decoded requests and forward the returned responses.
type Server struct {
	tools     ToolProvider
	resources ResourceProvider
	prompts   PromptProvider
}

// NewServer creates a new MCP server
func NewServer(tools ToolProvider) *Server {
	return &Server{
		tools: tools,
	}
}

// SetResourceProvider sets the resource provider for the server
func (s *Server) SetResourceProvider(resources ResourceProvider) {
	s.resources = resources
}

// SetPromptProvider sets the prompt provider for the server
func (s *Server) SetPromptProvider(prompts PromptProvider) {
	s.prompts = prompts
}

// HandleRequest dispatches a single JSON-RPC request and returns the
// response. Notifications (requests without an ID) yield an empty
// response that callers should not transmit.
func (s *Server) HandleRequest(ctx context.Context, req JSONRPCRequest) JSONRPCResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client notification - no response needed
		return JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  json.RawMessage(`{}`),
		}
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolCall(ctx, req)
	case "resources/list":
		return s.handleResourcesList(ctx, req)
	case "resources/read":
		return s.handleResourceRead(ctx, req)
	case "prompts/list":
		return s.handlePromptsList(req)
	case "prompts/get":
		return s.handlePromptsGet(req)
	default:
		return NewErrorResponse(req.ID, MethodNotFoundCode, "Method not found", nil)
	}
}

func (s *Server) handleInitialize(req JSONRPCRequest) JSONRPCResponse {
	var params InitializeParams
	if err := decodeParams(req.Params, &params); err != nil {
		return NewErrorResponse(req.ID, InvalidParamsCode, "Invalid params", err.Error())
	}

	// Accept the client's protocol version for compatibility
	protocolVersion := params.ProtocolVersion
	if protocolVersion == "" {
		protocolVersion = ProtocolVersion
	}

	capabilities := map[string]interface{}{
		"tools": map[string]interface{}{},
	}
	if s.resources != nil {
		capabilities["resources"] = map[string]interface{}{}
	}
	if s.prompts != nil {
		capabilities["prompts"] = map[string]interface{}{}
	}

	result := InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities:    capabilities,
		ServerInfo: Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
	}

	return NewResultResponse(req.ID, result)
}

func (s *Server) handleToolsList(req JSONRPCRequest) JSONRPCResponse {
	result := ToolsListResult{Tools: s.tools.List()}
	return NewResultResponse(req.ID, result)
}

func (s *Server) handleToolCall(ctx context.Context, req JSONRPCRequest) JSONRPCResponse {
	var params ToolCallParams
	if err := decodeParams(req.Params, &params); err != nil {
		return NewErrorResponse(req.ID, InvalidParamsCode, "Invalid params", err.Error())
	}

	response, err := s.tools.Execute(ctx, params.Name, params.Arguments)
	if err != nil {
		return NewErrorResponse(req.ID, InternalErrorCode, "Tool execution error", err.Error())
	}

	return NewResultResponse(req.ID, response)
}

func (s *Server) handleResourcesList(ctx context.Context, req JSONRPCRequest) JSONRPCResponse {
	if s.resources == nil {
		return NewErrorResponse(req.ID, MethodNotFoundCode, "Resources not supported", nil)
	}

	resources, err := s.resources.List(ctx)
	if err != nil {
		return NewErrorResponse(req.ID, InternalErrorCode, "Failed to list resources", err.Error())
	}

	result := ResourcesListResult{Resources: resources}
	return NewResultResponse(req.ID, result)
}

func (s *Server) handleResourceRead(ctx context.Context, req JSONRPCRequest) JSONRPCResponse {
	if s.resources == nil {
		return NewErrorResponse(req.ID, MethodNotFoundCode, "Resources not supported", nil)
	}

	var params ResourceReadParams
	if err := decodeParams(req.Params, &params); err != nil {
		return NewErrorResponse(req.ID, InvalidParamsCode, "Invalid params", err.Error())
	}

	content, err := s.resources.Read(ctx, params.URI)
	if err != nil {
		return NewErrorResponse(req.ID, InternalErrorCode, "Resource read error", err.Error())
	}

	return NewResultResponse(req.ID, content)
}

func (s *Server) handlePromptsList(req JSONRPCRequest) JSONRPCResponse {
	if s.prompts == nil {
		return NewErrorResponse(req.ID, MethodNotFoundCode, "Prompts not supported", nil)
	}

	result := PromptsListResult{Prompts: s.prompts.List()}
	return NewResultResponse(req.ID, result)
}

func (s *Server) handlePromptsGet(req JSONRPCRequest) JSONRPCResponse {
	if s.prompts == nil {
		return NewErrorResponse(req.ID, MethodNotFoundCode, "Prompts not supported", nil)
	}

	var params PromptGetParams
	if err := decodeParams(req.Params, &params); err != nil {
		return NewErrorResponse(req.ID, InvalidParamsCode, "Invalid params", err.Error())
	}

	result, err := s.prompts.Execute(params.Name, params.Arguments)
	if err != nil {
		return NewErrorResponse(req.ID, InternalErrorCode, "Prompt execution error", err.Error())
	}

	return NewResultResponse(req.ID, result)
}

// decodeParams re-marshals loosely-typed params into a concrete struct
func decodeParams(params interface{}, dst interface{}) error {
	paramsBytes, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(paramsBytes, dst)
}
