package mcp

import (
	"context"
	"encoding/json"

	"tourgate/internal/logging"
	"tourgate/internal/tools"
)

// ProtocolVersion is the MCP revision this server speaks.
const ProtocolVersion = "2025-03-26"

// ServerName identifies the gateway in initialize results.
const ServerName = "tourgate"

// Server handles MCP requests for one session, bound to the shared tool
// registry and executor. It holds no tool state of its own: every session
// exposes exactly the same catalog as the chat transport.
type Server struct {
	executor *tools.Executor
	version  string
	logger   logging.Logger
}

// NewServer binds a protocol server to the shared executor.
func NewServer(executor *tools.Executor, version string) *Server {
	return &Server{
		executor: executor,
		version:  version,
		logger:   logging.NewComponentLogger("MCPServer"),
	}
}

// HandleMessage processes one raw JSON-RPC message and returns the response,
// or nil for notifications.
func (s *Server) HandleMessage(ctx context.Context, body []byte) *Response {
	req, rpcErr := UnmarshalRequest(body)
	if rpcErr != nil {
		return NewErrorResponse(nil, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	}
	return s.HandleRequest(ctx, req)
}

// HandleRequest dispatches one parsed request.
func (s *Server) HandleRequest(ctx context.Context, req *Request) *Response {
	if req.IsNotification() {
		s.logger.Debug("Notification: %s", req.Method)
		return nil
	}

	s.logger.Debug("Request %v: %s", req.ID, req.Method)

	switch req.Method {
	case "initialize":
		return NewResponse(req.ID, s.initializeResult())
	case "ping":
		return NewResponse(req.ID, map[string]any{})
	case "tools/list":
		return NewResponse(req.ID, s.listTools())
	case "tools/call":
		return s.callTool(ctx, req)
	default:
		return NewErrorResponse(req.ID, MethodNotFound, "Method not found: "+req.Method, nil)
	}
}

// Close releases the server. Sessions hold no external resources today; the
// hook exists so teardown stays uniform if they ever do.
func (s *Server) Close() {
	s.logger.Debug("Server closed")
}

func (s *Server) initializeResult() map[string]any {
	return map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    ServerName,
			"version": s.version,
		},
	}
}

func (s *Server) listTools() map[string]any {
	defs := s.executor.Registry().List()
	listed := make([]MCPTool, 0, len(defs))
	for _, def := range defs {
		listed = append(listed, toMCPTool(def))
	}
	return map[string]any{"tools": listed}
}

// callTool executes a tool and wraps the uniform result envelope as MCP text
// content. Execution failures are data, not protocol errors: the envelope
// reports ok:false and isError is set, but the JSON-RPC call itself succeeds.
func (s *Server) callTool(ctx context.Context, req *Request) *Response {
	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return NewErrorResponse(req.ID, InvalidParams, "Invalid tools/call params", err.Error())
	}
	if params.Name == "" {
		return NewErrorResponse(req.ID, InvalidParams, "Missing tool name", nil)
	}

	result := s.executor.Execute(ctx, tools.Call{
		ID:        idAsString(req.ID),
		Name:      params.Name,
		Arguments: params.Arguments,
	})

	encoded, err := json.Marshal(result)
	if err != nil {
		return NewErrorResponse(req.ID, InternalError, "Failed to serialize tool result", err.Error())
	}

	return NewResponse(req.ID, map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": string(encoded)},
		},
		"isError": !result.OK,
	})
}

func idAsString(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return json.Number(jsonNumberString(v)).String()
	default:
		return ""
	}
}

func jsonNumberString(v float64) string {
	encoded, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(encoded)
}
