// Package server speaks the Model Context Protocol over a JSON-RPC
// transport, answering tools/list and tools/call from the registered tools.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/richard-senior/footstats/internal/logger"
	"github.com/richard-senior/footstats/internal/metrics"
	"github.com/richard-senior/footstats/pkg/protocol"
	"github.com/richard-senior/footstats/pkg/tools"
	"github.com/richard-senior/footstats/pkg/transport"
)

// Name is reported to clients in serverInfo
const Name = "footstats"

// DefaultProtocolVersion is used when the client does not ask for one
const DefaultProtocolVersion = "2024-11-05"

// Some clients prefix tool names with the server's alias
const toolPrefix = "mcp___"

// HandlerFunc handles a JSON-RPC method. A nil result with a nil error
// means no response is sent
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Server represents an MCP server
type Server struct {
	transport transport.Transport
	version   string
	metrics   *metrics.Metrics

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	tools    []protocol.Tool
	toolFns  map[string]tools.Handler
}

// New creates a server reading from t with the built-in methods registered
func New(t transport.Transport, version string) *Server {
	s := &Server{
		transport: t,
		version:   version,
		handlers:  make(map[string]HandlerFunc),
		toolFns:   make(map[string]tools.Handler),
	}
	s.handlers[string(protocol.MethodInitialize)] = s.handleInitialize
	s.handlers[string(protocol.MethodInitialized)] = s.handleInitialized
	s.handlers[string(protocol.MethodToolsList)] = s.handleToolsList
	s.handlers[string(protocol.MethodToolsCall)] = s.handleToolsCall
	s.handlers[string(protocol.MethodInvokeTool)] = s.handleInvokeTool
	s.handlers[string(protocol.MethodPing)] = s.handlePing
	s.handlers[string(protocol.MethodShutdown)] = s.handlePing
	return s
}

// SetMetrics records request latency on m
func (s *Server) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// RegisterTool registers a tool with the server
func (s *Server) RegisterTool(tool protocol.Tool, handler tools.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.toolFns[tool.Name]; !exists {
		s.tools = append(s.tools, tool)
	}
	s.toolFns[tool.Name] = handler
	logger.Info("Registered tool:", tool.Name)
}

// RegisterTools registers every tool in regs
func (s *Server) RegisterTools(regs []tools.Registration) {
	for _, r := range regs {
		s.RegisterTool(r.Tool, r.Handler)
	}
}

// Tools returns the list of registered tools
func (s *Server) Tools() []protocol.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]protocol.Tool(nil), s.tools...)
}

func (s *Server) tool(name string) tools.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if h := s.toolFns[name]; h != nil {
		return h
	}
	return s.toolFns[strings.TrimPrefix(name, toolPrefix)]
}

// Start processes requests until the client disconnects, ctx ends or the
// process is interrupted
func (s *Server) Start(ctx context.Context) error {
	logger.Info("Starting MCP server")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.ProcessRequests(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("MCP server stopping:", context.Cause(ctx))
		return nil
	}
}

// ProcessRequests reads and answers requests until the stream ends
func (s *Server) ProcessRequests(ctx context.Context) error {
	for {
		req, err := s.transport.ReadRequest()
		var parseErr *transport.ParseError
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.As(err, &parseErr):
			resp := protocol.NewJsonRpcErrorResponse(protocol.ErrParse, parseErr.Error(), nil, nil)
			if err := s.transport.WriteResponse(resp); err != nil {
				return err
			}
			continue
		case err != nil:
			return err
		}

		// a nil response means none is required
		resp := s.HandleRequest(ctx, req)
		if resp == nil {
			continue
		}
		if err := s.transport.WriteResponse(resp); err != nil {
			return err
		}
	}
}

// HandleRequest processes a request and returns its response, or nil for
// notifications
func (s *Server) HandleRequest(ctx context.Context, req *protocol.JsonRpcRequest) *protocol.JsonRpcResponse {
	start := time.Now()
	resp := s.handleRequest(ctx, req)
	code, method := 0, req.Method
	if resp != nil && resp.Error != nil {
		code = resp.Error.Code
		if code == protocol.ErrMethodNotFound {
			method = "unknown"
		}
	}
	s.metrics.RecordRequest("mcp", method, code, time.Since(start))
	return resp
}

func (s *Server) handleRequest(ctx context.Context, req *protocol.JsonRpcRequest) *protocol.JsonRpcResponse {
	logger.Info(">> ", req.Method)
	logger.Debug("Full request:", string(req.Params))

	if strings.HasPrefix(req.Method, "notifications/") {
		logger.Info("Received notification:", req.Method)
		return nil
	}

	s.mu.RLock()
	handler := s.handlers[req.Method]
	s.mu.RUnlock()
	if handler == nil {
		return protocol.NewJsonRpcErrorResponse(protocol.ErrMethodNotFound,
			fmt.Sprintf("Method not found: %s", req.Method), nil, req.ID)
	}

	result, err := handler(ctx, req.Params)
	if req.IsNotification() || (err == nil && result == nil) {
		return nil
	}
	if err != nil {
		var rpcErr *protocol.JsonRpcError
		if errors.As(err, &rpcErr) {
			return protocol.NewJsonRpcErrorResponse(rpcErr.Code, rpcErr.Message, nil, req.ID)
		}
		return protocol.NewJsonRpcErrorResponse(protocol.ErrToolExecutionFailed, err.Error(), nil, req.ID)
	}

	resp, err := protocol.NewJsonRpcResponse(result, req.ID)
	if err != nil {
		return protocol.NewJsonRpcErrorResponse(protocol.ErrInternal,
			"Failed to marshal result: "+err.Error(), nil, req.ID)
	}
	logger.Debug("Full response:", string(resp.Result))
	return resp
}

func invalidParams(format string, v ...any) error {
	return &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: fmt.Sprintf(format, v...)}
}

func (s *Server) handleInitialize(_ context.Context, params json.RawMessage) (any, error) {
	var req protocol.InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, invalidParams("invalid initialize parameters: %v", err)
		}
	}
	version := req.ProtocolVersion
	if version == "" {
		version = DefaultProtocolVersion
	}
	logger.Info("Initialize from", req.ClientInfo.Name, req.ClientInfo.Version, "protocol", version)

	capabilities := map[string]any{}
	if len(s.Tools()) > 0 {
		capabilities["tools"] = map[string]any{"listChanged": false}
	}
	return protocol.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    capabilities,
		ServerInfo:      protocol.Implementation{Name: Name, Version: s.version},
	}, nil
}

// handleInitialized acknowledges the client and needs no response
func (s *Server) handleInitialized(context.Context, json.RawMessage) (any, error) {
	logger.Info("Handling initialized notification")
	return nil, nil
}

func (s *Server) handlePing(context.Context, json.RawMessage) (any, error) {
	return struct{}{}, nil
}

func (s *Server) handleToolsList(context.Context, json.RawMessage) (any, error) {
	return protocol.ToolsResponse{Tools: s.Tools()}, nil
}

// handleToolsCall runs a tool. Failures inside the tool are reported in the
// result so the client can show them; an unknown tool is a protocol error
func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (any, error) {
	var call protocol.ToolCallParams
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, invalidParams("invalid tools/call parameters: %v", err)
	}
	logger.Info("Tool call requested for:", call.Name)

	handler := s.tool(call.Name)
	if handler == nil {
		return nil, invalidParams("tool not found: %s", call.Name)
	}
	if call.Arguments == nil {
		call.Arguments = map[string]any{}
	}

	result, err := handler(ctx, call.Arguments)
	if err != nil {
		logger.Warn("Tool failed", call.Name, err)
		return protocol.TextResult(err.Error(), true), nil
	}

	text, err := json.MarshalIndent(result, "", " ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return protocol.TextResult(string(text), false), nil
}

// handleInvokeTool serves the older invoke_tool method, which returns the
// tool's result unwrapped
func (s *Server) handleInvokeTool(ctx context.Context, params json.RawMessage) (any, error) {
	var call protocol.InvokeToolParams
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, invalidParams("Invalid parameters for invoke_tool: %v", err)
	}
	if call.Name == "" {
		return nil, invalidParams("Missing tool name in invoke_tool parameters")
	}

	handler := s.tool(call.Name)
	if handler == nil {
		return nil, invalidParams("tool not found: %s", call.Name)
	}
	if call.Parameters == nil {
		call.Parameters = map[string]any{}
	}
	return handler(ctx, call.Parameters)
}
