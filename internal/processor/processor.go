// Package processor answers a single request without holding a session open.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/richard-senior/footstats/internal/logger"
	"github.com/richard-senior/footstats/pkg/protocol"
	"github.com/richard-senior/footstats/pkg/server"
)

// Request is the shorthand form: a tool name followed by key=value
// arguments, e.g. "fixture_odds fixture_id=fd-101"
type Request struct {
	Query     string `json:"query"`
	RequestID string `json:"requestId"`
}

// ParseQuery splits a shorthand query into a tool name and its arguments.
// Values are left as strings, tool handlers convert them
func ParseQuery(query string) (string, map[string]any, error) {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("empty query")
	}

	args := make(map[string]any, len(fields)-1)
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			return "", nil, fmt.Errorf("argument %q is not of the form key=value", f)
		}
		args[k] = v
	}
	return fields[0], args, nil
}

// ProcessRequest answers one request through srv. input is either a
// JSON-RPC request or a shorthand Request. A notification yields no output
func ProcessRequest(ctx context.Context, srv *server.Server, input []byte) ([]byte, error) {
	input = bytes.TrimSpace(input)

	req, err := toRPC(input)
	if err != nil {
		logger.Error("Failed to parse input", err)
		return json.MarshalIndent(protocol.NewJsonRpcErrorResponse(protocol.ErrParse, err.Error(), nil, nil), "", "  ")
	}

	logger.Info("Processing request", req.Method)
	resp := srv.HandleRequest(ctx, req)
	if resp == nil {
		return nil, nil
	}
	return json.MarshalIndent(resp, "", "  ")
}

func toRPC(input []byte) (*protocol.JsonRpcRequest, error) {
	var probe struct {
		JSONRPC string `json:"jsonrpc"`
	}
	if err := json.Unmarshal(input, &probe); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if probe.JSONRPC != "" {
		return protocol.ParseJsonRpcRequest(input)
	}

	var request Request
	if err := json.Unmarshal(input, &request); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	name, args, err := ParseQuery(request.Query)
	if err != nil {
		return nil, err
	}

	var id any = request.RequestID
	if request.RequestID == "" {
		id = 1
	}
	return protocol.NewJsonRpcRequest(string(protocol.MethodToolsCall), map[string]any{
		"name":      name,
		"arguments": args,
	}, id)
}
