// Package protocol holds the JSON-RPC 2.0 envelopes and the MCP payloads
// carried inside them.
package protocol

import (
	"encoding/json"
	"fmt"
)

// JsonRpcVersion is the only version accepted on the wire
const JsonRpcVersion = "2.0"

// Error codes. ErrToolExecutionFailed sits in the implementation-defined
// server range
const (
	ErrParse               = -32700
	ErrInvalidRequest      = -32600
	ErrMethodNotFound      = -32601
	ErrInvalidParams       = -32602
	ErrInternal            = -32603
	ErrToolExecutionFailed = -32000
)

// JsonRpcRequest is a call or, when ID is nil, a notification
type JsonRpcRequest struct {
	JsonRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// IsNotification reports whether the request expects no response
func (r *JsonRpcRequest) IsNotification() bool {
	return r.ID == nil
}

// JsonRpcResponse carries exactly one of Result or Error. ID is null when
// the request id could not be read
type JsonRpcResponse struct {
	JsonRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JsonRpcError   `json:"error,omitempty"`
	ID      any             `json:"id"`
}

type JsonRpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *JsonRpcError) Error() string {
	return fmt.Sprintf("jsonrpc error: code=%d message=%s", e.Code, e.Message)
}

// NewJsonRpcRequest marshals params into a request. A nil id makes a
// notification
func NewJsonRpcRequest(method string, params any, id any) (*JsonRpcRequest, error) {
	raw, err := marshalOptional(params)
	if err != nil {
		return nil, fmt.Errorf("marshal %s params: %w", method, err)
	}
	return &JsonRpcRequest{JsonRPC: JsonRpcVersion, Method: method, Params: raw, ID: id}, nil
}

func NewJsonRpcNotification(method string, params any) (*JsonRpcRequest, error) {
	return NewJsonRpcRequest(method, params, nil)
}

func NewJsonRpcResponse(result any, id any) (*JsonRpcResponse, error) {
	raw, err := marshalOptional(result)
	if err != nil {
		return nil, err
	}
	return &JsonRpcResponse{JsonRPC: JsonRpcVersion, Result: raw, ID: id}, nil
}

func NewJsonRpcErrorResponse(code int, message string, data any, id any) *JsonRpcResponse {
	return &JsonRpcResponse{
		JsonRPC: JsonRpcVersion,
		Error:   &JsonRpcError{Code: code, Message: message, Data: data},
		ID:      id,
	}
}

// ParseJsonRpcRequest decodes data and rejects anything not claiming 2.0
func ParseJsonRpcRequest(data []byte) (*JsonRpcRequest, error) {
	var req JsonRpcRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	if err := checkVersion(req.JsonRPC); err != nil {
		return nil, err
	}
	return &req, nil
}

func ParseJsonRpcResponse(data []byte) (*JsonRpcResponse, error) {
	var resp JsonRpcResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	if err := checkVersion(resp.JsonRPC); err != nil {
		return nil, err
	}
	return &resp, nil
}

func checkVersion(v string) error {
	if v != JsonRpcVersion {
		return fmt.Errorf("invalid JSON-RPC version: %q", v)
	}
	return nil
}

func marshalOptional(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
