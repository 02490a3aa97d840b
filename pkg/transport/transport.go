package transport

import (
	"github.com/richard-senior/footstats/pkg/protocol"
)

// Transport defines the interface for communication methods
type Transport interface {
	ReadRequest() (*protocol.JsonRpcRequest, error)
	WriteResponse(*protocol.JsonRpcResponse) error
}

// ParseError reports a message that arrived intact but is not a valid
// JSON-RPC request. The stream can still be read after one
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "invalid request: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
