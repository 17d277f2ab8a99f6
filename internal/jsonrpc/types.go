// ABOUTME: JSON-RPC 2.0 error codes, error values and the extracted request view
// ABOUTME: All wire values are jsonvalue trees, never encoding/json structs

package jsonrpc

import (
	"fmt"

	"github.com/harper/rpcline/internal/jsonvalue"
)

// Version is the only accepted value of the "jsonrpc" member.
const Version = "2.0"

// Standard JSON-RPC error codes.
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
	ServerError    = -32000
)

var messages = map[int]string{
	ParseError:     "Parse error",
	InvalidRequest: "Invalid Request",
	MethodNotFound: "Method not found",
	InvalidParams:  "Invalid method parameter",
	InternalError:  "Internal error",
	ServerError:    "Server error",
}

// Message returns the fixed message for a code.
func Message(code int) string {
	if m, ok := messages[code]; ok {
		return m
	}
	return messages[ServerError]
}

// Error is the "error" member of a response. Detail is never sent on the wire;
// it feeds logs and, when enabled, the Data member.
type Error struct {
	Code    int
	Message string
	Data    jsonvalue.Value
	Detail  string
}

func NewError(code int, detail string) *Error {
	return &Error{Code: code, Message: Message(code), Detail: detail}
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("jsonrpc %d %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("jsonrpc %d %s", e.Code, e.Message)
}

// Request is the validated view of one request object.
// ID and Params are nil when the member is absent.
type Request struct {
	ID     jsonvalue.Value
	Method string
	Params jsonvalue.Value
}

// IsNotification is true when the id is absent or null; no response is sent.
func (r Request) IsNotification() bool {
	if r.ID == nil {
		return true
	}
	_, isNull := r.ID.(jsonvalue.Null)
	return isNull
}
