// ABOUTME: Envelope validation for a single JSON-RPC request object
// ABOUTME: Decides between error, notification and dispatchable request

package jsonrpc

import (
	"fmt"

	"github.com/harper/rpcline/internal/jsonvalue"
)

// Validate checks the jsonrpc version, id and method members of obj, in that
// order. On error the returned Request carries the id the error response must
// use: null for envelope and id problems, the request id for a bad method.
// A notification is returned without checking the method.
func Validate(obj jsonvalue.Object) (Request, *Error) {
	invalid := Request{ID: jsonvalue.Null{}}

	version, ok := obj.Get("jsonrpc")
	if !ok {
		return invalid, NewError(InvalidRequest, "missing jsonrpc member")
	}
	if s, isString := version.(jsonvalue.String); !isString || s != Version {
		return invalid, NewError(InvalidRequest, fmt.Sprintf("jsonrpc must be %q, got %s", Version, jsonvalue.Stringify(version)))
	}

	var req Request
	if id, ok := obj.Get("id"); ok {
		switch id.(type) {
		case jsonvalue.Null, jsonvalue.Number, jsonvalue.String:
			req.ID = id
		case jsonvalue.Bool, jsonvalue.Array, jsonvalue.Object:
			return invalid, NewError(InvalidRequest, "id must be a number, string or null, got "+jsonvalue.TypeName(id))
		}
	}
	if params, ok := obj.Get("params"); ok {
		req.Params = params
	}

	method, hasMethod := obj.Get("method")
	name, isString := method.(jsonvalue.String)
	if hasMethod && isString {
		req.Method = string(name)
	}

	if req.IsNotification() {
		return req, nil
	}

	if !hasMethod {
		return req, NewError(MethodNotFound, "missing method member")
	}
	if !isString {
		return req, NewError(MethodNotFound, "method must be a string, got "+jsonvalue.TypeName(method))
	}
	return req, nil
}
