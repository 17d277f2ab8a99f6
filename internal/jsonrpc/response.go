// ABOUTME: Builds success and error response objects as jsonvalue trees
// ABOUTME: Member order is fixed so the serialized form is stable

package jsonrpc

import "github.com/harper/rpcline/internal/jsonvalue"

// NewResult builds {"jsonrpc":"2.0","id":<id>,"result":<result>}.
func NewResult(id jsonvalue.Value, result float64) jsonvalue.Object {
	return jsonvalue.Object{
		{Key: "jsonrpc", Value: jsonvalue.String(Version)},
		{Key: "id", Value: orNull(id)},
		{Key: "result", Value: jsonvalue.Number(result)},
	}
}

// NewErrorResponse builds {"jsonrpc":"2.0","error":{"code":..,"message":..},"id":<id>}.
// A "data" member is added to the error object only when err.Data is set.
func NewErrorResponse(id jsonvalue.Value, err *Error) jsonvalue.Object {
	errObj := jsonvalue.Object{
		{Key: "code", Value: jsonvalue.Number(err.Code)},
		{Key: "message", Value: jsonvalue.String(err.Message)},
	}
	if err.Data != nil {
		errObj = append(errObj, jsonvalue.Member{Key: "data", Value: err.Data})
	}

	return jsonvalue.Object{
		{Key: "jsonrpc", Value: jsonvalue.String(Version)},
		{Key: "error", Value: errObj},
		{Key: "id", Value: orNull(id)},
	}
}

func orNull(v jsonvalue.Value) jsonvalue.Value {
	if v == nil {
		return jsonvalue.Null{}
	}
	return v
}
