// ABOUTME: Verbose error data attached to JSON-RPC errors when error details are enabled
// ABOUTME: Explains each error code with causes and suggested fixes for the caller

package errors

import (
	"github.com/harper/rpcline/internal/jsonrpc"
	"github.com/harper/rpcline/internal/jsonvalue"
)

type ErrorData struct {
	ErrorType        string
	Explanation      string
	PossibleCauses   []string
	SuggestedActions []string
	Recoverable      bool
	Details          string
}

var catalog = map[int]ErrorData{
	jsonrpc.ParseError: {
		ErrorType:   "parse_error",
		Explanation: "The line is not a single valid JSON document.",
		PossibleCauses: []string{
			"Trailing commas in objects or arrays",
			"Incomplete JSON structure (missing closing braces or brackets)",
			"More than one JSON value on the line",
			"Invalid Unicode escape sequences",
		},
		SuggestedActions: []string{
			"Send exactly one JSON document per line",
			"Check for unmatched braces and trailing commas",
		},
		Recoverable: true,
	},
	jsonrpc.InvalidRequest: {
		ErrorType:   "invalid_request",
		Explanation: "The value is not a valid JSON-RPC 2.0 request object.",
		PossibleCauses: []string{
			"Missing or wrong 'jsonrpc' member (must be \"2.0\")",
			"The 'id' is a bool, array or object",
			"The request is not an object, or the batch is empty",
		},
		SuggestedActions: []string{
			"Send {\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"add\",\"params\":[1,2]}",
		},
		Recoverable: true,
	},
	jsonrpc.MethodNotFound: {
		ErrorType:   "method_not_found",
		Explanation: "The server has no method with this name.",
		PossibleCauses: []string{
			"The method name is misspelled",
			"The 'method' member is missing or not a string",
		},
		SuggestedActions: []string{
			"Use one of the available methods: add, subtract",
		},
		Recoverable: true,
	},
	jsonrpc.InvalidParams: {
		ErrorType:   "invalid_params",
		Explanation: "The method exists but the params do not match what it expects.",
		PossibleCauses: []string{
			"'params' is missing or not an array",
			"An element of 'params' is not a number",
			"subtract was called with other than two params",
		},
		SuggestedActions: []string{
			"add takes an array of numbers, subtract takes exactly two numbers",
		},
		Recoverable: true,
	},
}

// Lookup returns the explanation for err's code with err's detail filled in.
func Lookup(err *jsonrpc.Error) (ErrorData, bool) {
	data, ok := catalog[err.Code]
	if !ok {
		return ErrorData{}, false
	}
	data.Details = err.Detail
	return data, true
}

// Data builds the "data" member for err. It has the jsonrpc.ErrorDataFunc
// signature so it can be passed to jsonrpc.WithErrorData.
func Data(err *jsonrpc.Error) jsonvalue.Value {
	data, ok := Lookup(err)
	if !ok {
		if err.Detail == "" {
			return nil
		}
		return jsonvalue.Object{{Key: "details", Value: jsonvalue.String(err.Detail)}}
	}
	return data.Value()
}

// Value renders the data as a JSON object. Empty lists are omitted.
func (d ErrorData) Value() jsonvalue.Value {
	obj := jsonvalue.Object{
		{Key: "error_type", Value: jsonvalue.String(d.ErrorType)},
		{Key: "explanation", Value: jsonvalue.String(d.Explanation)},
	}
	if len(d.PossibleCauses) > 0 {
		obj.Set("possible_causes", stringArray(d.PossibleCauses))
	}
	if len(d.SuggestedActions) > 0 {
		obj.Set("suggested_actions", stringArray(d.SuggestedActions))
	}
	obj.Set("recoverable", jsonvalue.Bool(d.Recoverable))
	if d.Details != "" {
		obj.Set("details", jsonvalue.String(d.Details))
	}
	return obj
}

func stringArray(items []string) jsonvalue.Array {
	arr := make(jsonvalue.Array, 0, len(items))
	for _, s := range items {
		arr = append(arr, jsonvalue.String(s))
	}
	return arr
}
