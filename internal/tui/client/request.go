// ABOUTME: Turns what the user typed into JSON-RPC request lines and reads ids back out
// ABOUTME: Accepts raw JSON or the shorthand "method arg arg..." with "!" marking notifications
package client

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/harper/rpcline/internal/jsonrpc"
	"github.com/harper/rpcline/internal/jsonvalue"
)

// Command is a parsed shorthand line: "add 1 2" calls add with [1,2] and
// "!add 1 2" sends the same call as a notification.
type Command struct {
	Method string
	Params []float64
	Notify bool
}

// IsRaw reports whether input is JSON to be sent as typed.
func IsRaw(input string) bool {
	input = strings.TrimSpace(input)
	return input != "" && (input[0] == '{' || input[0] == '[')
}

func ParseCommand(input string) (Command, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty input")
	}

	var cmd Command
	cmd.Method = fields[0]
	if strings.HasPrefix(cmd.Method, "!") {
		cmd.Notify = true
		cmd.Method = strings.TrimPrefix(cmd.Method, "!")
	}
	if cmd.Method == "" {
		return Command{}, fmt.Errorf("missing method name")
	}

	cmd.Params = make([]float64, 0, len(fields)-1)
	for _, f := range fields[1:] {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Command{}, fmt.Errorf("param %q is not a number", f)
		}
		cmd.Params = append(cmd.Params, n)
	}
	return cmd, nil
}

// EncodeRequest serializes a call with positional params. A nil id encodes a
// notification.
func EncodeRequest(method string, params []float64, id jsonvalue.Value) string {
	args := make(jsonvalue.Array, 0, len(params))
	for _, p := range params {
		args = append(args, jsonvalue.Number(p))
	}

	req := jsonvalue.Object{
		{Key: "jsonrpc", Value: jsonvalue.String(jsonrpc.Version)},
		{Key: "method", Value: jsonvalue.String(method)},
		{Key: "params", Value: args},
	}
	if id != nil {
		req.Set("id", id)
	}
	return jsonvalue.Stringify(req)
}

// RequestIDs lists the ids the server will answer with for a raw request
// line, as canonical JSON text. Notifications and requests the server
// answers with a null id (bad envelope, bad id) are left out, as is
// everything in a line that does not parse.
func RequestIDs(line string) []string {
	v, err := jsonvalue.Parse(line)
	if err != nil {
		return nil
	}

	var ids []string
	collect := func(elem jsonvalue.Value) {
		obj, ok := elem.(jsonvalue.Object)
		if !ok {
			return
		}
		req, _ := jsonrpc.Validate(obj)
		if !req.IsNotification() {
			ids = append(ids, jsonvalue.Stringify(req.ID))
		}
	}

	switch v := v.(type) {
	case jsonvalue.Array:
		for _, elem := range v {
			collect(elem)
		}
	default:
		collect(v)
	}
	return ids
}

// responseIDs lists the id member of a response or of every response in a batch.
func responseIDs(v jsonvalue.Value) []string {
	var ids []string
	collect := func(elem jsonvalue.Value) {
		obj, ok := elem.(jsonvalue.Object)
		if !ok {
			return
		}
		if id, ok := obj.Get("id"); ok {
			ids = append(ids, jsonvalue.Stringify(id))
		}
	}

	switch v := v.(type) {
	case jsonvalue.Array:
		for _, elem := range v {
			collect(elem)
		}
	default:
		collect(v)
	}
	return ids
}

// Describe summarizes a response line, e.g. "#1 → 3" or
// "#2 ✗ -32601 Method not found". Lines that are not responses come back as is.
func Describe(line string) string {
	v, err := jsonvalue.Parse(line)
	if err != nil {
		return line
	}

	switch v := v.(type) {
	case jsonvalue.Array:
		parts := make([]string, 0, len(v))
		for _, elem := range v {
			parts = append(parts, describeOne(elem))
		}
		return strings.Join(parts, "; ")
	default:
		return describeOne(v)
	}
}

func describeOne(v jsonvalue.Value) string {
	obj, ok := v.(jsonvalue.Object)
	if !ok {
		return jsonvalue.Stringify(v)
	}

	id := "null"
	if idVal, ok := obj.Get("id"); ok {
		id = jsonvalue.Stringify(idVal)
	}

	if result, ok := obj.Get("result"); ok {
		return fmt.Sprintf("#%s → %s", id, jsonvalue.Stringify(result))
	}
	if errVal, ok := obj.Get("error"); ok {
		errObj, _ := errVal.(jsonvalue.Object)
		code, _ := errObj.Get("code")
		message, _ := errObj.Get("message")
		msg := ""
		if s, ok := message.(jsonvalue.String); ok {
			msg = string(s)
		}
		return fmt.Sprintf("#%s ✗ %s %s", id, jsonvalue.Stringify(code), msg)
	}
	return jsonvalue.Stringify(obj)
}
