// ABOUTME: Method registry and top-level dispatch for single and batch requests
// ABOUTME: Turns one input line into zero or one output line

package jsonrpc

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/harper/rpcline/internal/jsonvalue"
)

// Method computes a numeric result from the request params. params is nil
// when the request had no params member.
type Method func(params jsonvalue.Value) (float64, *Error)

// ErrorDataFunc returns the "data" member for an error, or nil for none.
type ErrorDataFunc func(err *Error) jsonvalue.Value

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMaxDepth bounds the nesting depth accepted by HandleLine.
func WithMaxDepth(n int) Option {
	return func(d *Dispatcher) {
		d.maxDepth = n
	}
}

// WithErrorData attaches extra data to every error response.
func WithErrorData(fn ErrorDataFunc) Option {
	return func(d *Dispatcher) {
		d.errorData = fn
	}
}

// Dispatcher validates requests and routes them to the fixed method registry.
// It keeps no per-request state and is safe for concurrent use.
type Dispatcher struct {
	methods   map[string]Method
	maxDepth  int
	errorData ErrorDataFunc
	stats     counters
}

type counters struct {
	requests      atomic.Int64
	notifications atomic.Int64
	batches       atomic.Int64
	parseErrors   atomic.Int64
	invalidReqs   atomic.Int64
	notFound      atomic.Int64
	invalidParams atomic.Int64
}

// Stats is a point-in-time copy of the dispatcher counters.
type Stats struct {
	Requests        int64 `json:"requests" yaml:"requests"`
	Notifications   int64 `json:"notifications" yaml:"notifications"`
	Batches         int64 `json:"batches" yaml:"batches"`
	ParseErrors     int64 `json:"parse_errors" yaml:"parse_errors"`
	InvalidRequests int64 `json:"invalid_requests" yaml:"invalid_requests"`
	MethodNotFound  int64 `json:"method_not_found" yaml:"method_not_found"`
	InvalidParams   int64 `json:"invalid_params" yaml:"invalid_params"`
}

func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		methods: map[string]Method{
			"add":      add,
			"subtract": subtract,
		},
		maxDepth: jsonvalue.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Methods lists the registered method names in sorted order.
func (d *Dispatcher) Methods() []string {
	names := make([]string, 0, len(d.methods))
	for name := range d.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Requests:        d.stats.requests.Load(),
		Notifications:   d.stats.notifications.Load(),
		Batches:         d.stats.batches.Load(),
		ParseErrors:     d.stats.parseErrors.Load(),
		InvalidRequests: d.stats.invalidReqs.Load(),
		MethodNotFound:  d.stats.notFound.Load(),
		InvalidParams:   d.stats.invalidParams.Load(),
	}
}

// HandleLine parses one input line and returns the serialized response.
// ok is false when nothing must be written (notifications only).
func (d *Dispatcher) HandleLine(line string) (out string, ok bool) {
	v, err := jsonvalue.Parse(line, jsonvalue.WithMaxDepth(d.maxDepth))
	if err != nil {
		resp := d.errorResponse(jsonvalue.Null{}, NewError(ParseError, err.Error()))
		return jsonvalue.Stringify(resp), true
	}

	resp, ok := d.Handle(v)
	if !ok {
		return "", false
	}
	return jsonvalue.Stringify(resp), true
}

// Handle classifies a parsed line as a single request or a batch and returns
// the response value. ok is false when no response must be written.
func (d *Dispatcher) Handle(v jsonvalue.Value) (jsonvalue.Value, bool) {
	switch v := v.(type) {
	case jsonvalue.Object:
		return d.handleSingle(v)
	case jsonvalue.Array:
		return d.handleBatch(v)
	case jsonvalue.Null, jsonvalue.Bool, jsonvalue.Number, jsonvalue.String:
		return d.errorResponse(jsonvalue.Null{}, NewError(InvalidRequest, "request must be an object or array, got "+jsonvalue.TypeName(v))), true
	default:
		return d.errorResponse(jsonvalue.Null{}, NewError(InvalidRequest, "empty request")), true
	}
}

// handleBatch runs every element independently. An empty batch is itself an
// invalid request; a batch of notifications produces nothing at all.
func (d *Dispatcher) handleBatch(batch jsonvalue.Array) (jsonvalue.Value, bool) {
	d.stats.batches.Add(1)
	if len(batch) == 0 {
		return d.errorResponse(jsonvalue.Null{}, NewError(InvalidRequest, "empty batch")), true
	}

	responses := jsonvalue.Array{}
	for i, elem := range batch {
		obj, isObject := elem.(jsonvalue.Object)
		if !isObject {
			detail := fmt.Sprintf("batch element %d must be an object, got %s", i, jsonvalue.TypeName(elem))
			responses = append(responses, d.errorResponse(jsonvalue.Null{}, NewError(InvalidRequest, detail)))
			continue
		}
		if resp, ok := d.handleSingle(obj); ok {
			responses = append(responses, resp)
		}
	}

	if len(responses) == 0 {
		return nil, false
	}
	return responses, true
}

func (d *Dispatcher) handleSingle(obj jsonvalue.Object) (jsonvalue.Value, bool) {
	req, rerr := Validate(obj)
	if rerr != nil {
		return d.errorResponse(req.ID, rerr), true
	}
	if req.IsNotification() {
		d.stats.notifications.Add(1)
		return nil, false
	}

	d.stats.requests.Add(1)
	method, ok := d.methods[req.Method]
	if !ok {
		return d.errorResponse(req.ID, NewError(MethodNotFound, fmt.Sprintf("no method named %q", req.Method))), true
	}

	result, merr := method(req.Params)
	if merr != nil {
		return d.errorResponse(req.ID, merr), true
	}
	return NewResult(req.ID, result), true
}

func (d *Dispatcher) errorResponse(id jsonvalue.Value, err *Error) jsonvalue.Object {
	switch err.Code {
	case ParseError:
		d.stats.parseErrors.Add(1)
	case InvalidRequest:
		d.stats.invalidReqs.Add(1)
	case MethodNotFound:
		d.stats.notFound.Add(1)
	case InvalidParams:
		d.stats.invalidParams.Add(1)
	}

	if d.errorData != nil && err.Data == nil {
		err.Data = d.errorData(err)
	}
	return NewErrorResponse(id, err)
}

// add sums an array of numbers; the empty array sums to 0.
func add(params jsonvalue.Value) (float64, *Error) {
	args, ok := params.(jsonvalue.Array)
	if !ok {
		return 0, NewError(InvalidParams, "add expects an array of numbers, got "+jsonvalue.TypeName(params))
	}

	var sum float64
	for i, arg := range args {
		n, ok := arg.(jsonvalue.Number)
		if !ok {
			return 0, NewError(InvalidParams, fmt.Sprintf("add param %d must be a number, got %s", i, jsonvalue.TypeName(arg)))
		}
		sum += float64(n)
	}
	return sum, nil
}

// subtract returns params[0] - params[1].
func subtract(params jsonvalue.Value) (float64, *Error) {
	args, ok := params.(jsonvalue.Array)
	if !ok {
		return 0, NewError(InvalidParams, "subtract expects an array of two numbers, got "+jsonvalue.TypeName(params))
	}
	if len(args) != 2 {
		return 0, NewError(InvalidParams, fmt.Sprintf("subtract expects 2 params, got %d", len(args)))
	}

	var nums [2]float64
	for i, arg := range args {
		n, ok := arg.(jsonvalue.Number)
		if !ok {
			return 0, NewError(InvalidParams, fmt.Sprintf("subtract param %d must be a number, got %s", i, jsonvalue.TypeName(arg)))
		}
		nums[i] = float64(n)
	}
	return nums[0] - nums[1], nil
}
