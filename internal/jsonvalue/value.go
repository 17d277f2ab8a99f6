// ABOUTME: JSON value model as a closed sum type with six variants
// ABOUTME: Objects keep insertion order and duplicate keys; lookups return the first match

package jsonvalue

// Value is one of Null, Bool, Number, String, Array or Object.
// The set is closed: only this package can add variants.
type Value interface {
	isValue()
}

type Null struct{}

type Bool bool

type Number float64

type String string

type Array []Value

// Member is one key/value entry of an Object.
type Member struct {
	Key   string
	Value Value
}

// Object is an ordered list of members. Keys are not required to be unique.
type Object []Member

func (Null) isValue()   {}
func (Bool) isValue()   {}
func (Number) isValue() {}
func (String) isValue() {}
func (Array) isValue()  {}
func (Object) isValue() {}

// Get returns the value of the first member named key.
func (o Object) Get(key string) (Value, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Set appends a member. Existing members with the same key are left in place,
// so Get keeps returning the earliest one.
func (o *Object) Set(key string, v Value) {
	*o = append(*o, Member{Key: key, Value: v})
}

// TypeName is used in error details and logs.
func TypeName(v Value) string {
	switch v.(type) {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	case nil:
		return "absent"
	default:
		panic("jsonvalue: unknown value type")
	}
}

// Equal reports structural equality. Object members are compared in order.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bb, ok := b.(Bool)
		return ok && a == bb
	case Number:
		bn, ok := b.(Number)
		return ok && a == bn
	case String:
		bs, ok := b.(String)
		return ok && a == bs
	case Array:
		ba, ok := b.(Array)
		if !ok || len(a) != len(ba) {
			return false
		}
		for i := range a {
			if !Equal(a[i], ba[i]) {
				return false
			}
		}
		return true
	case Object:
		bo, ok := b.(Object)
		if !ok || len(a) != len(bo) {
			return false
		}
		for i := range a {
			if a[i].Key != bo[i].Key || !Equal(a[i].Value, bo[i].Value) {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	default:
		panic("jsonvalue: unknown value type")
	}
}
