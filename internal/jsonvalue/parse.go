// ABOUTME: Recursive-descent JSON parser over raw bytes with offset-based errors
// ABOUTME: Enforces a configurable nesting limit instead of unbounded recursion

package jsonvalue

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

// DefaultMaxDepth bounds how many arrays/objects may be nested inside each other.
const DefaultMaxDepth = 512

// ErrTooDeep is wrapped by the ParseError returned when the nesting limit is exceeded.
var ErrTooDeep = errors.New("nesting too deep")

// ParseError reports where and why parsing stopped.
type ParseError struct {
	Pos    int
	Reason string
	err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("json: parse error at offset %d: %s", e.Pos, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.err
}

// Option customizes a single Parse call.
type Option func(*parser)

// WithMaxDepth sets the nesting limit. Values below 1 keep DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(p *parser) {
		if n > 0 {
			p.maxDepth = n
		}
	}
}

type parser struct {
	s        string
	i        int
	depth    int
	maxDepth int
}

// Parse decodes exactly one JSON value from s. Leading and trailing ASCII
// whitespace is ignored; anything else after the value is an error.
func Parse(s string, opts ...Option) (Value, error) {
	p := &parser{s: s, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}

	if pos := invalidUTF8Offset(s); pos >= 0 {
		return nil, &ParseError{Pos: pos, Reason: "invalid UTF-8"}
	}

	p.skipWhitespace()
	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipWhitespace()
	if p.i < len(p.s) {
		return nil, p.fail("unexpected trailing content")
	}
	return v, nil
}

func invalidUTF8Offset(s string) int {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}

func (p *parser) fail(reason string) *ParseError {
	return &ParseError{Pos: p.i, Reason: reason}
}

func (p *parser) unexpected() *ParseError {
	if p.i >= len(p.s) {
		return p.fail("unexpected EOF")
	}
	r, _ := utf8.DecodeRuneInString(p.s[p.i:])
	return p.fail(fmt.Sprintf("unexpected char %q", r))
}

func (p *parser) cur() (byte, bool) {
	if p.i >= len(p.s) {
		return 0, false
	}
	return p.s[p.i], true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func (p *parser) skipWhitespace() {
	for p.i < len(p.s) && isSpace(p.s[p.i]) {
		p.i++
	}
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > p.maxDepth {
		return &ParseError{Pos: p.i, Reason: ErrTooDeep.Error(), err: ErrTooDeep}
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) parseValue() (Value, error) {
	c, ok := p.cur()
	if !ok {
		return nil, p.unexpected()
	}
	switch {
	case c == 'n':
		return p.parseLiteral("null", Null{})
	case c == 't':
		return p.parseLiteral("true", Bool(true))
	case c == 'f':
		return p.parseLiteral("false", Bool(false))
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	case c == '"':
		s, err := p.parseString()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case c == '[':
		return p.parseArray()
	case c == '{':
		return p.parseObject()
	default:
		return nil, p.unexpected()
	}
}

func (p *parser) parseLiteral(lit string, v Value) (Value, error) {
	if !strings.HasPrefix(p.s[p.i:], lit) {
		return nil, p.unexpected()
	}
	p.i += len(lit)
	return v, nil
}

func isNumberByte(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E'
}

// parseNumber takes the longest run of number-ish bytes and lets strconv decide
// whether it is well formed.
func (p *parser) parseNumber() (Value, error) {
	start := p.i
	for p.i < len(p.s) && isNumberByte(p.s[p.i]) {
		p.i++
	}
	f, err := strconv.ParseFloat(p.s[start:p.i], 64)
	if err != nil {
		return nil, &ParseError{Pos: start, Reason: err.Error(), err: err}
	}
	return Number(f), nil
}

func (p *parser) parseString() (string, error) {
	if c, ok := p.cur(); !ok || c != '"' {
		return "", p.unexpected()
	}
	p.i++

	var buf []byte
	for p.i < len(p.s) {
		c := p.s[p.i]
		switch c {
		case '"':
			p.i++
			return string(buf), nil
		case '\\':
			p.i++
			e, ok := p.cur()
			if !ok {
				return "", p.unexpected()
			}
			switch e {
			case '"', '\\', '/':
				buf = append(buf, e)
			case 'b':
				buf = append(buf, '\b')
			case 'f':
				buf = append(buf, '\f')
			case 'n':
				buf = append(buf, '\n')
			case 'r':
				buf = append(buf, '\r')
			case 't':
				buf = append(buf, '\t')
			case 'u':
				p.i++
				r, err := p.parseUnicodeEscape()
				if err != nil {
					return "", err
				}
				buf = utf8.AppendRune(buf, r)
				continue
			default:
				return "", p.unexpected()
			}
			p.i++
		default:
			buf = append(buf, c)
			p.i++
		}
	}
	return "", p.unexpected()
}

// parseUnicodeEscape reads the XXXX of a \uXXXX escape (the cursor is past the
// 'u'). A surrogate must be followed by a second escape forming a valid pair.
func (p *parser) parseUnicodeEscape() (rune, error) {
	start := p.i - 2
	n, err := p.parseHex4()
	if err != nil {
		return 0, err
	}
	if !utf16.IsSurrogate(n) {
		return n, nil
	}

	if !strings.HasPrefix(p.s[p.i:], `\u`) {
		return 0, p.unexpected()
	}
	p.i += 2
	n1, err := p.parseHex4()
	if err != nil {
		return 0, err
	}
	r := utf16.DecodeRune(n, n1)
	if r == unicode.ReplacementChar {
		return 0, &ParseError{Pos: start, Reason: "decode UTF-16 failed"}
	}
	return r, nil
}

func (p *parser) parseHex4() (rune, error) {
	if len(p.s)-p.i < 4 {
		return 0, p.unexpected()
	}
	var n rune
	for k := 0; k < 4; k++ {
		c := p.s[p.i+k]
		var d byte
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		default:
			p.i += k
			return 0, p.unexpected()
		}
		n = n<<4 | rune(d)
	}
	p.i += 4
	return n, nil
}

// '[' ']' | '[' value (',' value)* ']'
func (p *parser) parseArray() (Value, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	p.i++

	arr := Array{}
	for {
		p.skipWhitespace()
		c, ok := p.cur()
		if !ok {
			return nil, p.unexpected()
		}
		if c == ']' {
			p.i++
			return arr, nil
		}
		if len(arr) > 0 {
			if c != ',' {
				return nil, p.unexpected()
			}
			p.i++
			p.skipWhitespace()
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
}

// '{' '}' | '{' key ':' value (',' key ':' value)* '}'
func (p *parser) parseObject() (Value, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	p.i++

	obj := Object{}
	for {
		p.skipWhitespace()
		c, ok := p.cur()
		if !ok {
			return nil, p.unexpected()
		}
		if c == '}' {
			p.i++
			return obj, nil
		}
		if len(obj) > 0 {
			if c != ',' {
				return nil, p.unexpected()
			}
			p.i++
			p.skipWhitespace()
		}
		key, err := p.parseString()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if c, ok := p.cur(); !ok || c != ':' {
			return nil, p.unexpected()
		}
		p.i++
		p.skipWhitespace()
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		obj = append(obj, Member{Key: key, Value: v})
	}
}
