// Package literal parses the small literal expressions found in "eval"
// attributes of source records.
//
// Only boolean and base-10 integer literals are recognised. Anything else is
// rejected; there is no expression evaluation.
package literal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupported is returned for input that is not a boolean or integer literal.
var ErrUnsupported = errors.New("unsupported literal")

// Kind of a parsed literal.
type Kind int

const (
	Bool Kind = iota
	Int
)

// Value is a parsed literal.
type Value struct {
	kind Kind
	b    bool
	n    int64
}

// Parse reads a boolean (True, False, true, false) or integer literal.
// Surrounding whitespace is ignored.
func Parse(s string) (Value, error) {
	t := strings.TrimSpace(s)
	switch t {
	case "True", "true":
		return Value{kind: Bool, b: true}, nil
	case "False", "false":
		return Value{kind: Bool, b: false}, nil
	}
	n, err := strconv.ParseInt(t, 10, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %q", ErrUnsupported, s)
	}
	return Value{kind: Int, n: n}, nil
}

// Kind returns the literal kind.
func (v Value) Kind() Kind { return v.kind }

// Truthy reports the boolean meaning of the literal: a non-zero integer or
// True.
func (v Value) Truthy() bool {
	if v.kind == Int {
		return v.n != 0
	}
	return v.b
}

// Int returns the integer value; booleans map to 0 and 1.
func (v Value) Int() int64 {
	if v.kind == Bool {
		if v.b {
			return 1
		}
		return 0
	}
	return v.n
}

// String renders the literal in the form it is written in documents.
func (v Value) String() string {
	if v.kind == Int {
		return strconv.FormatInt(v.n, 10)
	}
	return FormatBool(v.b)
}

// FormatBool renders a boolean literal ("True" or "False").
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// FormatInt renders an integer literal.
func FormatInt(n int) string {
	return strconv.Itoa(n)
}
