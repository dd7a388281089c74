// Package vsmvalue defines the tagged value type carried by vehicle signals
// and the tri-state result of evaluating a predicate over them.
package vsmvalue

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindUnset Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "unset"
	}
}

// Value is a signal's current value: exactly one of Bool, Int, Float or Str
// is meaningful, selected by Kind. The zero Value is Unset.
type Value struct {
	Kind Kind
	Bool bool
	Int  int64
	Flt  float64
	Str  string
}

// Unset is the value of a signal that has never been observed.
var Unset = Value{Kind: KindUnset}

// BoolValue, IntValue, FloatValue and StringValue construct typed values.
func BoolValue(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func IntValue(i int64) Value      { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value  { return Value{Kind: KindFloat, Flt: f} }
func StringValue(s string) Value  { return Value{Kind: KindString, Str: s} }

// IsUnset reports whether v carries no observed value.
func (v Value) IsUnset() bool { return v.Kind == KindUnset }

// Tri is the tri-state result of a boolean evaluation.
type Tri int

const (
	TriUnset Tri = iota
	TriFalse
	TriTrue
)

// Bool collapses a Tri into a plain bool, with Unset treated as false:
// cross-kind comparison is undefined and treated as false in boolean
// composition.
func (t Tri) Bool() bool { return t == TriTrue }

// TriFromBool lifts a plain bool into Tri.
func TriFromBool(b bool) Tri {
	if b {
		return TriTrue
	}
	return TriFalse
}

// Literal renders v the way the trace format requires raw/state dumps to
// render it: booleans capitalized, strings unquoted, numbers in their
// natural form.
func (v Value) Literal() string {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return "True"
		}
		return "False"
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return formatFloat(v.Flt)
	case KindString:
		return v.Str
	default:
		return "(unset)"
	}
}

// QuotedLiteral renders v the way egress/recap lines render it: every value
// wrapped in single quotes regardless of kind ("name,id,'value'").
func (v Value) QuotedLiteral() string {
	return "'" + v.Literal() + "'"
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	return s
}

// ParseLexeme parses a raw ingress lexeme as received over an IPC adapter
// into a typed Value, returning the value and its canonical raw-trace
// lexeme: a quoted string keeps its quotes (double quotes become single
// quotes), booleans become True/False, and anything else is kept as sent.
func ParseLexeme(raw string) (Value, string) {
	trimmed := strings.TrimSpace(raw)

	if len(trimmed) >= 2 && trimmed[0] == '\'' && trimmed[len(trimmed)-1] == '\'' {
		return StringValue(trimmed[1 : len(trimmed)-1]), trimmed
	}
	if len(trimmed) >= 2 && trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"' {
		inner := trimmed[1 : len(trimmed)-1]
		return StringValue(inner), "'" + inner + "'"
	}

	switch trimmed {
	case "True", "true":
		return BoolValue(true), "True"
	case "False", "false":
		return BoolValue(false), "False"
	}

	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return IntValue(i), trimmed
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return FloatValue(f), trimmed
	}

	// Bare, unquoted word: treat as a string literal (common for enum-like
	// signal values transmitted without quotes by older producers).
	return StringValue(trimmed), trimmed
}

// Equal reports whether two values are equal. Cross-kind comparisons
// (other than numeric Int/Float) are never equal.
func (v Value) Equal(other Value) bool {
	if v.Kind == KindUnset || other.Kind == KindUnset {
		return false
	}
	if isNumeric(v.Kind) && isNumeric(other.Kind) {
		return asFloat(v) == asFloat(other)
	}
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.Bool == other.Bool
	case KindString:
		return v.Str == other.Str
	default:
		return false
	}
}

func isNumeric(k Kind) bool { return k == KindInt || k == KindFloat }

func asFloat(v Value) float64 {
	if v.Kind == KindInt {
		return float64(v.Int)
	}
	return v.Flt
}

// Compare orders two numeric values; ok is false if either operand is not
// numeric (including Unset): comparisons involving Unset always produce
// False.
func Compare(a, b Value) (cmp int, ok bool) {
	if !isNumeric(a.Kind) || !isNumeric(b.Kind) {
		return 0, false
	}
	af, bf := asFloat(a), asFloat(b)
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	default:
		return 0, true
	}
}

// Arith applies a binary arithmetic operator ("+", "-", "*", "/") to two
// values, returning Unset when either operand is not numeric or the
// operator divides by zero: arithmetic with unset operands yields unset.
func Arith(op string, a, b Value) Value {
	if !isNumeric(a.Kind) || !isNumeric(b.Kind) {
		return Unset
	}
	if a.Kind == KindInt && b.Kind == KindInt {
		switch op {
		case "+":
			return IntValue(a.Int + b.Int)
		case "-":
			return IntValue(a.Int - b.Int)
		case "*":
			return IntValue(a.Int * b.Int)
		case "/":
			if b.Int == 0 {
				return Unset
			}
			return IntValue(a.Int / b.Int)
		}
	}
	af, bf := asFloat(a), asFloat(b)
	switch op {
	case "+":
		return FloatValue(af + bf)
	case "-":
		return FloatValue(af - bf)
	case "*":
		return FloatValue(af * bf)
	case "/":
		if bf == 0 {
			return Unset
		}
		return FloatValue(af / bf)
	default:
		panic(fmt.Sprintf("vsmvalue: unknown arithmetic operator %q", op))
	}
}
