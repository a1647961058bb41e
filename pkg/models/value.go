// Package models defines the cell, batch and table types that flow through a
// conversion: rows come out of the spreadsheet reader as []Value, are
// transposed into ColumnarBatch values, and end up concatenated in a Table.
//
// Spreadsheet cells carry no static type, so every cell is a tagged Value and
// every column carries the Kind that all of its values can be represented as.
package models

import (
	"math"
	"strconv"
	"time"
)

// Kind identifies the dynamic type of a cell or the unified type of a column
type Kind uint8

const (
	// KindNull is an empty cell, or a column whose cells are all empty
	KindNull Kind = iota
	// KindBool is a TRUE/FALSE cell
	KindBool
	// KindInt is a whole number
	KindInt
	// KindFloat is a floating point number
	KindFloat
	// KindDate is a calendar date without time of day
	KindDate
	// KindTimestamp is a date with time of day, UTC
	KindTimestamp
	// KindString is text, and the fallback for mixed columns
	KindString
)

var kindNames = [...]string{
	KindNull:      "null",
	KindBool:      "bool",
	KindInt:       "int",
	KindFloat:     "float",
	KindDate:      "date",
	KindTimestamp: "timestamp",
	KindString:    "string",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind is the inverse of Kind.String
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return KindNull, false
}

// Unify returns the narrowest kind that can represent values of both a and b.
//
//	null ∪ X          = X
//	int ∪ float       = float
//	date ∪ timestamp  = timestamp
//	anything else     = string
func Unify(a, b Kind) Kind {
	switch {
	case a == b:
		return a
	case a == KindNull:
		return b
	case b == KindNull:
		return a
	case isNumeric(a) && isNumeric(b):
		return KindFloat
	case isTemporal(a) && isTemporal(b):
		return KindTimestamp
	default:
		return KindString
	}
}

func isNumeric(k Kind) bool  { return k == KindInt || k == KindFloat }
func isTemporal(k Kind) bool { return k == KindDate || k == KindTimestamp }

// Value is a single spreadsheet cell.
//
// The payload is packed into one 64-bit word: bool as 0/1, int64 as its two's
// complement bits, float64 as IEEE bits, dates and timestamps as UTC Unix
// seconds with the sub-second part in nsec. Seconds cover every year a sheet
// can hold (0001 to 9999). Temporal values keep their source text in str so
// that a mixed column can reproduce what the sheet displayed.
type Value struct {
	kind Kind
	nsec int32
	bits uint64
	str  string
}

// Null returns the empty cell
func Null() Value { return Value{} }

// Bool returns a boolean cell
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.bits = 1
	}
	return v
}

// Int returns an integer cell
func Int(i int64) Value { return Value{kind: KindInt, bits: uint64(i)} }

// Float returns a floating point cell
func Float(f float64) Value { return Value{kind: KindFloat, bits: math.Float64bits(f)} }

// String returns a text cell
func String(s string) Value { return Value{kind: KindString, str: s} }

// Date returns a date cell truncated to midnight UTC. text is the source
// rendering and may be empty.
func Date(t time.Time, text string) Value {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return Value{kind: KindDate, bits: uint64(t.Unix()), str: text}
}

// Timestamp returns a date-time cell normalized to UTC. text is the source
// rendering and may be empty.
func Timestamp(t time.Time, text string) Value {
	t = t.UTC()
	return Value{kind: KindTimestamp, nsec: int32(t.Nanosecond()), bits: uint64(t.Unix()), str: text}
}

// Kind returns the dynamic type of the cell
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the cell is empty
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload
func (v Value) AsBool() bool { return v.bits == 1 }

// AsInt returns the integer payload
func (v Value) AsInt() int64 { return int64(v.bits) }

// AsFloat returns the numeric payload as float64; ints are widened
func (v Value) AsFloat() float64 {
	if v.kind == KindInt {
		return float64(int64(v.bits))
	}
	return math.Float64frombits(v.bits)
}

// AsTime returns the temporal payload in UTC
func (v Value) AsTime() time.Time {
	return time.Unix(int64(v.bits), int64(v.nsec)).UTC()
}

// AsString returns the string payload
func (v Value) AsString() string { return v.str }

// Text renders the cell the way the sheet displayed it. Numbers and booleans
// were only decoded from their canonical rendering, so re-rendering them is
// lossless.
func (v Value) Text() string {
	switch v.kind {
	case KindBool:
		if v.AsBool() {
			return "TRUE"
		}
		return "FALSE"
	case KindInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case KindFloat:
		return strconv.FormatFloat(v.AsFloat(), 'f', -1, 64)
	case KindDate:
		if v.str != "" {
			return v.str
		}
		return v.AsTime().Format(time.DateOnly)
	case KindTimestamp:
		if v.str != "" {
			return v.str
		}
		return v.AsTime().Format(time.RFC3339Nano)
	case KindString:
		return v.str
	default:
		return ""
	}
}

// Convert returns v represented as kind k. k must be Unify(v.Kind(), k).
// Nulls stay null.
func (v Value) Convert(k Kind) Value {
	if v.kind == k || v.kind == KindNull {
		return v
	}
	switch k {
	case KindFloat:
		return Float(v.AsFloat())
	case KindTimestamp:
		return Value{kind: KindTimestamp, nsec: v.nsec, bits: v.bits, str: v.str}
	case KindString:
		return String(v.Text())
	}
	return v
}

// Equal compares kind and payload; the source text of temporal values is
// ignored.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == KindString {
		return v.str == o.str
	}
	return v.bits == o.bits && v.nsec == o.nsec
}
