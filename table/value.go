package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jamesrr39/goutil/errorsx"
)

// Kind identifies which member of the Value union is set
type Kind uint8

const (
	KindNone Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindList
)

var kindNames = []string{
	"none",
	"int",
	"float",
	"string",
	"bool",
	"list",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Value is a single cell. The zero Value is None.
// Values are immutable: constructors copy their inputs and nothing mutates a Value in place.
type Value struct {
	kind Kind
	i    int64 // int payload, and 0/1 for bools
	f    float64
	s    string
	list []Value
}

func None() Value {
	return Value{}
}

func Int(i int64) Value {
	return Value{kind: KindInt, i: i}
}

func Float(f float64) Value {
	return Value{kind: KindFloat, f: f}
}

func String(s string) Value {
	return Value{kind: KindString, s: s}
}

func Bool(b bool) Value {
	if b {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

func List(vals ...Value) Value {
	return Value{kind: KindList, list: append([]Value{}, vals...)}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNone() bool {
	return v.kind == KindNone
}

// IsNumeric is true for ints, floats and bools, the kinds arithmetic accepts.
func (v Value) IsNumeric() bool {
	switch v.kind {
	case KindInt, KindFloat, KindBool:
		return true
	}
	return false
}

// AsInt returns the value as an int64. Floats are truncated.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt, KindBool:
		return v.i, true
	case KindFloat:
		return int64(v.f), true
	case KindString:
		i, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
		if err != nil {
			f, ok := v.AsFloat()
			return int64(f), ok
		}
		return i, true
	}
	return 0, false
}

// AsFloat returns the value as a float64. Strings are parsed.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt, KindBool:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// AsString returns the payload of a string value.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsBool returns the payload of a bool value.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.i != 0, true
}

// Elems returns the members of a list value, or nil for any other kind.
// The returned slice must not be modified.
func (v Value) Elems() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Truthy implements the engine's plain truthiness: none is false, numbers are
// true when non-zero, strings and lists when non-empty.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindInt, KindBool:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		return v.s != ""
	case KindList:
		return len(v.list) > 0
	}
	return false
}

// Text renders the value the way string functions see it. None renders as "".
func (v Value) Text() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.i != 0)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return ""
}

// String renders the value for dumps. Unlike Text, None renders as NULL.
func (v Value) String() string {
	if v.kind == KindNone {
		return "NULL"
	}
	return v.Text()
}

// GoString makes %#v output readable in test failures
func (v Value) GoString() string {
	switch v.kind {
	case KindString:
		return fmt.Sprintf("String(%q)", v.s)
	case KindNone:
		return "None()"
	}
	name := v.kind.String()
	return fmt.Sprintf("%s%s(%s)", strings.ToUpper(name[:1]), name[1:], v.Text())
}

// Native converts the value to plain Go: nil, int64, float64, string, bool or []interface{}.
func (v Value) Native() interface{} {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBool:
		return v.i != 0
	case KindList:
		out := make([]interface{}, len(v.list))
		for i, item := range v.list {
			out[i] = item.Native()
		}
		return out
	}
	return nil
}

// FromNative converts a value coming from a data source into a Value.
// Types without a natural mapping are rendered with fmt.
func FromNative(in interface{}) Value {
	switch val := in.(type) {
	case nil:
		return None()
	case Value:
		return val
	case int:
		return Int(int64(val))
	case int8:
		return Int(int64(val))
	case int16:
		return Int(int64(val))
	case int32:
		return Int(int64(val))
	case int64:
		return Int(val)
	case uint:
		return Int(int64(val))
	case uint8:
		return Int(int64(val))
	case uint16:
		return Int(int64(val))
	case uint32:
		return Int(int64(val))
	case uint64:
		if val > math.MaxInt64 {
			return Float(float64(val))
		}
		return Int(int64(val))
	case float32:
		return Float(float64(val))
	case float64:
		return Float(val)
	case string:
		return String(val)
	case []byte:
		return String(string(val))
	case bool:
		return Bool(val)
	case time.Time:
		return String(val.UTC().Format(time.RFC3339))
	case []interface{}:
		out := make([]Value, len(val))
		for i, item := range val {
			out[i] = FromNative(item)
		}
		return Value{kind: KindList, list: out}
	case []string:
		out := make([]Value, len(val))
		for i, item := range val {
			out[i] = String(item)
		}
		return Value{kind: KindList, list: out}
	case fmt.Stringer:
		return String(val.String())
	}
	return String(fmt.Sprintf("%v", in))
}

func (v Value) isIntLike() bool {
	return v.kind == KindInt || v.kind == KindBool
}

// Compare orders two values: -1, 0 or 1. None sorts before everything else.
// Numbers compare across int, float and bool; a string compared with a number
// is parsed as a number. Other mixes fail with ErrTypeMismatch.
func Compare(a, b Value) (int, errorsx.Error) {
	switch {
	case a.kind == KindNone && b.kind == KindNone:
		return 0, nil
	case a.kind == KindNone:
		return -1, nil
	case b.kind == KindNone:
		return 1, nil
	}

	if a.IsNumeric() && b.IsNumeric() {
		if a.isIntLike() && b.isIntLike() {
			return compareInts(a.i, b.i), nil
		}
		af, _ := a.AsFloat()
		bf, _ := b.AsFloat()
		return compareFloats(af, bf), nil
	}

	if a.kind == KindString && b.kind == KindString {
		return strings.Compare(a.s, b.s), nil
	}

	if a.kind == KindList && b.kind == KindList {
		for i := 0; i < len(a.list) && i < len(b.list); i++ {
			c, err := Compare(a.list[i], b.list[i])
			if err != nil {
				return 0, err
			}
			if c != 0 {
				return c, nil
			}
		}
		return compareInts(int64(len(a.list)), int64(len(b.list))), nil
	}

	if (a.kind == KindString && b.IsNumeric()) || (a.IsNumeric() && b.kind == KindString) {
		af, aok := a.AsFloat()
		bf, bok := b.AsFloat()
		if aok && bok {
			return compareFloats(af, bf), nil
		}
	}

	return 0, errorsx.Wrap(ErrTypeMismatch, "left", a.kind.String(), "right", b.kind.String())
}

// Equal reports value equality. Values that cannot be compared are unequal.
func Equal(a, b Value) bool {
	c, err := Compare(a, b)
	return err == nil && c == 0
}

// kind ranks used when two values cannot be compared directly
func (v Value) rank() int {
	switch v.kind {
	case KindNone:
		return 0
	case KindBool:
		return 1
	case KindInt, KindFloat:
		return 2
	case KindString:
		return 3
	}
	return 4
}

// Order is a total order over values, used for sorting and never failing.
// Incomparable values order by kind: none, bool, number, string, list.
func Order(a, b Value) int {
	c, err := Compare(a, b)
	if err == nil {
		return c
	}
	if ra, rb := a.rank(), b.rank(); ra != rb {
		return compareInts(int64(ra), int64(rb))
	}
	return strings.Compare(a.Text(), b.Text())
}

// Key returns a string identifying the value for hashing. Values that are
// Equal and of the same numeric family share a key (Int(1) and Float(1)).
func (v Value) Key() string {
	switch v.kind {
	case KindFloat:
		if v.f == math.Trunc(v.f) && math.Abs(v.f) < 1<<53 {
			return "n:" + strconv.FormatInt(int64(v.f), 10)
		}
		return "f:" + strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindInt:
		return "n:" + strconv.FormatInt(v.i, 10)
	case KindString:
		return "s" + strconv.Itoa(len(v.s)) + ":" + v.s
	case KindBool:
		return "b:" + strconv.FormatBool(v.i != 0)
	case KindList:
		var sb strings.Builder
		sb.WriteString("l" + strconv.Itoa(len(v.list)) + "(")
		for _, item := range v.list {
			sb.WriteString(item.Key())
			sb.WriteByte(';')
		}
		sb.WriteByte(')')
		return sb.String()
	}
	return "_"
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
