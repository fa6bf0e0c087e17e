package shvalue

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"time"
)

type Kind int

const (
	KindNull = Kind(iota)
	KindInt
	KindUint
	KindFloat
	KindString
	KindBytes
	KindTime
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindTime:
		return "time"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is an immutable typed scalar used as a sharding value and as a merge cell.
type Value struct {
	kind Kind
	i    int64
	u    uint64
	f    float64
	s    string
	t    time.Time
}

var Null = Value{}

func Int(v int64) Value      { return Value{kind: KindInt, i: v} }
func Uint(v uint64) Value    { return Value{kind: KindUint, u: v} }
func Float(v float64) Value  { return Value{kind: KindFloat, f: v} }
func String(v string) Value  { return Value{kind: KindString, s: v} }
func Bytes(v []byte) Value   { return Value{kind: KindBytes, s: string(v)} }
func Time(v time.Time) Value { return Value{kind: KindTime, t: v} }

func Bool(v bool) Value {
	if v {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

// FromAny converts a driver or parameter value into a Value.
func FromAny(v any) (Value, error) {
	switch vv := v.(type) {
	case nil:
		return Null, nil
	case Value:
		return vv, nil
	case int:
		return Int(int64(vv)), nil
	case int8:
		return Int(int64(vv)), nil
	case int16:
		return Int(int64(vv)), nil
	case int32:
		return Int(int64(vv)), nil
	case int64:
		return Int(vv), nil
	case uint:
		return Uint(uint64(vv)), nil
	case uint8:
		return Uint(uint64(vv)), nil
	case uint16:
		return Uint(uint64(vv)), nil
	case uint32:
		return Uint(uint64(vv)), nil
	case uint64:
		return Uint(vv), nil
	case float32:
		return Float(float64(vv)), nil
	case float64:
		return Float(vv), nil
	case string:
		return String(vv), nil
	case []byte:
		return Bytes(vv), nil
	case time.Time:
		return Time(vv), nil
	case bool:
		return Bool(vv), nil
	default:
		return Null, fmt.Errorf("unsupported value type %T", v)
	}
}

// MustFromAny is FromAny for values known to be supported, e.g. in tests and literals.
func MustFromAny(v any) Value {
	val, err := FromAny(v)
	if err != nil {
		panic(err)
	}
	return val
}

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) IsNumeric() bool {
	return v.kind == KindInt || v.kind == KindUint || v.kind == KindFloat
}

// Any returns the Go representation of v; Null maps to nil.
func (v Value) Any() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindUint:
		return v.u
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBytes:
		return []byte(v.s)
	case KindTime:
		return v.t
	case KindBool:
		return v.i == 1
	default:
		return nil
	}
}

func (v Value) Int64() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindUint:
		if v.u > math.MaxInt64 {
			return 0, false
		}
		return int64(v.u), true
	case KindFloat:
		if v.f != math.Trunc(v.f) || math.Abs(v.f) > math.MaxInt64 {
			return 0, false
		}
		return int64(v.f), true
	case KindString, KindBytes:
		n, err := strconv.ParseInt(v.s, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindUint:
		return float64(v.u), true
	case KindFloat:
		return v.f, true
	case KindString, KindBytes:
		f, err := strconv.ParseFloat(v.s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func (v Value) Str() string { return v.s }

func (v Value) TimeValue() (time.Time, bool) {
	if v.kind == KindTime {
		return v.t, true
	}
	return time.Time{}, false
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindUint:
		return strconv.FormatUint(v.u, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindString:
		return v.s
	case KindBytes:
		return "0x" + hex.EncodeToString([]byte(v.s))
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	case KindBool:
		return strconv.FormatBool(v.i == 1)
	default:
		return "?"
	}
}

// Key is a kind-tagged encoding of v: two values share a key only if they are identical.
func (v Value) Key() string {
	return strconv.Itoa(int(v.kind)) + ":" + v.String()
}

// Comparable reports whether Compare gives a meaningful answer for a and b.
// Null is comparable with everything and sorts lowest.
func Comparable(a, b Value) bool {
	if a.IsNull() || b.IsNull() {
		return true
	}
	if a.IsNumeric() && b.IsNumeric() {
		return true
	}
	if (a.kind == KindString || a.kind == KindBytes) && (b.kind == KindString || b.kind == KindBytes) {
		return true
	}
	return a.kind == b.kind
}

// Compare orders a and b. Numbers compare across kinds, strings and bytes
// compare bytewise, Null sorts before everything else. Values of unrelated
// kinds are ordered by kind so that sorting stays total.
func Compare(a, b Value) int {
	if a.IsNull() || b.IsNull() {
		switch {
		case a.IsNull() && b.IsNull():
			return 0
		case a.IsNull():
			return -1
		default:
			return 1
		}
	}

	if a.IsNumeric() && b.IsNumeric() {
		return compareNumeric(a, b)
	}

	switch {
	case (a.kind == KindString || a.kind == KindBytes) && (b.kind == KindString || b.kind == KindBytes):
		return bytes.Compare([]byte(a.s), []byte(b.s))
	case a.kind == KindTime && b.kind == KindTime:
		return a.t.Compare(b.t)
	case a.kind == KindBool && b.kind == KindBool:
		return cmpInt64(a.i, b.i)
	}
	return cmpInt64(int64(a.kind), int64(b.kind))
}

func Equal(a, b Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	return Comparable(a, b) && Compare(a, b) == 0
}

func compareNumeric(a, b Value) int {
	switch {
	case a.kind == KindInt && b.kind == KindInt:
		return cmpInt64(a.i, b.i)
	case a.kind == KindUint && b.kind == KindUint:
		return cmpUint64(a.u, b.u)
	case a.kind == KindInt && b.kind == KindUint:
		if a.i < 0 {
			return -1
		}
		return cmpUint64(uint64(a.i), b.u)
	case a.kind == KindUint && b.kind == KindInt:
		if b.i < 0 {
			return 1
		}
		return cmpUint64(a.u, uint64(b.i))
	}
	af, _ := a.Float64()
	bf, _ := b.Float64()
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
