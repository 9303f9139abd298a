package reactive

import (
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"
)

// UndefinedType is the type of Undefined.
type UndefinedType struct{}

func (UndefinedType) String() string { return "undefined" }

// Undefined is the value of a variable that was never set.
var Undefined = UndefinedType{}

// Func is a callable value. this is the receiver for method calls and nil for
// plain calls.
type Func func(this any, args []any) (any, error)

// Values flowing through the runtime are nil (null), Undefined, bool,
// float64, string, []any, map[string]any, *Object or Func. Other Go numeric
// types are accepted and treated as float64.

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func toNumber(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case nil:
		return 0
	case string:
		s := strings.TrimSpace(x)
		switch s {
		case "":
			return 0
		case "Infinity", "+Infinity":
			return math.Inf(1)
		case "-Infinity":
			return math.Inf(-1)
		}
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			n, err := strconv.ParseUint(s[2:], 16, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	return math.NaN()
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ToString converts a value the way JavaScript string conversion does for
// the supported value kinds.
func ToString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case nil:
		return "null"
	case UndefinedType:
		return "undefined"
	case *Object:
		return "[object Object]"
	case map[string]any:
		return "[object Object]"
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			if e == nil || e == Undefined {
				continue
			}
			parts[i] = ToString(e)
		}
		return strings.Join(parts, ",")
	case Func:
		return "function"
	}
	if isNumber(v) {
		return formatNumber(toNumber(v))
	}
	return "[object Object]"
}

// Truthy reports JavaScript truthiness.
func Truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != ""
	case nil, UndefinedType:
		return false
	}
	if isNumber(v) {
		f := toNumber(v)
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

type kind int

const (
	kindUndefined kind = iota
	kindNull
	kindBool
	kindNumber
	kindString
	kindObject
)

func kindOf(v any) kind {
	switch v.(type) {
	case nil:
		return kindNull
	case UndefinedType:
		return kindUndefined
	case bool:
		return kindBool
	case string:
		return kindString
	}
	if isNumber(v) {
		return kindNumber
	}
	return kindObject
}

func strictEquals(a, b any) bool {
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		return false
	}
	switch ka {
	case kindUndefined, kindNull:
		return true
	case kindNumber:
		return toNumber(a) == toNumber(b)
	case kindObject:
		return identical(a, b)
	}
	return a == b
}

func looseEquals(a, b any) bool {
	ka, kb := kindOf(a), kindOf(b)
	switch {
	case ka == kb:
		return strictEquals(a, b)
	case (ka == kindNull || ka == kindUndefined) && (kb == kindNull || kb == kindUndefined):
		return true
	case ka == kindNull || ka == kindUndefined || kb == kindNull || kb == kindUndefined:
		return false
	case ka == kindBool:
		return looseEquals(toNumber(a), b)
	case kb == kindBool:
		return looseEquals(a, toNumber(b))
	case ka == kindObject:
		return looseEquals(ToString(a), b)
	case kb == kindObject:
		return looseEquals(a, ToString(b))
	}
	return toNumber(a) == toNumber(b)
}

func toPrimitive(v any) any {
	if kindOf(v) == kindObject {
		return ToString(v)
	}
	return v
}

func compare(op string, a, b any) bool {
	a, b = toPrimitive(a), toPrimitive(b)
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			switch op {
			case "<":
				return sa < sb
			case "<=":
				return sa <= sb
			case ">":
				return sa > sb
			default:
				return sa >= sb
			}
		}
	}
	x, y := toNumber(a), toNumber(b)
	switch op {
	case "<":
		return x < y
	case "<=":
		return x <= y
	case ">":
		return x > y
	default:
		return x >= y
	}
}

func add(a, b any) any {
	a, b = toPrimitive(a), toPrimitive(b)
	_, sa := a.(string)
	_, sb := b.(string)
	if sa || sb {
		return ToString(a) + ToString(b)
	}
	return toNumber(a) + toNumber(b)
}

func toInt32(v any) int32 {
	f := toNumber(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Trunc(math.Mod(f, 4294967296))
	return int32(uint32(int64(f)))
}

// identical is JavaScript reference identity for object values and plain
// equality otherwise. It never panics on uncomparable values.
func identical(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta == nil {
		return true
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch ta.Kind() {
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Map, reflect.Func, reflect.Pointer:
		return va.Pointer() == vb.Pointer()
	}
	if ta.Comparable() {
		return a == b
	}
	return false
}

func stringLength(s string) int { return utf8.RuneCountInString(s) }

func indexKey(key string) (int, bool) {
	n, err := strconv.Atoi(key)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
