package buffer

import (
	"math"
	"time"

	"github.com/go-sif/colframe"
)

func asInt(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), uint64(x) <= math.MaxInt64
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), x <= math.MaxInt64
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	}
	return 0, false
}

func floatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func asUint(v interface{}) (uint64, bool) {
	switch x := v.(type) {
	case uint:
		return uint64(x), true
	case uint8:
		return uint64(x), true
	case uint16:
		return uint64(x), true
	case uint32:
		return uint64(x), true
	case uint64:
		return x, true
	case float32, float64:
		f, _ := asFloat(x)
		if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
			return 0, false
		}
		return uint64(f), true
	}
	i, ok := asInt(v)
	if !ok || i < 0 {
		return 0, false
	}
	return uint64(i), true
}

func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	i, ok := asInt(v)
	return float64(i), ok
}

func isIntegral(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func isUnsigned(v interface{}) bool {
	switch v.(type) {
	case uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func isFloating(v interface{}) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

func intFits(kind colframe.Kind, i int64) bool {
	switch kind {
	case colframe.KindInt8:
		return i >= math.MinInt8 && i <= math.MaxInt8
	case colframe.KindInt16:
		return i >= math.MinInt16 && i <= math.MaxInt16
	case colframe.KindInt32:
		return i >= math.MinInt32 && i <= math.MaxInt32
	}
	return true
}

func uintFits(kind colframe.Kind, u uint64) bool {
	switch kind {
	case colframe.KindUint8:
		return u <= math.MaxUint8
	case colframe.KindUint16:
		return u <= math.MaxUint16
	case colframe.KindUint32:
		return u <= math.MaxUint32
	}
	return true
}

// coerce converts v to the native element type stored for kind. It returns
// false if v cannot be represented without changing its meaning. Booleans are
// never treated as numbers.
func coerce(kind colframe.Kind, v interface{}) (interface{}, bool) {
	switch kind {
	case colframe.KindObject:
		return v, true
	case colframe.KindBool:
		b, ok := v.(bool)
		return b, ok
	case colframe.KindInt8, colframe.KindInt16, colframe.KindInt32, colframe.KindInt64:
		i, ok := asInt(v)
		if !ok || !intFits(kind, i) {
			return nil, false
		}
		switch kind {
		case colframe.KindInt8:
			return int8(i), true
		case colframe.KindInt16:
			return int16(i), true
		case colframe.KindInt32:
			return int32(i), true
		}
		return i, true
	case colframe.KindUint8, colframe.KindUint16, colframe.KindUint32, colframe.KindUint64:
		u, ok := asUint(v)
		if !ok || !uintFits(kind, u) {
			return nil, false
		}
		switch kind {
		case colframe.KindUint8:
			return uint8(u), true
		case colframe.KindUint16:
			return uint16(u), true
		case colframe.KindUint32:
			return uint32(u), true
		}
		return u, true
	case colframe.KindFloat32:
		f, ok := asFloat(v)
		// finite values beyond float32 range would round to an infinity
		if !ok || (!math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32) {
			return nil, false
		}
		return float32(f), true
	case colframe.KindFloat64:
		f, ok := asFloat(v)
		return f, ok
	case colframe.KindDatetime:
		t, ok := v.(time.Time)
		if !ok {
			return nil, false
		}
		return t.UnixNano(), true
	case colframe.KindTimedelta:
		d, ok := v.(time.Duration)
		if !ok {
			return nil, false
		}
		return int64(d), true
	}
	return nil, false
}

// box converts a native element back into the value exposed to callers
func box(kind colframe.Kind, native interface{}) interface{} {
	switch kind {
	case colframe.KindDatetime:
		return time.Unix(0, native.(int64)).UTC()
	case colframe.KindTimedelta:
		return time.Duration(native.(int64))
	}
	return native
}

// KindOf returns the Kind a single value would be stored as on its own. nil
// values report KindObject.
func KindOf(v interface{}) colframe.Kind {
	switch {
	case v == nil:
		return colframe.KindObject
	case isUnsigned(v):
		return colframe.KindUint64
	case isIntegral(v):
		return colframe.KindInt64
	case isFloating(v):
		return colframe.KindFloat64
	}
	switch v.(type) {
	case bool:
		return colframe.KindBool
	case time.Time:
		return colframe.KindDatetime
	case time.Duration:
		return colframe.KindTimedelta
	}
	return colframe.KindObject
}

// CanHold returns true iff v can be written to storage of the given Kind
// without retyping it. nil (a null) can be held by every Kind.
func CanHold(kind colframe.Kind, v interface{}) bool {
	if v == nil {
		return true
	}
	_, ok := coerce(kind, v)
	return ok
}

// Unify returns the narrowest Kind able to hold values of both a and b.
// Integers of mixed width unify to int64 (or uint64 when both are unsigned),
// mixed signedness and mixed integer/float unify to float64, and anything
// else unifies to object.
func Unify(a, b colframe.Kind) colframe.Kind {
	switch {
	case a == b:
		return a
	case a.IsUnsigned() && b.IsUnsigned():
		return colframe.KindUint64
	case a.IsInteger() && b.IsInteger() && !a.IsUnsigned() && !b.IsUnsigned():
		return colframe.KindInt64
	case a.IsNumeric() && b.IsNumeric():
		return colframe.KindFloat64
	}
	return colframe.KindObject
}

// inferKind picks the Kind for a list of heterogeneous values. Values which
// cannot be unified under a primitive Kind produce KindObject. A list of only
// nulls is also KindObject.
func inferKind(values []interface{}) colframe.Kind {
	var kind colframe.Kind
	seen := false
	for _, v := range values {
		if v == nil {
			continue
		}
		k := KindOf(v)
		if k == colframe.KindInt64 || k == colframe.KindUint64 {
			// integers unify by value, not by Go type
			if _, ok := asInt(v); ok {
				k = colframe.KindInt64
			}
		}
		if !seen {
			kind, seen = k, true
			continue
		}
		kind = Unify(kind, k)
		if kind == colframe.KindObject {
			return kind
		}
	}
	return kind
}
