package store

import (
	"math"
	"reflect"
)

// Arg returns payload[i] as T. Numeric values convert between numeric kinds,
// since payloads decoded from JSON carry float64, but only when the value
// survives the conversion exactly: 1.5 is not an int, 300 is not a uint8 and
// -1 is not a uint. It reports false when the index is out of range or the
// value cannot be represented as T.
func Arg[T any](payload []any, i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(payload) {
		return zero, false
	}
	if v, ok := payload[i].(T); ok {
		return v, true
	}
	if payload[i] == nil {
		return zero, false
	}

	rv := reflect.ValueOf(payload[i])
	target := reflect.TypeFor[T]()
	if !isNumeric(rv.Kind()) || !isNumeric(target.Kind()) || !representable(rv, target) {
		return zero, false
	}
	return rv.Convert(target).Interface().(T), true
}

func representable(v reflect.Value, target reflect.Type) bool {
	if isFloat(v.Kind()) {
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return isFloat(target.Kind())
		}
		if !isFloat(target.Kind()) && f != math.Trunc(f) {
			return false
		}
	}

	c := v.Convert(target)
	if negative(v) != negative(c) {
		return false
	}
	return c.Convert(v.Type()).Equal(v)
}

func negative(v reflect.Value) bool {
	switch {
	case isSigned(v.Kind()):
		return v.Int() < 0
	case isFloat(v.Kind()):
		return v.Float() < 0
	}
	return false
}

func isNumeric(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isSigned(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUnsigned(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}
