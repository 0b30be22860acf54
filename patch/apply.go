package patch

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

// Apply replays patches in order against base and returns the result. Base is
// never modified: each patch copies the containers along its path and shares
// every other branch with the value it was applied to.
//
// Removing a map key that does not exist is a no-op. Every other unresolvable
// path fails with ErrInvalidPath, and values that cannot be assigned to the
// addressed location fail with ErrTypeMismatch.
func Apply[T any](base T, patches []Patch) (T, error) {
	cur := reflect.ValueOf(&base).Elem()
	for i, p := range patches {
		next, err := applyAt(cur, p.Path, p)
		if err != nil {
			var zero T
			return zero, fmt.Errorf("patch %d (%s %s): %w", i, p.Op, p.Path, err)
		}
		cur = next
	}

	var out T
	reflect.ValueOf(&out).Elem().Set(cur)
	return out, nil
}

// applyAt returns a new value of v's type with p applied at the relative path.
func applyAt(v reflect.Value, path Path, p Patch) (reflect.Value, error) {
	if len(path) == 0 {
		if p.Op == OpRemove {
			return reflect.Zero(v.Type()), nil
		}
		return coerce(p.Value, v.Type())
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: nil pointer at %v", ErrInvalidPath, path[0])
		}
		elem, err := applyAt(v.Elem(), path, p)
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(v.Type().Elem())
		ptr.Elem().Set(elem)
		return ptr, nil

	case reflect.Interface:
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: nil interface at %v", ErrInvalidPath, path[0])
		}
		inner, err := applyAt(v.Elem(), path, p)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(inner)
		return out, nil

	case reflect.Struct:
		return applyStruct(v, path, p)

	case reflect.Map:
		return applyMap(v, path, p)

	case reflect.Slice:
		return applySlice(v, path, p)

	case reflect.Array:
		return applyArray(v, path, p)
	}

	return reflect.Value{}, fmt.Errorf("%w: cannot descend into %s at %v", ErrInvalidPath, v.Kind(), path[0])
}

func applyStruct(v reflect.Value, path Path, p Patch) (reflect.Value, error) {
	name, ok := path[0].(string)
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w: field segment %v is not a name", ErrInvalidPath, path[0])
	}
	field, ok := v.Type().FieldByName(name)
	if !ok || !field.IsExported() || len(field.Index) != 1 {
		return reflect.Value{}, fmt.Errorf("%w: no field %s in %s", ErrInvalidPath, name, v.Type())
	}
	idx := field.Index[0]

	out := reflect.New(v.Type()).Elem()
	out.Set(v)

	var (
		next reflect.Value
		err  error
	)
	switch {
	case len(path) > 1:
		next, err = applyAt(v.Field(idx), path[1:], p)
	case p.Op == OpRemove:
		next = reflect.Zero(field.Type)
	default:
		next, err = coerce(p.Value, field.Type)
	}
	if err != nil {
		return reflect.Value{}, err
	}
	out.Field(idx).Set(next)
	return out, nil
}

func applyMap(v reflect.Value, path Path, p Patch) (reflect.Value, error) {
	t := v.Type()
	key, err := coerce(path[0], t.Key())
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%w: map key %v", ErrInvalidPath, path[0])
	}

	existing := reflect.Value{}
	if !v.IsNil() {
		existing = v.MapIndex(key)
	}

	var next reflect.Value
	switch {
	case len(path) > 1:
		if !existing.IsValid() {
			return reflect.Value{}, fmt.Errorf("%w: missing key %v", ErrInvalidPath, path[0])
		}
		next, err = applyAt(existing, path[1:], p)
	case p.Op == OpRemove:
		if !existing.IsValid() {
			return v, nil
		}
	case p.Op == OpReplace && !existing.IsValid():
		return reflect.Value{}, fmt.Errorf("%w: missing key %v", ErrInvalidPath, path[0])
	default:
		next, err = coerce(p.Value, t.Elem())
	}
	if err != nil {
		return reflect.Value{}, err
	}

	out := reflect.MakeMapWithSize(t, v.Len()+1)
	if !v.IsNil() {
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
	}
	if next.IsValid() {
		out.SetMapIndex(key, next)
	} else {
		out.SetMapIndex(key, reflect.Value{})
	}
	return out, nil
}

func applySlice(v reflect.Value, path Path, p Patch) (reflect.Value, error) {
	idx, err := index(path[0])
	if err != nil {
		return reflect.Value{}, err
	}
	t := v.Type()
	n := v.Len()

	if len(path) == 1 && p.Op == OpAdd {
		if idx < 0 || idx > n {
			return reflect.Value{}, fmt.Errorf("%w: add index %d out of range [0,%d]", ErrInvalidPath, idx, n)
		}
		elem, err := coerce(p.Value, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.MakeSlice(t, n+1, n+1)
		reflect.Copy(out, v.Slice(0, idx))
		out.Index(idx).Set(elem)
		reflect.Copy(out.Slice(idx+1, n+1), v.Slice(idx, n))
		return out, nil
	}

	if idx < 0 || idx >= n {
		return reflect.Value{}, fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidPath, idx, n)
	}

	if len(path) == 1 && p.Op == OpRemove {
		out := reflect.MakeSlice(t, n-1, n-1)
		reflect.Copy(out, v.Slice(0, idx))
		reflect.Copy(out.Slice(idx, n-1), v.Slice(idx+1, n))
		return out, nil
	}

	var elem reflect.Value
	if len(path) > 1 {
		elem, err = applyAt(v.Index(idx), path[1:], p)
	} else {
		elem, err = coerce(p.Value, t.Elem())
	}
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.MakeSlice(t, n, n)
	reflect.Copy(out, v)
	out.Index(idx).Set(elem)
	return out, nil
}

func applyArray(v reflect.Value, path Path, p Patch) (reflect.Value, error) {
	idx, err := index(path[0])
	if err != nil {
		return reflect.Value{}, err
	}
	if idx < 0 || idx >= v.Len() {
		return reflect.Value{}, fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidPath, idx, v.Len())
	}

	var elem reflect.Value
	switch {
	case len(path) > 1:
		elem, err = applyAt(v.Index(idx), path[1:], p)
	case p.Op == OpReplace:
		elem, err = coerce(p.Value, v.Type().Elem())
	default:
		return reflect.Value{}, fmt.Errorf("%w: %s on fixed-size array", ErrInvalidPath, p.Op)
	}
	if err != nil {
		return reflect.Value{}, err
	}

	out := reflect.New(v.Type()).Elem()
	out.Set(v)
	out.Index(idx).Set(elem)
	return out, nil
}

// index accepts integer segments and integral floats, which is how indices
// come back after a JSON round trip.
func index(seg any) (int, error) {
	switch i := seg.(type) {
	case int:
		return i, nil
	case int64:
		return int(i), nil
	case int32:
		return int(i), nil
	case uint:
		return int(i), nil
	case float64:
		if i == math.Trunc(i) {
			return int(i), nil
		}
	}
	return 0, fmt.Errorf("%w: index segment %v", ErrInvalidPath, seg)
}

// coerce turns value into a reflect.Value assignable to t. Generic JSON
// shapes (map[string]any, []any) are decoded into t through encoding/json, so
// patches fetched from a remote store apply to typed state.
func coerce(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}

	rv := reflect.ValueOf(value)
	rt := rv.Type()
	switch {
	case rt.AssignableTo(t):
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out, nil
	case t.Kind() == reflect.Pointer && rt.AssignableTo(t.Elem()):
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(rv)
		return ptr, nil
	case rt.Kind() == reflect.Pointer && !rv.IsNil() && rt.Elem().AssignableTo(t):
		out := reflect.New(t).Elem()
		out.Set(rv.Elem())
		return out, nil
	case isNumber(rt.Kind()) && isNumber(t.Kind()),
		rt.Kind() == reflect.String && t.Kind() == reflect.String:
		return rv.Convert(t), nil
	case rt.Kind() == reflect.Map || rt.Kind() == reflect.Slice:
		return decodeJSON(value, t)
	}
	return reflect.Value{}, fmt.Errorf("%w: %s is not assignable to %s", ErrTypeMismatch, rt, t)
}

func decodeJSON(value any, t reflect.Type) (reflect.Value, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%w: %s to %s: %w", ErrTypeMismatch, reflect.TypeOf(value), t, err)
	}
	out := reflect.New(t)
	if err := json.Unmarshal(data, out.Interface()); err != nil {
		return reflect.Value{}, fmt.Errorf("%w: %s to %s: %w", ErrTypeMismatch, reflect.TypeOf(value), t, err)
	}
	return out.Elem(), nil
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
