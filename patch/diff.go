package patch

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/brunoga/deep/v3"
)

// Diff returns the patches that turn base into next and the inverse patches
// that turn next back into base. Both lists are empty when the values are
// structurally equal.
//
// deep locates the changed paths. Maps and slices on those paths are expanded
// into per-key and per-index patches, ordered so that each one applies
// against the result of the one before it.
func Diff[T any](base, next T) (patches, inverse []Patch) {
	d := &differ{handled: make(map[string]bool)}
	d.diff(nil, reflect.ValueOf(&base).Elem(), reflect.ValueOf(&next).Elem())
	slices.Reverse(d.inverse)
	return d.patches, d.inverse
}

type differ struct {
	patches []Patch
	inverse []Patch

	// handled holds paths already emitted or expanded, keyed by Path.String.
	handled map[string]bool
}

// record appends a forward patch and its inverse. Inverses are collected in
// forward order and reversed once the walk completes.
func (d *differ) record(forward, inverse Patch) {
	d.patches = append(d.patches, forward)
	d.inverse = append(d.inverse, inverse)
}

func (d *differ) replace(path Path, from, to reflect.Value) {
	d.record(
		Patch{Op: OpReplace, Path: path, Value: valueOf(to)},
		Patch{Op: OpReplace, Path: path, Value: valueOf(from)},
	)
}

func (d *differ) add(path Path, v reflect.Value) {
	d.record(
		Patch{Op: OpAdd, Path: path, Value: valueOf(v)},
		Patch{Op: OpRemove, Path: path},
	)
}

func (d *differ) remove(path Path, v reflect.Value) {
	d.record(
		Patch{Op: OpRemove, Path: path},
		Patch{Op: OpAdd, Path: path, Value: valueOf(v)},
	)
}

// diff asks deep for the changes between a and b and resolves every changed
// path it reports against the typed values, relative to path.
func (d *differ) diff(path Path, a, b reflect.Value) {
	changes := deep.Diff(valueOf(a), valueOf(b))
	if changes == nil {
		return
	}

	var changed []string
	_ = changes.Walk(func(at string, _ deep.OpKind, _, _ any) error {
		changed = append(changed, at)
		return nil
	})
	slices.Sort(changed)

	for _, at := range changed {
		d.resolve(path, a, b, segments(at))
	}
}

// resolve follows segs through struct fields and pointers. The first map,
// slice, array or scalar reached is compared in full at that path, so the
// patch shape never depends on how deep indexes container elements.
func (d *differ) resolve(path Path, a, b reflect.Value, segs []string) {
	for {
		if d.handled[path.String()] {
			return
		}
		if !a.IsValid() || !b.IsValid() || a.Type() != b.Type() {
			d.leaf(path, a, b)
			return
		}

		switch a.Kind() {
		case reflect.Interface, reflect.Pointer:
			if a.IsNil() || b.IsNil() {
				d.leaf(path, a, b)
				return
			}
			a, b = a.Elem(), b.Elem()

		case reflect.Struct:
			if !exportedOnly(a.Type()) {
				d.leaf(path, a, b)
				return
			}
			field, ok := fieldFor(a.Type(), segs)
			if !ok {
				d.diffStruct(path, a, b)
				return
			}
			path = path.child(field.Name)
			a, b = a.Field(field.Index[0]), b.Field(field.Index[0])
			segs = segs[1:]

		case reflect.Map:
			d.diffMap(path, a, b)
			return

		case reflect.Slice:
			d.diffSlice(path, a, b)
			return

		case reflect.Array:
			d.handled[path.String()] = true
			for i := range a.Len() {
				if !same(a.Index(i), b.Index(i)) {
					d.diff(path.child(i), a.Index(i), b.Index(i))
				}
			}
			return

		default:
			d.leaf(path, a, b)
			return
		}
	}
}

// diffStruct compares every field. It covers pointers that stop at a struct
// or name a field this package cannot match.
func (d *differ) diffStruct(path Path, a, b reflect.Value) {
	d.handled[path.String()] = true
	t := a.Type()
	for i := range t.NumField() {
		if !same(a.Field(i), b.Field(i)) {
			d.diff(path.child(t.Field(i).Name), a.Field(i), b.Field(i))
		}
	}
}

// fieldFor matches the first segment against a field name, then against json
// tag names.
func fieldFor(t reflect.Type, segs []string) (reflect.StructField, bool) {
	if len(segs) == 0 {
		return reflect.StructField{}, false
	}
	if f, ok := t.FieldByName(segs[0]); ok && len(f.Index) == 1 {
		return f, true
	}
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == segs[0] {
			return t.Field(i), true
		}
	}
	return reflect.StructField{}, false
}

func (d *differ) leaf(path Path, a, b reflect.Value) {
	d.handled[path.String()] = true
	if !same(a, b) {
		d.replace(path, a, b)
	}
}

// diffMap emits removals and changes for a's keys, then additions for keys
// only b holds. A map that becomes nil, or a nil map that becomes empty, is
// replaced whole so nil-ness survives the round trip.
func (d *differ) diffMap(path Path, a, b reflect.Value) {
	d.handled[path.String()] = true

	switch {
	case a.IsNil() && b.IsNil():
		return
	case b.IsNil(), a.IsNil() && b.Len() == 0:
		d.replace(path, a, b)
		return
	}

	if a.IsNil() {
		keys := sortedKeys(b)
		d.fill(path, a, len(keys), func(i int) (Path, reflect.Value) {
			return path.child(keys[i].Interface()), b.MapIndex(keys[i])
		})
		return
	}

	for _, k := range sortedKeys(a) {
		av, bv := a.MapIndex(k), b.MapIndex(k)
		switch {
		case !bv.IsValid():
			d.remove(path.child(k.Interface()), av)
		case !same(av, bv):
			d.diff(path.child(k.Interface()), av, bv)
		}
	}
	for _, k := range sortedKeys(b) {
		if !a.MapIndex(k).IsValid() {
			d.add(path.child(k.Interface()), b.MapIndex(k))
		}
	}
}

// diffSlice compares the common prefix element-wise, then emits appends in
// ascending index order or truncations in descending index order so every
// patch applies against the result of the one before it. Growing a nil slice
// is a run of appends too, which merges with elements another dispatch added
// in the meantime.
func (d *differ) diffSlice(path Path, a, b reflect.Value) {
	d.handled[path.String()] = true

	n, m := a.Len(), b.Len()
	switch {
	case b.IsNil() && !a.IsNil(), n == 0 && m == 0 && a.IsNil() != b.IsNil():
		d.replace(path, a, b)
		return
	case n == m && (n == 0 || a.Pointer() == b.Pointer()):
		return
	case a.IsNil():
		d.fill(path, a, m, func(i int) (Path, reflect.Value) {
			return path.child(i), b.Index(i)
		})
		return
	}

	common := min(n, m)
	for i := range common {
		if !same(a.Index(i), b.Index(i)) {
			d.diff(path.child(i), a.Index(i), b.Index(i))
		}
	}
	for i := common; i < m; i++ {
		d.add(path.child(i), b.Index(i))
	}
	for i := n - 1; i >= common; i-- {
		d.remove(path.child(i), a.Index(i))
	}
}

// fill records n additions into the nil container at path. The inverse is a
// single replacement with the original nil, so undoing restores nil rather
// than an empty container.
func (d *differ) fill(path Path, empty reflect.Value, n int, elem func(i int) (Path, reflect.Value)) {
	for i := range n {
		at, v := elem(i)
		d.patches = append(d.patches, Patch{Op: OpAdd, Path: at, Value: valueOf(v)})
	}
	d.inverse = append(d.inverse, Patch{Op: OpReplace, Path: path, Value: valueOf(empty)})
}

// same reports structural equality. NaN equals NaN, so an untouched NaN
// never produces a patch.
func same(a, b reflect.Value) bool {
	a, b = unwrap(a), unwrap(b)
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}

	switch a.Kind() {
	case reflect.Float32, reflect.Float64:
		x, y := a.Float(), b.Float()
		return x == y || (math.IsNaN(x) && math.IsNaN(y))
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()
	}
	return reflect.DeepEqual(a.Interface(), b.Interface())
}

func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	return v
}

// segments splits a pointer reported by deep, such as "/Items/0/Name".
func segments(pointer string) []string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return nil
	}
	return strings.Split(pointer, "/")
}

func sortedKeys(m reflect.Value) []reflect.Value {
	keys := m.MapKeys()
	slices.SortFunc(keys, func(x, y reflect.Value) int {
		return compareKeys(x, y)
	})
	return keys
}

func compareKeys(x, y reflect.Value) int {
	switch x.Kind() {
	case reflect.String:
		return cmpOrdered(x.String(), y.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmpOrdered(x.Int(), y.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return cmpOrdered(x.Uint(), y.Uint())
	case reflect.Float32, reflect.Float64:
		return cmpOrdered(x.Float(), y.Float())
	}
	return cmpOrdered(fmt.Sprint(x.Interface()), fmt.Sprint(y.Interface()))
}

func cmpOrdered[T int64 | uint64 | float64 | string](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func exportedOnly(t reflect.Type) bool {
	for i := range t.NumField() {
		if !t.Field(i).IsExported() {
			return false
		}
	}
	return true
}

func valueOf(v reflect.Value) any {
	if !v.IsValid() || !v.CanInterface() {
		return nil
	}
	return v.Interface()
}
