// Package patch records structural edits between two values of the same type
// and replays them with structural sharing.
//
// A Patch is a (path, operation, value) triple. Diff walks two values with
// reflection and returns the forward patches that turn the first into the
// second together with the inverse patches that turn the second back into the
// first. Apply replays patches against a base value, copying only the branches
// on a patched path so untouched maps, slices and pointers stay shared with the
// base. Clone produces a deep copy suitable for use as a mutable draft.
//
// Supported shapes are structs with exported fields, maps, slices, arrays,
// pointers, interfaces and scalars. Structs carrying unexported fields are
// treated as opaque values and replaced whole. Cyclic values are not supported.
package patch

import (
	"fmt"
	"strings"
)

// Op identifies the kind of structural edit a Patch performs.
type Op string

const (
	OpAdd     Op = "add"
	OpReplace Op = "replace"
	OpRemove  Op = "remove"
)

// Path addresses a location inside a value. Segments are struct field names
// (string), map keys (the key value itself) or slice and array indices (int).
// An empty Path addresses the root.
type Path []any

// String renders the path as an RFC 6901 JSON pointer.
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}

	var b strings.Builder
	for _, seg := range p {
		b.WriteByte('/')
		s := fmt.Sprint(seg)
		s = strings.ReplaceAll(s, "~", "~0")
		s = strings.ReplaceAll(s, "/", "~1")
		b.WriteString(s)
	}
	return b.String()
}

func (p Path) child(seg any) Path {
	next := make(Path, len(p), len(p)+1)
	copy(next, p)
	return append(next, seg)
}

// Patch is a single structural edit. Value is nil for OpRemove.
type Patch struct {
	Op    Op   `json:"op"`
	Path  Path `json:"path"`
	Value any  `json:"value,omitempty"`
}

func (p Patch) String() string {
	if p.Op == OpRemove {
		return fmt.Sprintf("%s %s", p.Op, p.Path)
	}
	return fmt.Sprintf("%s %s = %v", p.Op, p.Path, p.Value)
}
